package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/campusprint/print-gateway/internal/config"
	"github.com/campusprint/print-gateway/internal/dispatcher"
	gateway "github.com/campusprint/print-gateway/internal/gateways"
	"github.com/campusprint/print-gateway/internal/repository"
	"github.com/campusprint/print-gateway/pkg/logger"
	"github.com/campusprint/print-gateway/pkg/pg"
	"github.com/campusprint/print-gateway/pkg/prom"
	"github.com/campusprint/print-gateway/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	client, err := gateway.NewClient(&gateway.Config{
		Timeout:                 config.Get().PrinterRequestTimeout,
		MaxRetries:              config.Get().PrinterMaxRetries,
		RetryDelay:              time.Millisecond * 500,
		MaxConns:                100,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   60 * time.Second,
	})
	if err != nil {
		logger.Error("failed to create printer client", "error", err)
		return
	}

	jobRepo := repository.NewPrintJobRepository(db)
	printerRepo := repository.NewPrinterRepository(db)

	idempotencyConfig := dispatcher.DefaultIdempotencyConfig()
	idempotencyService := dispatcher.NewIdempotencyService(redisAdap, idempotencyConfig)

	service, err := dispatcher.NewDispatcherService(redisAdap)
	if err != nil {
		logger.Error("failed to create dispatcher", "error", err)
		return
	}
	service.RegisterProcessor(dispatcher.NewPrintJobProcessor(client, jobRepo, printerRepo, idempotencyService))

	var hostname string
	hostname, err = os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	err = prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace)
	if err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	go func() {
		prom.ListenAndServer(":9100", "/metrics")
	}()

	go func() {
		err := service.Start()
		if err != nil {
			logger.Error("failed to start dispatcher", "error", err)
		}
	}()

	select {
	case <-c:
		service.Stop()
	}
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
