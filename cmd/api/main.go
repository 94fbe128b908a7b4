package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/campusprint/print-gateway/internal/config"
	"github.com/campusprint/print-gateway/internal/handlers"
	"github.com/campusprint/print-gateway/internal/pagecount"
	"github.com/campusprint/print-gateway/internal/queue"
	"github.com/campusprint/print-gateway/internal/repository"
	"github.com/campusprint/print-gateway/internal/services"
	xhttp "github.com/campusprint/print-gateway/pkg/http"
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

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 60))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

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

	dispatchQ, err := queue.NewQueue(redisAdap, queue.QueueConfig{
		Name:              config.Get().QueueName,
		ConsumerGroup:     config.Get().QueueConsumerGroup,
		ConsumerName:      config.Get().QueueConsumerName,
		MaxRetries:        config.Get().QueueMaxRetries,
		VisibilityTimeout: config.Get().QueueVisibilityTimeout,
		PollInterval:      config.Get().QueuePollInterval,
		BatchSize:         config.Get().QueueBatchSize,
		MaxLen:            config.Get().QueueMaxLen,
		EnableDLQ:         config.Get().QueueEnableDLQ,
	})
	if err != nil {
		logger.Error("failed creating queue", "error", err)
		return
	}

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
	if config.Get().AppDebugMetricsAddr != "" {
		go func() {
			prom.ListenAndServer(config.Get().AppDebugMetricsAddr, config.Get().AppDebugMetricsURI)
		}()
	}

	jobRepo := repository.NewPrintJobRepository(db)
	balanceRepo := repository.NewBalanceRepository(db)
	docRepo := repository.NewDocumentRepository(db)
	printerRepo := repository.NewPrinterRepository(db)
	topupRepo := repository.NewTopUpRepository(db)

	converter := pagecount.NewSofficeConverter(config.Get().ConverterBin, config.Get().ConverterTimeout)
	counter := pagecount.NewEstimator(converter)

	billingCfg := services.BillingConfig{
		LargeRatio:       config.Get().BillingA3Ratio,
		DefaultAllotment: config.Get().BillingDefaultAllotment,
	}
	paymentCfg := services.PaymentConfig{
		RenderBaseURL: config.Get().PaymentRenderBaseURL,
		MemoTag:       config.Get().PaymentMemoTag,
		MinAmount:     config.Get().PaymentMinAmount,
		MaxAmount:     config.Get().PaymentMaxAmount,
		MinPages:      config.Get().PaymentMinPages,
		MaxPages:      config.Get().PaymentMaxPages,
	}

	// services
	printJobService := services.NewPrintJobService(jobRepo, balanceRepo, docRepo, printerRepo, counter, billingCfg, dispatchQ)
	topupService := services.NewTopUpService(topupRepo, balanceRepo, paymentCfg, billingCfg)
	webhookService := services.NewWebhookService(topupRepo, balanceRepo)
	healthService := services.NewHealthService(db, redisAdap)

	// v1 handlers
	printJobHandler := handlers.NewPrintJobHandler(printJobService)
	topupHandler := handlers.NewTopUpHandler(topupService)
	webhookHandler := handlers.NewWebhookHandler(webhookService)
	healthHandler := handlers.NewHealthHandler(healthService)

	g := s.Router.Group("/api/v1")
	handlers.RegisterPrintJobRoutes(g, printJobHandler)
	handlers.RegisterTopUpRoutes(g, topupHandler)
	handlers.RegisterWebhookRoutes(g, webhookHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	select {
	case <-c:
		s.Shutdown()
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
