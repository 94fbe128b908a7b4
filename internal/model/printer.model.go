package model

type PrinterStatus string

const (
	PrinterStatusAvailable   PrinterStatus = "available"
	PrinterStatusBusy        PrinterStatus = "busy"
	PrinterStatusOffline     PrinterStatus = "offline"
	PrinterStatusMaintenance PrinterStatus = "maintenance"
)

type Printer struct {
	ID       int64         `json:"id"`
	Name     string        `json:"name"`
	URI      string        `json:"uri"`
	Location string        `json:"location"`
	Active   bool          `json:"active"`
	Status   PrinterStatus `json:"status"`
}

func (Printer) TableName() string { return "printers" }
