package monitor

import "time"

// Status is a point-in-time snapshot of the service's dependencies.
type Status struct {
	PostgreSQL  bool      `json:"postgresql"`
	Redis       bool      `json:"redis"`
	Journal     bool      `json:"journal"`
	JournalSize int       `json:"journalSize"`
	Subscribers int       `json:"subscribers"`
	LastCheck   time.Time `json:"lastCheck"`
}
