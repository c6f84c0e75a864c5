// internal/storage/models/models.go
package models

import "time"

// Signal is one approved or rejected strategy decision.
type Signal struct {
	ID          uint      `gorm:"primaryKey"`
	CreatedAt   time.Time `gorm:"index"`
	CycleID     string    `gorm:"index;size:64"`
	Instrument  string    `gorm:"index;size:16"`
	Side        string    `gorm:"size:8"`
	Probability float64
	StopLoss    string `gorm:"size:24"`
	TakeProfit  string `gorm:"size:24"`
	Taken       bool
	SkipReason  string `gorm:"size:128"`
}

// Order is a market order accepted by the broker.
type Order struct {
	ID            uint      `gorm:"primaryKey"`
	CreatedAt     time.Time `gorm:"index"`
	CycleID       string    `gorm:"index;size:64"`
	Instrument    string    `gorm:"index;size:16"`
	Side          string    `gorm:"size:8"`
	Units         int
	StopLoss      string `gorm:"size:24"`
	TakeProfit    string `gorm:"size:24"`
	TransactionID string `gorm:"uniqueIndex;size:32"`
	FillPrice     float64
}

// ClosedTrade mirrors a closed trade fetched from the broker, keyed by
// the broker's trade id so syncs are idempotent.
type ClosedTrade struct {
	TradeID    string `gorm:"primaryKey;size:32"`
	Instrument string `gorm:"index;size:16"`
	Units      float64
	Price      float64
	RealizedPL float64
	OpenTime   time.Time
	CloseTime  time.Time `gorm:"index"`
	SyncedAt   time.Time
}
