// internal/events/types.go
package events

import (
	"time"

	"github.com/dstanton/oanda-tradebot/internal/broker"
)

// EventType represents the type of event.
type EventType string

const (
	// Cycle events
	CycleStarted   EventType = "cycle.started"
	CycleCompleted EventType = "cycle.completed"

	// Signal events
	SignalDetected EventType = "signal.detected"

	// Order events
	OrderPlaced   EventType = "order.placed"
	OrderRejected EventType = "order.rejected"
	TradeSkipped  EventType = "trade.skipped"

	// Notification events
	NotificationFailed EventType = "notification.failed"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

func newBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now().UTC()}
}

// CycleStartedEvent is emitted when a trading cycle begins.
type CycleStartedEvent struct {
	BaseEvent
	CycleID     string
	Instruments []string
}

// NewCycleStarted builds a CycleStartedEvent.
func NewCycleStarted(cycleID string, instruments []string) *CycleStartedEvent {
	return &CycleStartedEvent{
		BaseEvent:   newBase(CycleStarted),
		CycleID:     cycleID,
		Instruments: instruments,
	}
}

// CycleCompletedEvent summarizes a finished cycle.
type CycleCompletedEvent struct {
	BaseEvent
	CycleID  string
	Signals  int
	Orders   int
	Skipped  int
	Errors   int
	Duration time.Duration
}

// NewCycleCompleted builds a CycleCompletedEvent.
func NewCycleCompleted(cycleID string, signals, orders, skipped, errs int, duration time.Duration) *CycleCompletedEvent {
	return &CycleCompletedEvent{
		BaseEvent: newBase(CycleCompleted),
		CycleID:   cycleID,
		Signals:   signals,
		Orders:    orders,
		Skipped:   skipped,
		Errors:    errs,
		Duration:  duration,
	}
}

// SignalDetectedEvent is emitted when the strategy approves a trade.
type SignalDetectedEvent struct {
	BaseEvent
	CycleID     string
	Instrument  string
	Side        broker.Side
	StopLoss    string
	TakeProfit  string
	Probability float64
}

// NewSignalDetected builds a SignalDetectedEvent.
func NewSignalDetected(cycleID, instrument string, side broker.Side, sl, tp string, probability float64) *SignalDetectedEvent {
	return &SignalDetectedEvent{
		BaseEvent:   newBase(SignalDetected),
		CycleID:     cycleID,
		Instrument:  instrument,
		Side:        side,
		StopLoss:    sl,
		TakeProfit:  tp,
		Probability: probability,
	}
}

// OrderPlacedEvent is emitted after the broker accepts a market order.
type OrderPlacedEvent struct {
	BaseEvent
	CycleID       string
	Instrument    string
	Side          broker.Side
	Units         int
	StopLoss      string
	TakeProfit    string
	TransactionID string
	FillPrice     float64
}

// NewOrderPlaced builds an OrderPlacedEvent.
func NewOrderPlaced(cycleID, instrument string, side broker.Side, units int, sl, tp, txID string, fillPrice float64) *OrderPlacedEvent {
	return &OrderPlacedEvent{
		BaseEvent:     newBase(OrderPlaced),
		CycleID:       cycleID,
		Instrument:    instrument,
		Side:          side,
		Units:         units,
		StopLoss:      sl,
		TakeProfit:    tp,
		TransactionID: txID,
		FillPrice:     fillPrice,
	}
}

// OrderRejectedEvent is emitted when the broker refuses an order.
type OrderRejectedEvent struct {
	BaseEvent
	CycleID    string
	Instrument string
	Reason     string
}

// NewOrderRejected builds an OrderRejectedEvent.
func NewOrderRejected(cycleID, instrument, reason string) *OrderRejectedEvent {
	return &OrderRejectedEvent{
		BaseEvent:  newBase(OrderRejected),
		CycleID:    cycleID,
		Instrument: instrument,
		Reason:     reason,
	}
}

// TradeSkippedEvent is emitted when a signal is dropped because a trade
// is already open for the instrument.
type TradeSkippedEvent struct {
	BaseEvent
	CycleID     string
	Instrument  string
	OpenTradeID string
}

// NewTradeSkipped builds a TradeSkippedEvent.
func NewTradeSkipped(cycleID, instrument, openTradeID string) *TradeSkippedEvent {
	return &TradeSkippedEvent{
		BaseEvent:   newBase(TradeSkipped),
		CycleID:     cycleID,
		Instrument:  instrument,
		OpenTradeID: openTradeID,
	}
}

// NotificationFailedEvent is emitted when a notification channel errors.
// Notification failures never propagate into the trading path.
type NotificationFailedEvent struct {
	BaseEvent
	Channel string
	Reason  string
}

// NewNotificationFailed builds a NotificationFailedEvent.
func NewNotificationFailed(channel, reason string) *NotificationFailedEvent {
	return &NotificationFailedEvent{
		BaseEvent: newBase(NotificationFailed),
		Channel:   channel,
		Reason:    reason,
	}
}
