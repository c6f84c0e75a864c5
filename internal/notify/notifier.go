// internal/notify/notifier.go
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dstanton/oanda-tradebot/internal/events"
)

// defaultCooldown suppresses repeat notifications for the same
// instrument and event type.
const defaultCooldown = 5 * time.Minute

// Notifier fans bus events out to the configured channels. Channel
// failures are logged and reported on the bus; they never propagate back
// into the trading path.
type Notifier struct {
	email    EmailSender
	webhook  *Webhook
	bus      *events.Bus
	logger   *zap.Logger
	cooldown time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time
	now      func() time.Time
}

// NewNotifier builds a notifier over the given channels.
func NewNotifier(email EmailSender, webhook *Webhook, bus *events.Bus, logger *zap.Logger) *Notifier {
	return &Notifier{
		email:    email,
		webhook:  webhook,
		bus:      bus,
		logger:   logger.Named("notifier"),
		cooldown: defaultCooldown,
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Register subscribes the notifier to the bus events it reports on.
func (n *Notifier) Register() {
	n.bus.SubscribeFunc(events.OrderPlaced, n.handleOrderPlaced)
	n.bus.SubscribeFunc(events.OrderRejected, n.handleOrderRejected)
}

func (n *Notifier) handleOrderPlaced(ctx context.Context, event events.Event) error {
	placed, ok := event.(*events.OrderPlacedEvent)
	if !ok {
		return nil
	}
	if !n.shouldSend(string(events.OrderPlaced), placed.Instrument) {
		n.logger.Debug("Notification suppressed by cooldown",
			zap.String("instrument", placed.Instrument))
		return nil
	}

	subject := fmt.Sprintf("Trade Executed: %s", placed.Instrument)
	body := fmt.Sprintf(
		"A trade has been executed.\n\nDirection: %s\nInstrument: %s\nUnits: %d\nSL: %s\nTP: %s",
		placed.Side, placed.Instrument, placed.Units, placed.StopLoss, placed.TakeProfit)

	if n.email != nil {
		if err := n.email.Send(subject, body); err != nil {
			n.logger.Error("Failed to send email notification", zap.Error(err))
			_ = n.bus.Publish(events.NewNotificationFailed("email", err.Error()))
		}
	}

	if n.webhook != nil && n.webhook.Enabled() {
		payload := WebhookPayload{
			Event:      string(events.OrderPlaced),
			Instrument: placed.Instrument,
			Message:    subject,
			Timestamp:  placed.Timestamp(),
		}
		if err := n.webhook.Post(ctx, payload); err != nil {
			n.logger.Error("Failed to post webhook notification", zap.Error(err))
			_ = n.bus.Publish(events.NewNotificationFailed("webhook", err.Error()))
		}
	}
	return nil
}

func (n *Notifier) handleOrderRejected(ctx context.Context, event events.Event) error {
	rejected, ok := event.(*events.OrderRejectedEvent)
	if !ok {
		return nil
	}
	if n.webhook == nil || !n.webhook.Enabled() {
		return nil
	}

	payload := WebhookPayload{
		Event:      string(events.OrderRejected),
		Instrument: rejected.Instrument,
		Message:    fmt.Sprintf("Order rejected for %s: %s", rejected.Instrument, rejected.Reason),
		Timestamp:  rejected.Timestamp(),
	}
	if err := n.webhook.Post(ctx, payload); err != nil {
		n.logger.Error("Failed to post webhook notification", zap.Error(err))
		_ = n.bus.Publish(events.NewNotificationFailed("webhook", err.Error()))
	}
	return nil
}

// shouldSend enforces the per-instrument cooldown.
func (n *Notifier) shouldSend(eventType, instrument string) bool {
	key := eventType + ":" + instrument

	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()
	if last, ok := n.lastSent[key]; ok && now.Sub(last) < n.cooldown {
		return false
	}
	n.lastSent[key] = now
	return true
}
