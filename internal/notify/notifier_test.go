package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dstanton/oanda-tradebot/internal/broker"
	"github.com/dstanton/oanda-tradebot/internal/events"
)

type fakeEmail struct {
	mu       sync.Mutex
	subjects []string
	bodies   []string
	err      error
}

func (f *fakeEmail) Send(subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.bodies = append(f.bodies, body)
	return nil
}

func placedEvent() *events.OrderPlacedEvent {
	return events.NewOrderPlaced("cycle-1", "EUR_USD", broker.Sell, 1000, "1.09350", "1.09010", "6101", 1.08995)
}

func TestOrderPlacedSendsEmail(t *testing.T) {
	bus := events.NewBus(zap.NewNop(), 8)
	defer bus.Close()

	email := &fakeEmail{}
	notifier := NewNotifier(email, nil, bus, zap.NewNop())
	notifier.Register()

	require.NoError(t, bus.PublishSync(context.Background(), placedEvent()))

	email.mu.Lock()
	defer email.mu.Unlock()
	require.Len(t, email.subjects, 1)
	assert.Equal(t, "Trade Executed: EUR_USD", email.subjects[0])
	assert.Contains(t, email.bodies[0], "Direction: SELL")
	assert.Contains(t, email.bodies[0], "Units: 1000")
	assert.Contains(t, email.bodies[0], "SL: 1.09350")
}

func TestCooldownSuppressesRepeats(t *testing.T) {
	bus := events.NewBus(zap.NewNop(), 8)
	defer bus.Close()

	email := &fakeEmail{}
	notifier := NewNotifier(email, nil, bus, zap.NewNop())
	notifier.Register()

	now := time.Now()
	notifier.now = func() time.Time { return now }

	require.NoError(t, bus.PublishSync(context.Background(), placedEvent()))
	require.NoError(t, bus.PublishSync(context.Background(), placedEvent()))

	email.mu.Lock()
	assert.Len(t, email.subjects, 1)
	email.mu.Unlock()

	// A different instrument is not suppressed.
	other := events.NewOrderPlaced("cycle-1", "GBP_USD", broker.Buy, 1000, "1.26", "1.28", "7000", 1.27)
	require.NoError(t, bus.PublishSync(context.Background(), other))

	email.mu.Lock()
	assert.Len(t, email.subjects, 2)
	email.mu.Unlock()

	// After the cooldown the original instrument notifies again.
	notifier.now = func() time.Time { return now.Add(defaultCooldown + time.Second) }
	require.NoError(t, bus.PublishSync(context.Background(), placedEvent()))

	email.mu.Lock()
	assert.Len(t, email.subjects, 3)
	email.mu.Unlock()
}

func TestEmailFailureDoesNotPropagate(t *testing.T) {
	bus := events.NewBus(zap.NewNop(), 8)
	defer bus.Close()

	email := &fakeEmail{err: assert.AnError}
	notifier := NewNotifier(email, nil, bus, zap.NewNop())
	notifier.Register()

	// Handler must swallow the channel failure.
	require.NoError(t, bus.PublishSync(context.Background(), placedEvent()))
}

func TestDisabledEmailSkips(t *testing.T) {
	emailer := NewEmailer(EmailConfig{Enabled: false}, zap.NewNop())
	assert.NoError(t, emailer.Send("subject", "body"))
}

func TestEnabledEmailWithoutCredentialsSkips(t *testing.T) {
	emailer := NewEmailer(EmailConfig{
		Enabled:   true,
		Sender:    "bot@example.com",
		Recipient: "me@example.com",
	}, zap.NewNop())
	// No app password: logged and skipped, not an error.
	assert.NoError(t, emailer.Send("subject", "body"))
}
