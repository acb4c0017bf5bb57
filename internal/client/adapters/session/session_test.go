package session_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapters "revornix/internal/client/adapters/session"
	"revornix/internal/client/config"
	"revornix/internal/client/ports/session"
	"revornix/pkg/logger"
)

var testEvent = session.Event{
	Reason:   "refresh attempts exhausted",
	Attempts: 3,
	Waiters:  2,
	Err:      errors.New("refresh endpoint unavailable"),
}

type recordingNotifier struct {
	events []session.Event
}

func (r *recordingNotifier) SessionExpired(_ context.Context, e session.Event) {
	r.events = append(r.events, e)
}

func TestConsoleNotifier(t *testing.T) {
	var buf bytes.Buffer
	adapters.NewConsoleNotifier(&buf).SessionExpired(context.Background(), testEvent)

	assert.Equal(t, adapters.UserMessage+"\n", buf.String())
}

func TestNotifiers(t *testing.T) {
	first, second := &recordingNotifier{}, &recordingNotifier{}
	ns := adapters.Notifiers{first, nil, adapters.LogNotifier{}, second}

	assert.NotPanics(t, func() {
		ns.SessionExpired(context.Background(), testEvent)
	})
	assert.Equal(t, []session.Event{testEvent}, first.events)
	assert.Equal(t, []session.Event{testEvent}, second.events)
}

func TestResetFunc(t *testing.T) {
	calls := 0
	var r session.Resetter = adapters.ResetFunc(func(context.Context) { calls++ })
	r.ResetSession(context.Background())
	assert.Equal(t, 1, calls)

	assert.NotPanics(t, func() {
		adapters.ResetFunc(nil).ResetSession(context.Background())
	})
}

func TestNewSentryHub_DisabledWithoutDSN(t *testing.T) {
	hub, err := adapters.NewSentryHub(&config.SentryConfig{})
	require.NoError(t, err)
	assert.Nil(t, hub)
}

func TestNewSentryHub_InvalidDSN(t *testing.T) {
	hub, err := adapters.NewSentryHub(&config.SentryConfig{DSN: "not a dsn"})
	require.Error(t, err)
	assert.Nil(t, hub)
	assert.Contains(t, err.Error(), adapters.ErrInitSentry)
}

func TestSentryNotifier(t *testing.T) {
	var (
		mu     sync.Mutex
		events []*sentry.Event
	)
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			mu.Lock()
			events = append(events, event)
			mu.Unlock()
			return nil
		},
	})
	require.NoError(t, err)

	notifier := adapters.NewSentryNotifier(sentry.NewHub(client, sentry.NewScope()))
	ctx := logger.NewRequestIDContext(context.Background(), "req-42")
	notifier.SessionExpired(ctx, testEvent)
	notifier.Flush()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)

	event := events[0]
	assert.Equal(t, "session expired", event.Message)
	assert.Equal(t, sentry.LevelWarning, event.Level)
	assert.Equal(t, testEvent.Reason, event.Tags["reason"])
	assert.Equal(t, "req-42", event.Tags[logger.RequestID])
	require.Contains(t, event.Contexts, "session")
	assert.Equal(t, 3, event.Contexts["session"]["attempts"])
	assert.Equal(t, testEvent.Err.Error(), event.Contexts["session"]["error"])
}
