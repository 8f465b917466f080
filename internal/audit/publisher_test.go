package audit_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/audit"
	"rollcall/internal/audit/memory"
)

type failingSink struct{}

func (failingSink) Append(context.Context, audit.Event) error {
	return errors.New("broker unavailable")
}

// blockingSink holds every Append until release is closed.
type blockingSink struct {
	release chan struct{}
	memory.Sink
}

func (s *blockingSink) Append(ctx context.Context, e audit.Event) error {
	<-s.release
	return s.Sink.Append(ctx, e)
}

func TestPublisher_SyncMode(t *testing.T) {
	sink := memory.NewSink()
	pub := audit.NewPublisher(sink)
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		Action:  audit.ActionCheckInSucceeded,
		EventID: "E1",
	})
	require.NoError(t, err)

	events := sink.ListByEvent("E1")
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionCheckInSucceeded, events[0].Action)
	assert.False(t, events[0].Timestamp.IsZero(), "timestamp should be set")
}

func TestPublisher_KeepsProvidedTimestamp(t *testing.T) {
	sink := memory.NewSink()
	pub := audit.NewPublisher(sink)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: audit.ActionBadgePrinted, Timestamp: at}))
	assert.Equal(t, at, sink.ListAll()[0].Timestamp)
}

func TestPublisher_RequiresAction(t *testing.T) {
	pub := audit.NewPublisher(memory.NewSink())
	assert.Error(t, pub.Emit(context.Background(), audit.Event{EventID: "E1"}))
}

func TestPublisher_SyncSurfacesSinkError(t *testing.T) {
	pub := audit.NewPublisher(failingSink{})
	err := pub.Emit(context.Background(), audit.Event{Action: audit.ActionCheckInRejected})
	assert.ErrorContains(t, err, "broker unavailable")
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	sink := memory.NewSink()
	pub := audit.NewPublisher(sink, audit.WithAsyncBuffer(100))

	for range 10 {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{
			Action:  audit.ActionAttendeeRegistered,
			EventID: "E1",
		}))
	}

	require.NoError(t, pub.Close())
	assert.Len(t, sink.ListAll(), 10, "all events should be drained on close")
}

func TestPublisher_AsyncSwallowsSinkError(t *testing.T) {
	pub := audit.NewPublisher(failingSink{}, audit.WithAsyncBuffer(4))
	assert.NoError(t, pub.Emit(context.Background(), audit.Event{Action: audit.ActionCheckInRejected}))
	assert.NoError(t, pub.Close())
}

func TestPublisher_BufferFullDropsEvent(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	pub := audit.NewPublisher(sink, audit.WithAsyncBuffer(1))

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, pub.Emit(context.Background(), audit.Event{Action: audit.ActionCheckInSucceeded}))
		}()
	}
	wg.Wait()

	close(sink.release)
	require.NoError(t, pub.Close())

	// One event may be in flight in the drain goroutine and one in the buffer.
	got := len(sink.ListAll())
	assert.GreaterOrEqual(t, got, 1)
	assert.LessOrEqual(t, got, 2)
}

func TestPublisher_EmitAfterCloseFails(t *testing.T) {
	pub := audit.NewPublisher(memory.NewSink(), audit.WithAsyncBuffer(1))
	require.NoError(t, pub.Close())
	require.NoError(t, pub.Close(), "close is idempotent")

	assert.Error(t, pub.Emit(context.Background(), audit.Event{Action: audit.ActionBadgePrinted}))
}

func TestPublisher_NilDiscards(t *testing.T) {
	var pub *audit.Publisher
	assert.NoError(t, pub.Emit(context.Background(), audit.Event{Action: audit.ActionBadgePrinted}))
	assert.NoError(t, pub.Close())
}
