package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/sitemark/internal/interfaces"
)

func TestSubscribe_NilHandlerRejected(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	err := svc.Subscribe(interfaces.EventCrawlProgress, nil)

	assert.Error(t, err)
}

func TestPublishSync_DeliversToAllSubscribers(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	var count atomic.Int32
	handler := func(_ context.Context, event interfaces.Event) error {
		count.Add(1)
		assert.Equal(t, interfaces.EventCrawlComplete, event.Type)
		return nil
	}
	require.NoError(t, svc.Subscribe(interfaces.EventCrawlComplete, handler))
	require.NoError(t, svc.Subscribe(interfaces.EventCrawlComplete, handler))

	err := svc.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventCrawlComplete})

	require.NoError(t, err)
	assert.Equal(t, int32(2), count.Load())
}

func TestPublishSync_AggregatesHandlerErrors(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	require.NoError(t, svc.Subscribe(interfaces.EventCrawlFailed, func(_ context.Context, _ interfaces.Event) error {
		return errors.New("handler down")
	}))
	require.NoError(t, svc.Subscribe(interfaces.EventCrawlFailed, func(_ context.Context, _ interfaces.Event) error {
		return nil
	}))

	err := svc.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventCrawlFailed})

	assert.Error(t, err)
}

func TestPublish_AsyncDeliveryAndErrorSwallowed(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, svc.Subscribe(interfaces.EventCrawlProgress, func(_ context.Context, _ interfaces.Event) error {
		defer wg.Done()
		return errors.New("handler error")
	}))

	err := svc.Publish(context.Background(), interfaces.Event{Type: interfaces.EventCrawlProgress})

	require.NoError(t, err)

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestPublish_NoSubscribersIsNoop(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	assert.NoError(t, svc.Publish(context.Background(), interfaces.Event{Type: interfaces.EventPageComplete}))
}

func TestClose_DropsSubscriptions(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	var count atomic.Int32
	require.NoError(t, svc.Subscribe(interfaces.EventCrawlProgress, func(_ context.Context, _ interfaces.Event) error {
		count.Add(1)
		return nil
	}))
	require.NoError(t, svc.Close())

	require.NoError(t, svc.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventCrawlProgress}))
	assert.Equal(t, int32(0), count.Load())
}
