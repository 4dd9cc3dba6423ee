package event_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/studio/pkg/event"
)

func TestFireReachesListeners(t *testing.T) {
	bus := event.New()
	var got []string
	bus.Listen(func(_ context.Context, name string, payload interface{}) {
		got = append(got, name+":"+payload.(string))
	}, event.OrderCreated, event.BookingCreated)

	bus.Fire(context.Background(), event.OrderCreated, "o1")
	bus.Fire(context.Background(), event.BookingCreated, "b1")
	bus.Fire(context.Background(), event.ImageUploaded, "i1")

	assert.Equal(t, []string{"order.created:o1", "booking.created:b1"}, got)
}

func TestFireAsyncSurvivesCancelledContext(t *testing.T) {
	bus := event.New()
	var mu sync.Mutex
	var errs []error
	bus.Listen(func(ctx context.Context, _ string, _ interface{}) {
		mu.Lock()
		errs = append(errs, ctx.Err())
		mu.Unlock()
	}, event.OrderPaid)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.FireAsync(ctx, event.OrderPaid, nil)
	bus.Wait()

	assert.Equal(t, []error{nil}, errs)
}

func TestNilBusIsSilent(t *testing.T) {
	var bus *event.Bus
	bus.Fire(context.Background(), event.OrderCreated, nil)
	bus.FireAsync(context.Background(), event.OrderCreated, nil)
	bus.Wait()
}

func TestFlush(t *testing.T) {
	bus := event.New()
	called := false
	bus.Listen(func(context.Context, string, interface{}) { called = true }, event.OrderCreated)
	bus.Flush()
	bus.Fire(context.Background(), event.OrderCreated, nil)
	assert.False(t, called)
}
