package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskhub/internal/platform/logger"
)

// recorder counts the events it receives and returns err for each.
type recorder struct {
	count int
	last  *Event
	err   error
}

func (r *recorder) HandleEvent(ctx context.Context, event *Event) error {
	r.count++
	r.last = event
	return r.err
}

func TestInMemoryEmitter(t *testing.T) {
	event, err := NewEvent("test", map[string]string{"key": "value"})
	require.NoError(t, err)

	t.Run("no handlers", func(t *testing.T) {
		emitter := NewInMemoryEmitter(nil)
		assert.NoError(t, emitter.EmitEvent(context.Background(), event))
	})

	t.Run("every handler receives the event", func(t *testing.T) {
		emitter := NewInMemoryEmitter(nil)
		first, second := &recorder{}, &recorder{}
		emitter.RegisterHandler(first)
		emitter.RegisterHandler(second)

		require.NoError(t, emitter.EmitEvent(context.Background(), event))
		assert.Equal(t, 1, first.count)
		assert.Equal(t, 1, second.count)
		assert.Same(t, event, second.last)
	})

	t.Run("failing handler does not stop the others", func(t *testing.T) {
		log, buf := logger.NewCapture()
		emitter := NewInMemoryEmitter(log)

		failing := &recorder{err: errors.New("first failure")}
		alsoFailing := &recorder{err: errors.New("second failure")}
		ok := &recorder{}
		emitter.RegisterHandler(failing)
		emitter.RegisterHandler(alsoFailing)
		emitter.RegisterHandler(ok)

		err := emitter.EmitEvent(context.Background(), event)
		assert.EqualError(t, err, "first failure")
		assert.Equal(t, 1, ok.count)
		assert.Contains(t, buf.String(), "handler failed to process event")
	})

	t.Run("handler func", func(t *testing.T) {
		emitter := NewInMemoryEmitter(nil)
		var got string
		emitter.RegisterHandler(HandlerFunc(func(ctx context.Context, e *Event) error {
			got = e.Type
			return nil
		}))

		require.NoError(t, emitter.EmitEvent(context.Background(), event))
		assert.Equal(t, "test", got)
	})
}
