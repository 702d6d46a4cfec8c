package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/blinkd/internal/events"
)

// registerSSERoutes registers the state change stream.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of button presses, pattern and speed changes, and animation state",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"button-pressed":  events.ButtonPressedEvent{},
		"pattern-changed": events.PatternChangedEvent{},
		"speed-changed":   events.SpeedChangedEvent{},
		"animation-state": events.AnimationStateEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 16)

		bus := s.options.Bus
		unsubscribers := []func(){
			events.SubscribeToChannel[events.ButtonPressedEvent](bus, eventCh),
			events.SubscribeToChannel[events.PatternChangedEvent](bus, eventCh),
			events.SubscribeToChannel[events.SpeedChangedEvent](bus, eventCh),
			events.SubscribeToChannel[events.AnimationStateEvent](bus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Current state first, so a client never has to poll /api/status.
		running := s.options.Animation != nil && s.options.Animation.Running()
		if err := send.Data(events.AnimationStateEvent{
			Running:   running,
			Timestamp: time.Now().Format(time.RFC3339),
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
