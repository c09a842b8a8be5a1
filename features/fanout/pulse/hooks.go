package pulse

import (
	"context"
	"encoding/json"

	"github.com/jarz-ai/a2ui-go/protocol"
	"github.com/jarz-ai/a2ui-go/session"
	"github.com/jarz-ai/a2ui-go/telemetry"
)

// Hooks returns session hooks that mirror an exchange onto the sink:
// text tokens, tool activity, every applied control message in raw form, and
// the terminal phase. Publish failures are logged, never propagated; fan-out
// must not disturb the exchange itself. Compose the result with the caller's
// own hooks before handing it to the controller.
func (s *Sink) Hooks(ctx context.Context, sessionID, exchangeID string, log telemetry.Logger) session.Hooks {
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	send := func(typ EventType, payload any) {
		err := s.Send(ctx, Event{
			Type:       typ,
			SessionID:  sessionID,
			ExchangeID: exchangeID,
			Payload:    payload,
		})
		if err != nil {
			log.Warn(ctx, "fanout publish failed", "type", string(typ), "err", err)
		}
	}
	return session.Hooks{
		OnText: func(delta, _ string) {
			send(EventText, map[string]string{"content": delta})
		},
		OnTool: func(tool string, running bool) {
			if running {
				send(EventToolStart, map[string]string{"tool": tool})
				return
			}
			send(EventToolEnd, map[string]string{"tool": tool})
		},
		OnMessage: func(_ protocol.Message, raw json.RawMessage) {
			send(EventA2UI, raw)
		},
		OnFinish: func(phase session.Phase, err error) {
			payload := map[string]string{"phase": string(phase)}
			if err != nil {
				payload["error"] = err.Error()
			}
			send(EventTerminal, payload)
		},
	}
}
