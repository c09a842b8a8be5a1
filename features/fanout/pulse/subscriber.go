package pulse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	streamopts "goa.design/pulse/streaming/options"

	clientspulse "github.com/jarz-ai/a2ui-go/features/fanout/pulse/clients/pulse"
)

type (
	// SubscriberOptions configures a Pulse-backed subscriber.
	SubscriberOptions struct {
		// Client is the Pulse client used to consume events. Required.
		Client clientspulse.Client
		// SinkName identifies the Pulse consumer group. Defaults to
		// "a2ui_subscriber".
		SinkName string
		// Buffer is the envelope channel capacity. Defaults to 64.
		Buffer int
	}

	// Subscriber consumes a session's fan-out stream and emits the decoded
	// envelopes in publish order.
	Subscriber struct {
		client clientspulse.Client
		name   string
		buffer int
	}
)

// NewSubscriber constructs a Pulse-backed subscriber.
func NewSubscriber(opts SubscriberOptions) (*Subscriber, error) {
	if opts.Client == nil {
		return nil, errors.New("pulse client is required")
	}
	name := opts.SinkName
	if name == "" {
		name = "a2ui_subscriber"
	}
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = 64
	}
	return &Subscriber{client: opts.Client, name: name, buffer: buffer}, nil
}

// Subscribe opens a consumer group on the session's stream and returns
// channels for envelopes and errors. The returned cancel function stops
// consumption and closes both channels.
//
//	envs, errs, cancel, err := sub.Subscribe(ctx, sessionID)
//	defer cancel()
//	for env := range envs {
//	    // process envelope
//	}
func (s *Subscriber) Subscribe(
	ctx context.Context,
	sessionID string,
	opts ...streamopts.Sink,
) (<-chan Envelope, <-chan error, context.CancelFunc, error) {
	if sessionID == "" {
		return nil, nil, nil, errors.New("session id is required")
	}
	str, err := s.client.Stream(fmt.Sprintf("a2ui/%s", sessionID))
	if err != nil {
		return nil, nil, nil, err
	}
	sink, err := str.NewSink(ctx, s.name, opts...)
	if err != nil {
		return nil, nil, nil, err
	}
	envs := make(chan Envelope, s.buffer)
	errs := make(chan error, 1)
	runCtx, cancel := context.WithCancel(ctx)
	go s.consume(runCtx, sink, envs, errs)
	cancelFunc := func() {
		cancel()
		sink.Close(context.Background())
	}
	return envs, errs, cancelFunc, nil
}

// consume reads from the Pulse sink, decodes envelopes, emits them, and acks
// each one after emission. It closes both channels when ctx is cancelled or
// the sink channel closes, and stops on the first decode or ack failure.
func (s *Subscriber) consume(ctx context.Context, sink clientspulse.Sink, out chan<- Envelope, errs chan<- error) {
	defer close(out)
	defer close(errs)
	ch := sink.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			var env Envelope
			if err := json.Unmarshal(evt.Payload, &env); err != nil {
				errs <- fmt.Errorf("fanout decode envelope: %w", err)
				return
			}
			select {
			case out <- env:
			case <-ctx.Done():
				return
			}
			if err := sink.Ack(ctx, evt); err != nil {
				errs <- fmt.Errorf("fanout ack: %w", err)
				return
			}
		}
	}
}
