package agent

import (
	"context"

	ai "github.com/smartsource/agentloop"
	"github.com/smartsource/agentloop/stream"
)

// Stream runs one full turn like Invoke but delivers the assistant's reply
// as ordered text fragments while it is being generated. Tool rounds do not
// surface fragments; only assistant content does. Closing the returned
// stream cancels the invocation and stops further remote calls.
//
// A failed turn delivers exactly one fragment describing the failure.
func (a *Agent) Stream(ctx context.Context, threadID, text string) *stream.Stream {
	threadID, err := a.ensureThread(ctx, threadID)

	ctx, cancel := context.WithCancel(ctx)
	s := stream.New(threadID, cancel)

	if err != nil {
		go func() {
			defer s.End()
			s.Fail(failureText(err))
		}()
		return s
	}

	go a.streamLoop(ctx, s, threadID, text)
	return s
}

func (a *Agent) streamLoop(ctx context.Context, s *stream.Stream, threadID, text string) {
	defer s.End()

	unlock := a.threads.Lock(threadID)
	defer unlock()

	if err := a.threads.Append(ctx, threadID, ai.Message{Role: ai.RoleUser, Content: text}); err != nil {
		a.streamFail(ctx, s, threadID, err)
		return
	}

	rounds := 0
	for {
		msgs, err := a.conversation(ctx, threadID)
		if err != nil {
			a.streamFail(ctx, s, threadID, err)
			return
		}

		ch, err := a.gw.CompleteStream(ctx, a.cfg.Model, msgs, a.chatOptions()...)
		if err != nil {
			a.streamFail(ctx, s, threadID, err)
			return
		}

		resp, delivered, ok := a.forward(ctx, s, threadID, ch)
		if !ok {
			// Consumer closed or the stream failed; forward handled it.
			return
		}

		if len(resp.ToolCalls) == 0 || rounds >= a.cfg.MaxIterations {
			reply := resp.Content
			if reply == "" {
				reply = fallbackReply
			}
			if !delivered {
				// Nothing streamed for the final round (e.g. empty content)
				s.Push(reply)
			}
			_ = a.threads.Append(ctx, threadID, ai.Message{Role: ai.RoleAssistant, Content: reply})
			return
		}

		if err := a.dispatch(ctx, threadID, resp); err != nil {
			a.streamFail(ctx, s, threadID, err)
			return
		}
		rounds++
	}
}

// forward relays content deltas from the provider stream to the consumer.
// It returns the accumulated response, whether any fragment was delivered,
// and false as the third value when the loop must stop (consumer closed or
// the stream errored mid-flight). Early exits drain the provider channel in
// the background so its producer goroutine can finish.
func (a *Agent) forward(ctx context.Context, s *stream.Stream, threadID string, ch <-chan ai.StreamEvent) (*ai.Response, bool, bool) {
	var resp *ai.Response
	delivered := false

	for ev := range ch {
		if ev.Err != nil {
			a.streamFail(ctx, s, threadID, ev.Err)
			drain(ch)
			return nil, delivered, false
		}
		if ev.Delta != "" {
			if !s.Push(ev.Delta) {
				drain(ch)
				return nil, delivered, false
			}
			delivered = true
		}
		if ev.Done {
			resp = ev.Response
		}
	}

	if resp == nil {
		// Closed without a final event. A consumer-initiated cancel is not
		// a failure turn; only a truncated provider stream is.
		if ctx.Err() != nil {
			return nil, delivered, false
		}
		a.streamFail(ctx, s, threadID, ai.NewTransientError("response stream ended early", 0, nil))
		return nil, delivered, false
	}
	return resp, delivered, true
}

// drain discards the remainder of a provider stream so its producer can
// finish sending after the consumer has gone away.
func drain(ch <-chan ai.StreamEvent) {
	go func() {
		for range ch {
		}
	}()
}

// streamFail records the failure in the thread and delivers it as the
// stream's single error fragment.
func (a *Agent) streamFail(ctx context.Context, s *stream.Stream, threadID string, err error) {
	text := failureText(err)
	_ = a.threads.Append(ctx, threadID, ai.Message{Role: ai.RoleAssistant, Content: text})
	s.Fail(text)
}
