package workspace

import (
	"context"
	"errors"

	"github.com/ziadkadry99/branch-canvas/internal/canvas"
	"github.com/ziadkadry99/branch-canvas/internal/events"
	"github.com/ziadkadry99/branch-canvas/internal/llm"
)

// ErrorPrefix starts the assistant message recorded when a provider fails.
const ErrorPrefix = "Error: "

// Send records text as a user message on id and asks the session's
// provider for a reply in the background. The node stays loading until the
// reply, or an error message, has been appended. The request is not tied
// to ctx: it completes even if the caller goes away.
func (w *Workspace) Send(ctx context.Context, id, text string) error {
	var pending *canvas.Pending
	var settings llm.Settings
	err := w.update(ctx, func() ([]events.Event, error) {
		p, err := w.canvas.BeginSend(id, text)
		if err != nil {
			return nil, err
		}
		pending = p
		settings = w.manager.settings(w.prefs)
		n, _ := w.canvas.Node(id)
		return []events.Event{nodeEvent(events.SendStarted, n)}, nil
	})
	if err != nil {
		return err
	}

	w.manager.sends.Add(1)
	go func() {
		defer w.manager.sends.Done()
		reply := w.complete(context.WithoutCancel(ctx), pending, settings)
		w.finishSend(context.WithoutCancel(ctx), id, reply)
	}()
	return nil
}

// complete returns the text to append as the assistant reply.
func (w *Workspace) complete(ctx context.Context, p *canvas.Pending, s llm.Settings) string {
	provider, err := w.manager.provider(s)
	if err != nil {
		var missing *llm.MissingKeyError
		if errors.As(err, &missing) {
			return missing.Error()
		}
		return ErrorPrefix + err.Error()
	}

	msgs := make([]llm.Message, 0, len(p.Context)+1)
	for _, m := range p.Context {
		msgs = append(msgs, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: p.Message})

	resp, err := provider.Complete(ctx, llm.CompletionRequest{Messages: msgs, NodeID: p.NodeID})
	if err != nil {
		w.logger.Warn().Err(err).Str("node", p.NodeID).Str("provider", provider.Name()).Msg("completion failed")
		return ErrorPrefix + err.Error()
	}
	w.logger.Debug().
		Str("node", p.NodeID).
		Int("input_tokens", resp.InputTokens).
		Int("output_tokens", resp.OutputTokens).
		Msg("completion finished")
	if resp.Content == "" {
		return llm.NoReply
	}
	return resp.Content
}

func (w *Workspace) finishSend(ctx context.Context, id, reply string) {
	err := w.update(ctx, func() ([]events.Event, error) {
		if err := w.canvas.CompleteSend(id, reply); err != nil {
			return nil, err
		}
		n, _ := w.canvas.Node(id)
		return []events.Event{nodeEvent(events.SendCompleted, n)}, nil
	})
	if errors.Is(err, canvas.ErrNodeNotFound) {
		w.logger.Debug().Str("node", id).Msg("reply dropped, node was deleted")
		return
	}
	if err != nil {
		w.logger.Error().Err(err).Str("node", id).Msg("recording reply")
	}
}
