package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync/atomic"
)

// Logical model ids used across the application.
const (
	ChatModelID      = "chat-model"
	ReasoningModelID = "chat-model-reasoning"
	TitleModelID     = "title-model"
	ArtifactModelID  = "artifact-model"
)

var (
	ErrUnknownModel   = errors.New("llm: unknown model")
	ErrStreamConsumed = errors.New("llm: stream already consumed")
)

// ModelNames maps logical ids to provider model names.
type ModelNames struct {
	Chat      string
	Reasoning string
	Title     string
	Artifact  string
}

type route struct {
	name      string
	reasoning bool
}

// Registry resolves logical model ids and streams completions from them.
// The reasoning model has its <think> spans reported as reasoning deltas.
type Registry struct {
	client *Client
	routes map[string]route
}

func NewRegistry(client *Client, names ModelNames) *Registry {
	return &Registry{
		client: client,
		routes: map[string]route{
			ChatModelID:      {name: names.Chat},
			ReasoningModelID: {name: names.Reasoning, reasoning: true},
			TitleModelID:     {name: names.Title},
			ArtifactModelID:  {name: names.Artifact},
		},
	}
}

// ProviderModel returns the provider model name behind a logical id.
func (r *Registry) ProviderModel(id string) (string, bool) {
	rt, ok := r.routes[id]
	return rt.name, ok
}

// Stream yields typed deltas. The returned sequence is lazy and can be
// ranged over once; a second range yields ErrStreamConsumed.
func (r *Registry) Stream(ctx context.Context, id string, msgs []Message) iter.Seq2[Delta, error] {
	var used atomic.Bool
	return func(yield func(Delta, error) bool) {
		if used.Swap(true) {
			yield(Delta{}, ErrStreamConsumed)
			return
		}

		rt, ok := r.routes[id]
		if !ok {
			yield(Delta{}, fmt.Errorf("%w: %s", ErrUnknownModel, id))
			return
		}

		var splitter *tagSplitter
		if rt.reasoning {
			splitter = newTagSplitter("think")
		}

		for fragment, err := range r.client.Stream(ctx, rt.name, msgs) {
			if err != nil {
				yield(Delta{}, err)
				return
			}
			if splitter == nil {
				if !yield(Delta{Type: DeltaText, Text: fragment}, nil) {
					return
				}
				continue
			}
			for _, d := range splitter.push(fragment) {
				if !yield(d, nil) {
					return
				}
			}
		}

		if splitter != nil {
			for _, d := range splitter.flush() {
				if !yield(d, nil) {
					return
				}
			}
		}
	}
}

// StreamText yields only answer text, dropping reasoning.
func (r *Registry) StreamText(ctx context.Context, id string, msgs []Message) iter.Seq2[string, error] {
	deltas := r.Stream(ctx, id, msgs)
	return func(yield func(string, error) bool) {
		for d, err := range deltas {
			if err != nil {
				yield("", err)
				return
			}
			if d.Type != DeltaText {
				continue
			}
			if !yield(d.Text, nil) {
				return
			}
		}
	}
}
