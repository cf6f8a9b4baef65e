package provider

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// registered pairs a provider with its ID for fallback ordering.
type registered struct {
	id   string
	comp Completer
}

// Router holds the configured providers and routes completions through the
// default one, falling back to the others in registration order.
type Router struct {
	providers []registered
	defaults  string
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewRouter creates an empty provider router.
func NewRouter(logger *zap.Logger) *Router {
	return &Router{logger: logger}
}

// Register adds a provider. The first registered provider becomes the default.
func (r *Router) Register(id string, c Completer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = append(r.providers, registered{id: id, comp: c})
	if r.defaults == "" {
		r.defaults = id
	}
	r.logger.Info("registered provider", zap.String("id", id))
}

// SetDefault sets the default provider.
func (r *Router) SetDefault(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults = id
}

// Complete routes a completion through the default provider, trying the
// remaining providers on failure.
func (r *Router) Complete(ctx context.Context, system, user, model string) (string, error) {
	r.mu.RLock()
	providers := make([]registered, len(r.providers))
	copy(providers, r.providers)
	defaultID := r.defaults
	r.mu.RUnlock()

	if len(providers) == 0 {
		return "", fmt.Errorf("no providers registered")
	}

	// Default first, then the rest in registration order.
	ordered := make([]registered, 0, len(providers))
	for _, p := range providers {
		if p.id == defaultID {
			ordered = append([]registered{p}, ordered...)
		} else {
			ordered = append(ordered, p)
		}
	}

	var lastErr error
	for i, p := range ordered {
		text, err := p.comp.Complete(ctx, system, user, model)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if i == 0 && len(ordered) > 1 {
			r.logger.Warn("default provider failed, trying fallbacks",
				zap.String("provider", p.id), zap.Error(err))
		}
	}
	return "", fmt.Errorf("all providers failed: %w", lastErr)
}
