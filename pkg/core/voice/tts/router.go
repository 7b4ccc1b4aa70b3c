package tts

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Router selects a synthesis backend by the currently active spoken language.
// The backend table is fixed at construction; only the active tag mutates.
//
// A language change takes effect on the next synthesis call. A call that has
// already selected its backend finishes there, so an utterance never switches
// voices midway through.
type Router struct {
	backends   map[string]Provider
	defaultTag string

	mu     sync.RWMutex
	active string
}

// NewRouter builds a router over a language tag -> backend table. defaultTag
// must name an entry in the table; it serves both as the initial active
// language and as the fallback for unmapped tags.
func NewRouter(backends map[string]Provider, defaultTag string) (*Router, error) {
	if len(backends) == 0 {
		return nil, fmt.Errorf("at least one backend is required")
	}
	defaultTag = normalizeTag(defaultTag)
	if _, ok := backends[defaultTag]; !ok {
		return nil, fmt.Errorf("default language %q has no backend", defaultTag)
	}
	table := make(map[string]Provider, len(backends))
	for tag, p := range backends {
		if p == nil {
			return nil, fmt.Errorf("backend for %q is nil", tag)
		}
		table[normalizeTag(tag)] = p
	}
	return &Router{backends: table, defaultTag: defaultTag, active: defaultTag}, nil
}

// NewSingleRouter wraps one fixed backend. With no language detection the
// router behaves identically to the backend itself.
func NewSingleRouter(backend Provider, tag string) (*Router, error) {
	return NewRouter(map[string]Provider{normalizeTag(tag): backend}, tag)
}

func normalizeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	// "hi-IN" and "hi" route the same.
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	return tag
}

// SetActiveLanguage records the language the recognizer last detected. It has
// no effect on any synthesis already in flight.
func (r *Router) SetActiveLanguage(tag string) {
	tag = normalizeTag(tag)
	if tag == "" {
		return
	}
	r.mu.Lock()
	r.active = tag
	r.mu.Unlock()
}

// ActiveLanguage reports the stored language tag.
func (r *Router) ActiveLanguage() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Backend resolves the provider for the current active language, falling back
// to the default entry when the tag is unmapped.
func (r *Router) Backend() Provider {
	r.mu.RLock()
	tag := r.active
	r.mu.RUnlock()
	if p, ok := r.backends[tag]; ok {
		return p
	}
	return r.backends[r.defaultTag]
}

// Name returns the provider identifier of the current backend.
func (r *Router) Name() string {
	return r.Backend().Name()
}

// Synthesize forwards to the backend matching the active language at the time
// of the call.
func (r *Router) Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error) {
	return r.Backend().Synthesize(ctx, text, opts)
}

// SynthesizeStream forwards to the backend matching the active language at
// the time of the call. The stream stays pinned to that backend.
func (r *Router) SynthesizeStream(ctx context.Context, text string, opts SynthesizeOptions) (*SynthesisStream, error) {
	return r.Backend().SynthesizeStream(ctx, text, opts)
}
