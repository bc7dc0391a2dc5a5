package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive-backend/internal/platform/logger"
	"github.com/taskhive/taskhive-backend/internal/types"
)

// IdentityChangeSource is the slice of the session service a watcher
// needs: the subscription surface and nothing else.
type IdentityChangeSource interface {
	OnIdentityChange(handler func(types.IdentityEvent)) func()
}

// GuardWatcher keeps one guarded view's decision current. A granted
// view must flip to denied when a later identity event removes
// authentication, and a slow evaluation must never apply its result to
// a view that has since moved on: a generation counter discards stale
// outcomes.
type GuardWatcher struct {
	log     *logger.Logger
	session IdentityChangeSource
	guards  GuardService
	spec    GuardSpec
	apply   func(GuardDecision)

	mu          sync.Mutex
	identity    uuid.UUID
	generation  uint64
	closed      bool
	unsubscribe func()
}

func NewGuardWatcher(log *logger.Logger, session IdentityChangeSource, guards GuardService, spec GuardSpec, apply func(GuardDecision)) *GuardWatcher {
	return &GuardWatcher{
		log:     log.With("service", "GuardWatcher"),
		session: session,
		guards:  guards,
		spec:    spec,
		apply:   apply,
	}
}

// Start evaluates once for the given identity and subscribes to
// identity changes. Close must be called on teardown.
func (w *GuardWatcher) Start(ctx context.Context, identity uuid.UUID) {
	w.mu.Lock()
	w.identity = identity
	gen := w.bumpLocked()
	w.unsubscribe = w.session.OnIdentityChange(func(event types.IdentityEvent) {
		w.onIdentityEvent(ctx, event)
	})
	w.mu.Unlock()
	w.evaluate(ctx, identity, gen)
}

func (w *GuardWatcher) onIdentityEvent(ctx context.Context, event types.IdentityEvent) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	switch event.Kind {
	case types.IdentitySignedOut:
		if event.UserID == w.identity {
			w.identity = uuid.Nil
		}
	case types.IdentitySignedIn:
		// The bus carries every user's logins. Only a sign-in for this
		// view's identity, or for a view with no identity, is ours.
		if w.identity != uuid.Nil && event.UserID != w.identity {
			w.mu.Unlock()
			return
		}
		w.identity = event.UserID
	}
	identity := w.identity
	gen := w.bumpLocked()
	w.mu.Unlock()
	w.evaluate(ctx, identity, gen)
}

func (w *GuardWatcher) evaluate(ctx context.Context, identity uuid.UUID, gen uint64) {
	decision := w.guards.Evaluate(ctx, identity, w.spec)
	w.mu.Lock()
	stale := w.closed || gen != w.generation
	w.mu.Unlock()
	if stale {
		w.log.Debug("Discarding stale guard evaluation", "generation", gen)
		return
	}
	w.apply(decision)
}

func (w *GuardWatcher) bumpLocked() uint64 {
	w.generation++
	return w.generation
}

// Close deregisters the identity-change handler. Evaluations still in
// flight become stale and are dropped.
func (w *GuardWatcher) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	unsub := w.unsubscribe
	w.unsubscribe = nil
	w.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}
