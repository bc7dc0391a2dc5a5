package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive-backend/internal/routes"
	"github.com/taskhive/taskhive-backend/internal/types"
)

// fakeIdentitySource mimics the session service's subscription surface
// with synchronous delivery.
type fakeIdentitySource struct {
	mu   sync.Mutex
	next uint64
	subs map[uint64]func(types.IdentityEvent)
}

func newFakeIdentitySource() *fakeIdentitySource {
	return &fakeIdentitySource{subs: map[uint64]func(types.IdentityEvent){}}
}

func (f *fakeIdentitySource) OnIdentityChange(handler func(types.IdentityEvent)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := f.next
	f.subs[id] = handler
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}

func (f *fakeIdentitySource) emit(event types.IdentityEvent) {
	f.mu.Lock()
	handlers := make([]func(types.IdentityEvent), 0, len(f.subs))
	for _, h := range f.subs {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()
	for _, h := range handlers {
		h(event)
	}
}

func (f *fakeIdentitySource) subscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func TestWatcherReEvaluatesOnSignOut(t *testing.T) {
	userID := uuid.New()
	profile := makeProfile(userID, []types.Role{types.RoleCustomer}, types.RoleCustomer, false, true)
	gs := newGuard(t, newFakeProfiles(profile))
	source := newFakeIdentitySource()

	var mu sync.Mutex
	var decisions []GuardDecision
	w := NewGuardWatcher(testLogger(t), source, gs, GuardSpec{AllowedRoles: []types.Role{types.RoleCustomer}}, func(d GuardDecision) {
		mu.Lock()
		decisions = append(decisions, d)
		mu.Unlock()
	})
	defer w.Close()

	w.Start(context.Background(), userID)

	mu.Lock()
	if len(decisions) != 1 || !decisions[0].Granted() {
		t.Fatalf("initial decision = %+v, want one grant", decisions)
	}
	mu.Unlock()

	// Sign-out in another tab: the granted view must flip to a denial.
	source.emit(types.IdentityEvent{Kind: types.IdentitySignedOut, UserID: userID})

	mu.Lock()
	defer mu.Unlock()
	if len(decisions) != 2 {
		t.Fatalf("got %d decisions, want 2", len(decisions))
	}
	last := decisions[1]
	if last.Granted() || last.Redirect != routes.SignIn {
		t.Fatalf("after sign-out got %+v, want sign-in denial", last)
	}
}

func TestWatcherIgnoresOtherUsersSignOut(t *testing.T) {
	userID := uuid.New()
	profile := makeProfile(userID, []types.Role{types.RoleCustomer}, types.RoleCustomer, false, true)
	gs := newGuard(t, newFakeProfiles(profile))
	source := newFakeIdentitySource()

	var mu sync.Mutex
	var decisions []GuardDecision
	w := NewGuardWatcher(testLogger(t), source, gs, GuardSpec{AllowedRoles: []types.Role{types.RoleCustomer}}, func(d GuardDecision) {
		mu.Lock()
		decisions = append(decisions, d)
		mu.Unlock()
	})
	defer w.Close()

	w.Start(context.Background(), userID)
	source.emit(types.IdentityEvent{Kind: types.IdentitySignedOut, UserID: uuid.New()})

	mu.Lock()
	defer mu.Unlock()
	last := decisions[len(decisions)-1]
	if !last.Granted() {
		t.Fatalf("someone else's sign-out must not deny this view, got %+v", last)
	}
}

func TestWatcherIgnoresOtherUsersSignIn(t *testing.T) {
	userA := uuid.New()
	userB := uuid.New()
	// A holds customer; B is a provider. If B's login leaked into A's
	// watcher, the customer view would flip to a provider denial.
	profiles := newFakeProfiles(
		makeProfile(userA, []types.Role{types.RoleCustomer}, types.RoleCustomer, false, true),
		makeProfile(userB, []types.Role{types.RoleProvider}, types.RoleProvider, true, true),
	)
	gs := newGuard(t, profiles)
	source := newFakeIdentitySource()

	var mu sync.Mutex
	var decisions []GuardDecision
	w := NewGuardWatcher(testLogger(t), source, gs, GuardSpec{AllowedRoles: []types.Role{types.RoleCustomer}}, func(d GuardDecision) {
		mu.Lock()
		decisions = append(decisions, d)
		mu.Unlock()
	})
	defer w.Close()

	w.Start(context.Background(), userA)
	source.emit(types.IdentityEvent{Kind: types.IdentitySignedIn, UserID: userB})

	mu.Lock()
	defer mu.Unlock()
	if len(decisions) != 1 {
		t.Fatalf("someone else's sign-in re-evaluated this view: %+v", decisions)
	}
	if !decisions[0].Granted() {
		t.Fatalf("initial decision = %+v, want granted", decisions[0])
	}
}

func TestWatcherAdoptsSignInAfterSignOut(t *testing.T) {
	userID := uuid.New()
	profile := makeProfile(userID, []types.Role{types.RoleCustomer}, types.RoleCustomer, false, true)
	gs := newGuard(t, newFakeProfiles(profile))
	source := newFakeIdentitySource()

	var mu sync.Mutex
	var decisions []GuardDecision
	w := NewGuardWatcher(testLogger(t), source, gs, GuardSpec{AllowedRoles: []types.Role{types.RoleCustomer}}, func(d GuardDecision) {
		mu.Lock()
		decisions = append(decisions, d)
		mu.Unlock()
	})
	defer w.Close()

	w.Start(context.Background(), userID)
	source.emit(types.IdentityEvent{Kind: types.IdentitySignedOut, UserID: userID})
	source.emit(types.IdentityEvent{Kind: types.IdentitySignedIn, UserID: userID})

	mu.Lock()
	defer mu.Unlock()
	if len(decisions) != 3 {
		t.Fatalf("got %d decisions, want grant, denial, grant", len(decisions))
	}
	if decisions[1].Granted() || !decisions[2].Granted() {
		t.Fatalf("decisions = %+v, want denial then re-grant", decisions[1:])
	}
}

func TestWatcherCloseUnsubscribesAndDropsStaleResults(t *testing.T) {
	userID := uuid.New()
	profile := makeProfile(userID, []types.Role{types.RoleCustomer}, types.RoleCustomer, false, true)
	gs := newGuard(t, newFakeProfiles(profile))
	source := newFakeIdentitySource()

	applied := 0
	w := NewGuardWatcher(testLogger(t), source, gs, GuardSpec{}, func(GuardDecision) {
		applied++
	})
	w.Start(context.Background(), userID)
	if source.subscriberCount() != 1 {
		t.Fatalf("subscribers = %d, want 1", source.subscriberCount())
	}

	w.Close()
	if source.subscriberCount() != 0 {
		t.Fatalf("Close must deregister the handler")
	}

	// A result computed for a closed view must be discarded.
	w.evaluate(context.Background(), userID, 99)
	if applied != 1 {
		t.Fatalf("applied = %d, want only the pre-close decision", applied)
	}

	// Closing twice is safe.
	w.Close()
}
