package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive-backend/internal/platform/kvstore"
	"github.com/taskhive/taskhive-backend/internal/routes"
	"github.com/taskhive/taskhive-backend/internal/types"
)

func newGuard(t *testing.T, profiles *fakeProfiles) GuardService {
	t.Helper()
	log := testLogger(t)
	roles := NewRoleService(log, profiles, kvstore.NewMemory())
	return NewGuardService(log, profiles, roles, NewCompletionService())
}

func TestGuardAnonymousRedirectsToSignIn(t *testing.T) {
	gs := newGuard(t, newFakeProfiles())
	spec := GuardSpec{AllowedRoles: []types.Role{types.RoleCustomer}}

	// Re-evaluating must keep producing the same single redirect, not a
	// loop of different targets.
	for i := 0; i < 3; i++ {
		dec := gs.Evaluate(context.Background(), uuid.Nil, spec)
		if dec.State != GuardDeniedRedirect || dec.Redirect != routes.SignIn {
			t.Fatalf("eval %d: got %+v, want sign-in redirect", i, dec)
		}
		if !dec.ReplaceHistory {
			t.Fatalf("sign-in redirect must replace history")
		}
	}
}

func TestGuardRoleDenialRedirectsToOwnDashboard(t *testing.T) {
	userID := uuid.New()
	profile := makeProfile(userID, []types.Role{types.RoleCustomer}, types.RoleCustomer, false, true)
	gs := newGuard(t, newFakeProfiles(profile))

	dec := gs.Evaluate(context.Background(), userID, GuardSpec{AllowedRoles: []types.Role{types.RoleProvider}})
	if dec.State != GuardDeniedRedirect || dec.Redirect != routes.CustomerDashboard {
		t.Fatalf("got %+v, want redirect to customer dashboard", dec)
	}
	if dec.Notice == nil || dec.Notice.Kind != NoticeAccessDenied {
		t.Fatalf("notice = %+v, want access denied", dec.Notice)
	}
}

func TestGuardInactiveRoleSuggestsSwitch(t *testing.T) {
	userID := uuid.New()
	profile := makeProfile(userID, []types.Role{types.RoleCustomer, types.RoleProvider}, types.RoleCustomer, true, true)
	gs := newGuard(t, newFakeProfiles(profile))

	dec := gs.Evaluate(context.Background(), userID, GuardSpec{AllowedRoles: []types.Role{types.RoleProvider}})
	if dec.State != GuardDeniedRedirect || dec.Redirect != routes.CustomerDashboard {
		t.Fatalf("got %+v, want redirect to customer dashboard", dec)
	}
	if dec.Notice == nil || dec.Notice.Kind != NoticeRoleSwitch {
		t.Fatalf("notice = %+v, want role switch suggestion", dec.Notice)
	}
}

func TestGuardProviderDeniedOnCustomerRoute(t *testing.T) {
	userID := uuid.New()
	profile := makeProfile(userID, []types.Role{types.RoleProvider}, types.RoleProvider, true, true)
	gs := newGuard(t, newFakeProfiles(profile))

	dec := gs.Evaluate(context.Background(), userID, GuardSpec{AllowedRoles: []types.Role{types.RoleCustomer}})
	if dec.Redirect != routes.ProviderDashboard {
		t.Fatalf("redirect = %q, want provider dashboard", dec.Redirect)
	}
}

func TestGuardAdminDeniedOnRoleRouteGoesToConsole(t *testing.T) {
	userID := uuid.New()
	profile := makeProfile(userID, []types.Role{types.RoleAdmin}, types.RoleAdmin, true, true)
	gs := newGuard(t, newFakeProfiles(profile))

	dec := gs.Evaluate(context.Background(), userID, GuardSpec{AllowedRoles: []types.Role{types.RoleCustomer}})
	if dec.State != GuardDeniedRedirect || dec.Redirect != routes.AdminDashboard {
		t.Fatalf("got %+v, want redirect to the admin console", dec)
	}
	// The target must grant this identity, or the denial would bounce
	// between role-gated routes forever.
	if follow := gs.Evaluate(context.Background(), userID, GuardSpec{AdminOnly: true}); !follow.Granted() {
		t.Fatalf("redirect target denied the same identity: %+v", follow)
	}
}

func TestGuardAdminDenialIsSilent(t *testing.T) {
	userID := uuid.New()
	profile := makeProfile(userID, []types.Role{types.RoleCustomer}, types.RoleCustomer, false, true)
	gs := newGuard(t, newFakeProfiles(profile))

	dec := gs.Evaluate(context.Background(), userID, GuardSpec{AdminOnly: true})
	if dec.State != GuardDeniedRedirect || dec.Redirect != routes.Home {
		t.Fatalf("got %+v, want silent redirect home", dec)
	}
	if dec.Notice != nil {
		t.Fatalf("admin denial must not carry a notice, got %+v", dec.Notice)
	}
}

func TestGuardAdminGranted(t *testing.T) {
	userID := uuid.New()
	profile := makeProfile(userID, []types.Role{types.RoleCustomer, types.RoleAdmin}, types.RoleCustomer, false, false)
	profiles := newFakeProfiles(profile)
	gs := newGuard(t, profiles)

	dec := gs.Evaluate(context.Background(), userID, GuardSpec{AdminOnly: true})
	if !dec.Granted() {
		t.Fatalf("got %+v, want granted", dec)
	}
	// The admin policy must hit the role table itself, not any cache.
	if profiles.readCount() == 0 {
		t.Fatalf("admin check never read the profile store")
	}
}

func TestGuardMissingProfileFailsOpen(t *testing.T) {
	userID := uuid.New()
	gs := newGuard(t, newFakeProfiles())

	dec := gs.Evaluate(context.Background(), userID, GuardSpec{
		AllowedRoles: []types.Role{types.RoleProvider},
		Completion:   CompletionHard,
	})
	if !dec.Granted() {
		t.Fatalf("got %+v, want grant for missing profile", dec)
	}
}

func TestGuardMissingIdentityStillDenied(t *testing.T) {
	// Absent profile fails open, absent identity fails closed. The two
	// must not be conflated.
	gs := newGuard(t, newFakeProfiles())
	dec := gs.Evaluate(context.Background(), uuid.Nil, GuardSpec{AllowedRoles: []types.Role{types.RoleProvider}})
	if dec.Granted() || dec.Redirect != routes.SignIn {
		t.Fatalf("got %+v, want sign-in denial", dec)
	}
}

func TestGuardBackendErrorFailModes(t *testing.T) {
	userID := uuid.New()
	profiles := newFakeProfiles()
	profiles.err = errors.New("backend down")
	gs := newGuard(t, profiles)

	// Role and completion checks fail open.
	dec := gs.Evaluate(context.Background(), userID, GuardSpec{
		AllowedRoles: []types.Role{types.RoleProvider},
		Completion:   CompletionHard,
	})
	if !dec.Granted() {
		t.Fatalf("role/completion checks must fail open, got %+v", dec)
	}

	// The admin check fails closed.
	dec = gs.Evaluate(context.Background(), userID, GuardSpec{AdminOnly: true})
	if dec.Granted() || dec.Redirect != routes.Home {
		t.Fatalf("admin check must fail closed, got %+v", dec)
	}
}

func TestGuardSoftGateGrantsWithPrompt(t *testing.T) {
	userID := uuid.New()
	profile := makeProfile(userID, []types.Role{types.RoleCustomer}, types.RoleCustomer, false, false)
	gs := newGuard(t, newFakeProfiles(profile))

	dec := gs.Evaluate(context.Background(), userID, GuardSpec{
		AllowedRoles: []types.Role{types.RoleCustomer},
		Completion:   CompletionSoft,
	})
	if !dec.Granted() {
		t.Fatalf("soft gate must grant, got %+v", dec)
	}
	if dec.OnboardingPath != routes.OnboardingCustomer {
		t.Fatalf("onboarding path = %q, want customer onboarding", dec.OnboardingPath)
	}
}

func TestGuardHardGateRedirectsToOnboarding(t *testing.T) {
	userID := uuid.New()
	profile := makeProfile(userID, []types.Role{types.RoleProvider}, types.RoleProvider, false, false)
	gs := newGuard(t, newFakeProfiles(profile))

	dec := gs.Evaluate(context.Background(), userID, GuardSpec{
		AllowedRoles: []types.Role{types.RoleProvider},
		Completion:   CompletionHard,
	})
	if dec.State != GuardDeniedRedirect || dec.Redirect != routes.OnboardingProviderBasic {
		t.Fatalf("got %+v, want redirect to phase-1 onboarding", dec)
	}
}

func TestGuardRoleCheckShortCircuitsCompletion(t *testing.T) {
	// A denied role check must leave the completion policy untouched:
	// the denial redirect wins, not an onboarding redirect.
	userID := uuid.New()
	profile := makeProfile(userID, []types.Role{types.RoleCustomer}, types.RoleCustomer, false, false)
	gs := newGuard(t, newFakeProfiles(profile))

	dec := gs.Evaluate(context.Background(), userID, GuardSpec{
		AllowedRoles: []types.Role{types.RoleProvider},
		Completion:   CompletionHard,
	})
	if dec.Redirect != routes.CustomerDashboard {
		t.Fatalf("redirect = %q, want the role denial target", dec.Redirect)
	}
}

func TestGuardAdminOverrideChangesOutcome(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	profile := makeProfile(userID, []types.Role{types.RoleAdmin}, types.RoleAdmin, true, true)
	profiles := newFakeProfiles(profile)
	log := testLogger(t)
	roles := NewRoleService(log, profiles, kvstore.NewMemory())
	gs := NewGuardService(log, profiles, roles, NewCompletionService())

	spec := GuardSpec{AllowedRoles: []types.Role{types.RoleCustomer}}
	if dec := gs.Evaluate(ctx, userID, spec); dec.Granted() {
		t.Fatalf("admin without override must not pass a customer-only gate")
	}

	if err := roles.SwitchRole(ctx, userID, types.RoleCustomer); err != nil {
		t.Fatalf("SwitchRole: %v", err)
	}
	if dec := gs.Evaluate(ctx, userID, spec); !dec.Granted() {
		t.Fatalf("admin viewing as customer must pass the customer gate, got %+v", dec)
	}
}
