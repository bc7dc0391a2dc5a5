package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive-backend/internal/platform/kvstore"
	"github.com/taskhive/taskhive-backend/internal/types"
)

func TestResolveDefaultsToCustomerWithoutProfile(t *testing.T) {
	rs := NewRoleService(testLogger(t), newFakeProfiles(), kvstore.NewMemory())

	role, isAdmin := rs.Resolve(context.Background(), uuid.New(), nil)
	if role != types.RoleCustomer {
		t.Fatalf("effective role = %q, want customer", role)
	}
	if isAdmin {
		t.Fatalf("isAdmin = true for missing profile")
	}
}

func TestResolveUsesActiveRoleForNonAdmins(t *testing.T) {
	userID := uuid.New()
	profile := makeProfile(userID, []types.Role{types.RoleCustomer, types.RoleProvider}, types.RoleProvider, true, true)
	rs := NewRoleService(testLogger(t), newFakeProfiles(profile), kvstore.NewMemory())

	role, isAdmin := rs.Resolve(context.Background(), userID, profile)
	if role != types.RoleProvider || isAdmin {
		t.Fatalf("got (%q, %v), want (provider, false)", role, isAdmin)
	}
}

func TestSwitchRoleRejectedForNonAdmin(t *testing.T) {
	userID := uuid.New()
	profile := makeProfile(userID, []types.Role{types.RoleCustomer}, types.RoleCustomer, false, false)
	rs := NewRoleService(testLogger(t), newFakeProfiles(profile), kvstore.NewMemory())

	if err := rs.SwitchRole(context.Background(), userID, types.RoleProvider); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("SwitchRole err = %v, want ErrNotAdmin", err)
	}
}

func TestAdminSwitchAndResetRole(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	profile := makeProfile(userID, []types.Role{types.RoleCustomer, types.RoleAdmin}, types.RoleAdmin, true, true)
	store := kvstore.NewMemory()
	rs := NewRoleService(testLogger(t), newFakeProfiles(profile), store)

	if role, _ := rs.Resolve(ctx, userID, profile); role != types.RoleAdmin {
		t.Fatalf("effective role before override = %q, want admin", role)
	}

	if err := rs.SwitchRole(ctx, userID, types.RoleProvider); err != nil {
		t.Fatalf("SwitchRole: %v", err)
	}
	// The override must be visible immediately after the switch.
	if role, isAdmin := rs.Resolve(ctx, userID, profile); role != types.RoleProvider || !isAdmin {
		t.Fatalf("after switch got (%q, %v), want (provider, true)", role, isAdmin)
	}

	// Switching twice is the same as switching once.
	if err := rs.SwitchRole(ctx, userID, types.RoleProvider); err != nil {
		t.Fatalf("SwitchRole repeat: %v", err)
	}
	if role, _ := rs.Resolve(ctx, userID, profile); role != types.RoleProvider {
		t.Fatalf("after repeated switch role = %q, want provider", role)
	}

	if err := rs.ResetRole(ctx, userID); err != nil {
		t.Fatalf("ResetRole: %v", err)
	}
	if role, _ := rs.Resolve(ctx, userID, profile); role != types.RoleAdmin {
		t.Fatalf("after reset role = %q, want admin", role)
	}

	// Reset with no override is a no-op.
	if err := rs.ResetRole(ctx, userID); err != nil {
		t.Fatalf("ResetRole again: %v", err)
	}
	if role, _ := rs.Resolve(ctx, userID, profile); role != types.RoleAdmin {
		t.Fatalf("after second reset role = %q, want admin", role)
	}
}

func TestOverrideSurvivesReload(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	profile := makeProfile(userID, []types.Role{types.RoleAdmin}, types.RoleAdmin, true, true)
	store := kvstore.NewMemory()

	first := NewRoleService(testLogger(t), newFakeProfiles(profile), store)
	if err := first.SwitchRole(ctx, userID, types.RoleCustomer); err != nil {
		t.Fatalf("SwitchRole: %v", err)
	}

	// A fresh service over the same store models a page reload.
	second := NewRoleService(testLogger(t), newFakeProfiles(profile), store)
	if role, _ := second.Resolve(ctx, userID, profile); role != types.RoleCustomer {
		t.Fatalf("after reload role = %q, want customer", role)
	}
}

func TestMalformedOverrideIgnored(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	profile := makeProfile(userID, []types.Role{types.RoleAdmin}, types.RoleAdmin, true, true)
	store := kvstore.NewMemory()
	if err := store.Set(ctx, overrideKey(userID), "superuser"); err != nil {
		t.Fatalf("seed override: %v", err)
	}
	rs := NewRoleService(testLogger(t), newFakeProfiles(profile), store)

	if role, _ := rs.Resolve(ctx, userID, profile); role != types.RoleAdmin {
		t.Fatalf("role = %q, want admin when override is malformed", role)
	}
}
