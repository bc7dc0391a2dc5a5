package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive-backend/internal/platform/kvstore"
	"github.com/taskhive/taskhive-backend/internal/platform/logger"
	"github.com/taskhive/taskhive-backend/internal/types"
)

// RoleService computes the effective role the UI operates under. For
// ordinary identities that is the profile's active role; admins may
// override it through the persisted view-as state.
type RoleService interface {
	// Resolve derives (effective role, isAdminIdentity) from a profile,
	// which may be nil when none exists yet. A missing profile resolves
	// to customer: the product prefers access over lockout.
	Resolve(ctx context.Context, userID uuid.UUID, profile *types.Profile) (types.Role, bool)
	// EffectiveRole loads the profile itself and resolves.
	EffectiveRole(ctx context.Context, userID uuid.UUID) (types.Role, bool, error)
	// SwitchRole persists the admin view-as override. ErrNotAdmin for
	// everyone else; ordinary users change roles via their profile.
	SwitchRole(ctx context.Context, userID uuid.UUID, role types.Role) error
	// ResetRole clears the override. A no-op when none is set.
	ResetRole(ctx context.Context, userID uuid.UUID) error
}

type roleService struct {
	log       *logger.Logger
	profiles  ProfileSource
	overrides kvstore.Store

	// local view of overrides written by this instance; kept in sync
	// with the store inside the same call so a resolve immediately after
	// a switch can never observe the pre-switch role.
	mu    sync.RWMutex
	local map[uuid.UUID]string
}

func NewRoleService(log *logger.Logger, profiles ProfileSource, overrides kvstore.Store) RoleService {
	return &roleService{
		log:       log.With("service", "RoleService"),
		profiles:  profiles,
		overrides: overrides,
		local:     map[uuid.UUID]string{},
	}
}

func overrideKey(userID uuid.UUID) string {
	return "role_override:" + userID.String()
}

func (rs *roleService) Resolve(ctx context.Context, userID uuid.UUID, profile *types.Profile) (types.Role, bool) {
	if profile == nil {
		return types.RoleCustomer, false
	}
	isAdmin := profile.HasRole(types.RoleAdmin)
	if !isAdmin {
		return profile.EffectiveActiveRole(), false
	}
	if override, ok := rs.readOverride(ctx, userID); ok {
		return override, true
	}
	return types.RoleAdmin, true
}

func (rs *roleService) EffectiveRole(ctx context.Context, userID uuid.UUID) (types.Role, bool, error) {
	profile, err := rs.profiles.GetByUserID(ctx, nil, userID)
	if err != nil {
		rs.log.Warn("Profile read failed during role resolution", "user_id", userID, "error", err)
		return types.RoleCustomer, false, err
	}
	role, isAdmin := rs.Resolve(ctx, userID, profile)
	return role, isAdmin, nil
}

func (rs *roleService) SwitchRole(ctx context.Context, userID uuid.UUID, role types.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if err := rs.requireAdmin(ctx, userID); err != nil {
		return err
	}
	if err := rs.overrides.Set(ctx, overrideKey(userID), string(role)); err != nil {
		return fmt.Errorf("persist role override: %w", err)
	}
	rs.mu.Lock()
	rs.local[userID] = string(role)
	rs.mu.Unlock()
	rs.log.Info("Admin view-as override set", "user_id", userID, "role", role)
	return nil
}

func (rs *roleService) ResetRole(ctx context.Context, userID uuid.UUID) error {
	if err := rs.requireAdmin(ctx, userID); err != nil {
		return err
	}
	if err := rs.overrides.Delete(ctx, overrideKey(userID)); err != nil {
		return fmt.Errorf("clear role override: %w", err)
	}
	rs.mu.Lock()
	delete(rs.local, userID)
	rs.mu.Unlock()
	return nil
}

func (rs *roleService) requireAdmin(ctx context.Context, userID uuid.UUID) error {
	profile, err := rs.profiles.GetByUserID(ctx, nil, userID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if profile == nil || !profile.HasRole(types.RoleAdmin) {
		return ErrNotAdmin
	}
	return nil
}

// readOverride prefers the persisted store; a store failure falls back
// to this instance's own last write rather than silently dropping the
// override.
func (rs *roleService) readOverride(ctx context.Context, userID uuid.UUID) (types.Role, bool) {
	raw, ok, err := rs.overrides.Get(ctx, overrideKey(userID))
	if err != nil {
		rs.log.Warn("Override read failed, using local view", "user_id", userID, "error", err)
		rs.mu.RLock()
		raw, ok = rs.local[userID], false
		if raw != "" {
			ok = true
		}
		rs.mu.RUnlock()
	}
	if !ok {
		return "", false
	}
	role, perr := types.ParseRole(raw)
	if perr != nil {
		rs.log.Warn("Ignoring malformed role override", "user_id", userID, "value", raw)
		return "", false
	}
	rs.mu.Lock()
	rs.local[userID] = raw
	rs.mu.Unlock()
	return role, true
}
