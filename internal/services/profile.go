package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/taskhive/taskhive-backend/internal/platform/logger"
	"github.com/taskhive/taskhive-backend/internal/repos"
	"github.com/taskhive/taskhive-backend/internal/types"
)

// ProviderBasicInfo is phase 1 of provider onboarding: contact info,
// language, and the provider's skill set.
type ProviderBasicInfo struct {
	Phone    string   `json:"phone"`
	Language string   `json:"language"`
	Skills   []string `json:"skills"`
}

// ProviderVerification is phase 2: document verification.
type ProviderVerification struct {
	DocumentType string `json:"document_type"`
	DocumentRef  string `json:"document_ref"`
}

// ProfileService owns every ordinary mutation of the profile record.
// Role switching here changes active_role on the profile itself; the
// admin view-as override is RoleService territory.
type ProfileService interface {
	GetForUser(ctx context.Context, userID uuid.UUID) (*types.Profile, error)
	SubmitProviderBasicInfo(ctx context.Context, userID uuid.UUID, info ProviderBasicInfo) (*types.Profile, error)
	SubmitProviderVerification(ctx context.Context, userID uuid.UUID, verification ProviderVerification) (*types.Profile, error)
	SubmitCustomerInterests(ctx context.Context, userID uuid.UUID, interests []string) (*types.Profile, error)
	AddRole(ctx context.Context, userID uuid.UUID, role types.Role) (*types.Profile, error)
	SwitchActiveRole(ctx context.Context, userID uuid.UUID, role types.Role) (*types.Profile, error)
}

type profileService struct {
	db          *gorm.DB
	log         *logger.Logger
	profileRepo repos.ProfileRepo
}

func NewProfileService(db *gorm.DB, log *logger.Logger, profileRepo repos.ProfileRepo) ProfileService {
	return &profileService{
		db:          db,
		log:         log.With("service", "ProfileService"),
		profileRepo: profileRepo,
	}
}

func (ps *profileService) GetForUser(ctx context.Context, userID uuid.UUID) (*types.Profile, error) {
	return ps.profileRepo.EnsureForUser(ctx, nil, userID)
}

func (ps *profileService) SubmitProviderBasicInfo(ctx context.Context, userID uuid.UUID, info ProviderBasicInfo) (*types.Profile, error) {
	if strings.TrimSpace(info.Phone) == "" || strings.TrimSpace(info.Language) == "" {
		return nil, fmt.Errorf("phone and language are required")
	}
	if len(info.Skills) == 0 {
		return nil, fmt.Errorf("at least one skill is required")
	}
	var out *types.Profile
	err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := ps.profileRepo.EnsureForUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !profile.HasRole(types.RoleProvider) {
			return fmt.Errorf("%w: %s", ErrRoleNotHeld, types.RoleProvider)
		}
		profile.Phone = strings.TrimSpace(info.Phone)
		profile.Language = strings.TrimSpace(info.Language)
		profile.Skills = marshalStrings(info.Skills)
		profile.BasicProfileCompleted = true
		if err := ps.profileRepo.Update(ctx, tx, profile); err != nil {
			return fmt.Errorf("save basic info: %w", err)
		}
		out = profile
		return nil
	})
	return out, err
}

func (ps *profileService) SubmitProviderVerification(ctx context.Context, userID uuid.UUID, verification ProviderVerification) (*types.Profile, error) {
	if strings.TrimSpace(verification.DocumentRef) == "" {
		return nil, fmt.Errorf("verification document is required")
	}
	var out *types.Profile
	err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := ps.profileRepo.EnsureForUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !profile.HasRole(types.RoleProvider) {
			return fmt.Errorf("%w: %s", ErrRoleNotHeld, types.RoleProvider)
		}
		// Phase order is a hard dependency: verification cannot complete
		// a profile whose basic info was never filled.
		if !profile.BasicProfileCompleted {
			return fmt.Errorf("basic profile must be completed first")
		}
		profile.DocumentType = verification.DocumentType
		profile.DocumentRef = verification.DocumentRef
		profile.ProfileCompleted = true
		if err := ps.profileRepo.Update(ctx, tx, profile); err != nil {
			return fmt.Errorf("save verification: %w", err)
		}
		out = profile
		return nil
	})
	return out, err
}

func (ps *profileService) SubmitCustomerInterests(ctx context.Context, userID uuid.UUID, interests []string) (*types.Profile, error) {
	if len(interests) == 0 {
		return nil, fmt.Errorf("at least one interest is required")
	}
	var out *types.Profile
	err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := ps.profileRepo.EnsureForUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		profile.Interests = marshalStrings(interests)
		profile.ProfileCompleted = true
		if err := ps.profileRepo.Update(ctx, tx, profile); err != nil {
			return fmt.Errorf("save interests: %w", err)
		}
		out = profile
		return nil
	})
	return out, err
}

func (ps *profileService) AddRole(ctx context.Context, userID uuid.UUID, role types.Role) (*types.Profile, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	// Admin is granted operationally, never self-service.
	if role == types.RoleAdmin {
		return nil, fmt.Errorf("%w: admin cannot be self-assigned", ErrInvalidRole)
	}
	var out *types.Profile
	err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := ps.profileRepo.EnsureForUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !profile.AddRole(role) {
			out = profile
			return nil
		}
		// Acquiring the provider role restarts that flow's onboarding:
		// both phases are tracked by the completion flags.
		if role == types.RoleProvider {
			profile.BasicProfileCompleted = false
			profile.ProfileCompleted = false
		}
		if err := ps.profileRepo.Update(ctx, tx, profile); err != nil {
			return fmt.Errorf("save role: %w", err)
		}
		ps.log.Info("Role added to profile", "user_id", userID, "role", role)
		out = profile
		return nil
	})
	return out, err
}

func (ps *profileService) SwitchActiveRole(ctx context.Context, userID uuid.UUID, role types.Role) (*types.Profile, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	var out *types.Profile
	err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := ps.profileRepo.EnsureForUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		// active_role must stay inside the held role set.
		if !profile.HasRole(role) {
			return fmt.Errorf("%w: %s", ErrRoleNotHeld, role)
		}
		profile.ActiveRole = role
		if err := ps.profileRepo.Update(ctx, tx, profile); err != nil {
			return fmt.Errorf("save active role: %w", err)
		}
		out = profile
		return nil
	})
	return out, err
}

func marshalStrings(values []string) datatypes.JSON {
	raw, err := json.Marshal(values)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(raw)
}
