package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskhive/taskhive-backend/internal/types"
)

// ProfileSource is the read surface the resolver, evaluator and guard
// chain need from the profile store. repos.ProfileRepo satisfies it;
// tests substitute stubs.
type ProfileSource interface {
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Profile, error)
}
