package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskhive/taskhive-backend/internal/platform/logger"
	"github.com/taskhive/taskhive-backend/internal/types"
)

type ProfileRepo interface {
	Create(ctx context.Context, tx *gorm.DB, profiles []*types.Profile) ([]*types.Profile, error)
	GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.Profile, error)
	// GetByUserID returns (nil, nil) when no profile exists for the user.
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Profile, error)
	Update(ctx context.Context, tx *gorm.DB, profile *types.Profile) error
	UpdateFields(ctx context.Context, tx *gorm.DB, userID uuid.UUID, fields map[string]interface{}) error
	// EnsureForUser creates the default profile if the user has none yet
	// and returns the current row either way.
	EnsureForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Profile, error)
}

type profileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
	return &profileRepo{db: db, log: baseLog.With("repo", "ProfileRepo")}
}

func (pr *profileRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return pr.db
}

func (pr *profileRepo) Create(ctx context.Context, tx *gorm.DB, profiles []*types.Profile) ([]*types.Profile, error) {
	if len(profiles) == 0 {
		return []*types.Profile{}, nil
	}
	if err := pr.conn(tx).WithContext(ctx).Create(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (pr *profileRepo) GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.Profile, error) {
	var results []*types.Profile
	if len(userIDs) == 0 {
		return results, nil
	}
	if err := pr.conn(tx).WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *profileRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Profile, error) {
	var result types.Profile
	err := pr.conn(tx).WithContext(ctx).
		Where("user_id = ?", userID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (pr *profileRepo) Update(ctx context.Context, tx *gorm.DB, profile *types.Profile) error {
	return pr.conn(tx).WithContext(ctx).Save(profile).Error
}

func (pr *profileRepo) UpdateFields(ctx context.Context, tx *gorm.DB, userID uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return pr.conn(tx).WithContext(ctx).
		Model(&types.Profile{}).
		Where("user_id = ?", userID).
		Updates(fields).Error
}

func (pr *profileRepo) EnsureForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Profile, error) {
	existing, err := pr.GetByUserID(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	created := types.NewDefaultProfile(userID)
	if _, err := pr.Create(ctx, tx, []*types.Profile{created}); err != nil {
		return nil, err
	}
	pr.log.Info("Created default profile", "user_id", userID)
	return created, nil
}
