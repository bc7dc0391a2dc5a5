package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Profile is the application-owned record of role(s) and onboarding state
// for one user. Roles keep insertion order: the order a user acquired them.
type Profile struct {
	ID                    uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID                uuid.UUID      `gorm:"type:uuid;uniqueIndex;not null;column:user_id" json:"user_id"`
	Roles                 datatypes.JSON `gorm:"not null;column:roles" json:"roles"`
	ActiveRole            Role           `gorm:"not null;column:active_role" json:"active_role"`
	ProfileCompleted      bool           `gorm:"not null;default:false;column:profile_completed" json:"profile_completed"`
	BasicProfileCompleted bool           `gorm:"not null;default:false;column:basic_profile_completed" json:"basic_profile_completed"`
	Phone                 string         `gorm:"column:phone" json:"phone,omitempty"`
	Language              string         `gorm:"column:language" json:"language,omitempty"`
	Interests             datatypes.JSON `gorm:"column:interests" json:"interests"`
	Skills                datatypes.JSON `gorm:"column:skills" json:"skills"`
	DocumentType          string         `gorm:"column:document_type" json:"-"`
	DocumentRef           string         `gorm:"column:document_ref" json:"-"`
	CreatedAt             time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"not null" json:"updated_at"`
}

func (Profile) TableName() string {
	return "profile"
}

// NewDefaultProfile is what every identity gets right after its first
// successful authentication.
func NewDefaultProfile(userID uuid.UUID) *Profile {
	return &Profile{
		ID:         uuid.New(),
		UserID:     userID,
		Roles:      MarshalRoles([]Role{RoleCustomer}),
		ActiveRole: RoleCustomer,
	}
}

func MarshalRoles(roles []Role) datatypes.JSON {
	raw, err := json.Marshal(roles)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(raw)
}

// RoleList decodes the stored role set, preserving acquisition order.
// A malformed or empty column decodes to no roles.
func (p *Profile) RoleList() []Role {
	if p == nil || len(p.Roles) == 0 {
		return nil
	}
	var roles []Role
	if err := json.Unmarshal(p.Roles, &roles); err != nil {
		return nil
	}
	return roles
}

func (p *Profile) HasRole(role Role) bool {
	for _, r := range p.RoleList() {
		if r == role {
			return true
		}
	}
	return false
}

// AddRole appends a role the profile does not hold yet. Reports whether
// the set changed.
func (p *Profile) AddRole(role Role) bool {
	if p.HasRole(role) {
		return false
	}
	p.Roles = MarshalRoles(append(p.RoleList(), role))
	return true
}

// EffectiveActiveRole is the stored active role, defaulted to customer
// when unset or no longer held.
func (p *Profile) EffectiveActiveRole() Role {
	if p == nil {
		return RoleCustomer
	}
	if p.ActiveRole.Valid() && (p.HasRole(p.ActiveRole) || len(p.RoleList()) == 0) {
		return p.ActiveRole
	}
	return RoleCustomer
}
