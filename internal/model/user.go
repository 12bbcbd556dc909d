package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role values accepted by the users.role CHECK constraint
const (
	RoleAdmin      = "admin"
	RoleAgent      = "agent"
	RoleController = "controller"
)

// ValidRole reports whether role is one of the three known roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleAgent || role == RoleController
}

// User is a front-desk agent, a controller or an administrator.
// Name is the display name shown next to the sales a user created or validated.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username  string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Password  string    `gorm:"type:varchar(255);not null" json:"-"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Role      string    `gorm:"type:varchar(20);not null;check:role IN ('admin', 'agent', 'controller')" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
