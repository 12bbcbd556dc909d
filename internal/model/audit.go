package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateSale   = "CREATE_SALE"
	ActionValidateSale = "VALIDATE_SALE"
	ActionCancelSale   = "CANCEL_SALE"
	ActionCreateUser   = "CREATE_USER"
)

// AuditLog tracks Who, What, and When for every sale transition
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // receipt number or username
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // buyer or display name
	Details    string     `gorm:"type:text" json:"details"`                       // JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
