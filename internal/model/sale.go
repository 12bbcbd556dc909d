package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SaleStatus values accepted by the sales.status CHECK constraint
type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusValidated SaleStatus = "validated"
	SaleStatusCancelled SaleStatus = "cancelled"
)

func (s SaleStatus) Valid() bool {
	return s == SaleStatusPending || s == SaleStatusValidated || s == SaleStatusCancelled
}

// Grade is the buyer's rank category
type Grade string

const (
	GradeGP           Grade = "GP"
	GradeSousOfficier Grade = "Sous officier"
	GradeOfficier     Grade = "Officier"
	GradeInspecteur   Grade = "Inspecteur"
	GradeCommissaire  Grade = "Commissaire"
)

// Grades lists every grade in display order.
var Grades = []Grade{GradeGP, GradeSousOfficier, GradeOfficier, GradeInspecteur, GradeCommissaire}

func (g Grade) Valid() bool {
	for _, known := range Grades {
		if g == known {
			return true
		}
	}
	return false
}

// CancellationReason is why an agent withdrew a pending sale
type CancellationReason string

const (
	ReasonStockUnavailable CancellationReason = "stock_unavailable"
	ReasonNotEligible      CancellationReason = "not_eligible"
	ReasonOther            CancellationReason = "other"
)

func (r CancellationReason) Valid() bool {
	return r == ReasonStockUnavailable || r == ReasonNotEligible || r == ReasonOther
}

// Sale is the persisted receipt row. The validation and cancellation column
// groups are written only by the matching conditional update, so at most one
// group is ever non-null. Use State for a typed view of the lifecycle.
type Sale struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ReceiptNumber string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"receipt_number"`
	AgentID       uuid.UUID `gorm:"type:uuid;not null;index" json:"agent_id"`
	Agent         *User     `gorm:"foreignKey:AgentID" json:"agent,omitempty"`

	BuyerLastName  string `gorm:"type:varchar(255);not null" json:"buyer_last_name"`
	BuyerFirstName string `gorm:"type:varchar(255);not null" json:"buyer_first_name"`
	BuyerMatricule string `gorm:"type:varchar(100);not null;index" json:"buyer_matricule"`
	BuyerGrade     Grade  `gorm:"type:varchar(30);not null;check:buyer_grade IN ('GP', 'Sous officier', 'Officier', 'Inspecteur', 'Commissaire')" json:"buyer_grade"`

	TotalAmount int64      `gorm:"not null" json:"total_amount"`
	Status      SaleStatus `gorm:"type:varchar(20);not null;default:'pending';index;check:status IN ('pending', 'validated', 'cancelled')" json:"status"`

	ValidatedBy *uuid.UUID `gorm:"type:uuid" json:"validated_by"`
	Validator   *User      `gorm:"foreignKey:ValidatedBy" json:"validator,omitempty"`
	ValidatedAt *time.Time `json:"validated_at"`

	CancelledBy        *uuid.UUID          `gorm:"type:uuid" json:"cancelled_by"`
	Canceller          *User               `gorm:"foreignKey:CancelledBy" json:"canceller,omitempty"`
	CancelledAt        *time.Time          `json:"cancelled_at"`
	CancellationReason *CancellationReason `gorm:"type:varchar(30);check:cancellation_reason IN ('stock_unavailable', 'not_eligible', 'other')" json:"cancellation_reason"`
	CancellationNote   *string             `gorm:"type:text" json:"cancellation_note"`

	Items     []SaleItem `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}

func (s *Sale) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SaleItem is one product line, priced at the moment of sale.
type SaleItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SaleID    uuid.UUID `gorm:"type:uuid;not null;index" json:"sale_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	Product   *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  int       `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice int64     `gorm:"not null" json:"unit_price"`
	LineTotal int64     `gorm:"not null" json:"line_total"`
}

func (i *SaleItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// SaleState is the closed set of lifecycle states: Pending, Validated or Cancelled.
type SaleState interface {
	Status() SaleStatus
	sealed()
}

type Pending struct{}

type Validated struct {
	By uuid.UUID
	At time.Time
}

type Cancelled struct {
	By     uuid.UUID
	At     time.Time
	Reason CancellationReason
	Note   string
}

func (Pending) Status() SaleStatus   { return SaleStatusPending }
func (Validated) Status() SaleStatus { return SaleStatusValidated }
func (Cancelled) Status() SaleStatus { return SaleStatusCancelled }

func (Pending) sealed()   {}
func (Validated) sealed() {}
func (Cancelled) sealed() {}

// State projects the nullable audit columns onto the matching variant.
func (s Sale) State() SaleState {
	switch s.Status {
	case SaleStatusValidated:
		v := Validated{}
		if s.ValidatedBy != nil {
			v.By = *s.ValidatedBy
		}
		if s.ValidatedAt != nil {
			v.At = *s.ValidatedAt
		}
		return v
	case SaleStatusCancelled:
		c := Cancelled{}
		if s.CancelledBy != nil {
			c.By = *s.CancelledBy
		}
		if s.CancelledAt != nil {
			c.At = *s.CancelledAt
		}
		if s.CancellationReason != nil {
			c.Reason = *s.CancellationReason
		}
		if s.CancellationNote != nil {
			c.Note = *s.CancellationNote
		}
		return c
	default:
		return Pending{}
	}
}
