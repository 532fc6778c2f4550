package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ContractStatus represents the lifecycle status of a contract
type ContractStatus string

const (
	ContractActive     ContractStatus = "ACTIVE"
	ContractExpiring   ContractStatus = "EXPIRING"
	ContractExpired    ContractStatus = "EXPIRED"
	ContractTerminated ContractStatus = "TERMINATED"
)

// ExpiringWindowDays is the lead window within which a contract counts as EXPIRING.
const ExpiringWindowDays = 90

// Contract represents a contract owned by a company
type Contract struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CompanyID    uuid.UUID `json:"companyId" gorm:"type:uuid;not null;index"`
	Title        string    `json:"title" gorm:"type:varchar(500);not null"`
	Counterparty string    `json:"counterparty" gorm:"type:varchar(255);not null"`

	StartDate *time.Time `json:"startDate"`
	EndDate   time.Time  `json:"endDate" gorm:"not null;index"`

	// Exactly zero or one of the termination fields is authoritative at a
	// time; writing TerminationNoticeDays clears TerminationDeadlineDate.
	TerminationNoticeDays   *int       `json:"terminationNoticeDays"`
	TerminationDeadlineDate *time.Time `json:"terminationDeadlineDate"`

	// Status is derived on every write, never set independently.
	// TERMINATED is only reachable through an explicit manual override.
	Status ContractStatus `json:"status" gorm:"type:varchar(20);not null;default:'ACTIVE';index"`

	ContractTypeID *uuid.UUID `json:"contractTypeId" gorm:"type:uuid;index"`
	ContactID      *uuid.UUID `json:"contactId" gorm:"type:uuid;index"`

	// Opaque blob handle plus metadata for the attached document.
	FileKey         string `json:"fileKey" gorm:"type:varchar(1024)"`
	FileName        string `json:"fileName" gorm:"type:varchar(512)"`
	FileSize        int64  `json:"fileSize"`
	FileContentType string `json:"fileContentType" gorm:"type:varchar(255)"`

	Notes    string         `json:"notes" gorm:"type:text"`
	Metadata datatypes.JSON `json:"metadata" gorm:"type:jsonb"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Contract) TableName() string {
	return "contracts"
}

// dateOf truncates a timestamp to its calendar date.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysUntilEnd returns the signed number of whole days from now until the
// end date, negative if the end date is in the past.
func (c *Contract) DaysUntilEnd(now time.Time) int {
	return int(dateOf(c.EndDate).Sub(dateOf(now)).Hours() / 24)
}

// ComputeStatus derives the lifecycle status from the contract dates.
// EXPIRED if the end date is in the past, EXPIRING if it falls within the
// next ExpiringWindowDays days, else ACTIVE. TERMINATED is never assigned
// here.
func (c *Contract) ComputeStatus(now time.Time) ContractStatus {
	days := c.DaysUntilEnd(now)
	switch {
	case days < 0:
		return ContractExpired
	case days <= ExpiringWindowDays:
		return ContractExpiring
	default:
		return ContractActive
	}
}

// TerminationDeadline returns the effective termination deadline: the
// explicit deadline date if set, else end date minus the notice lead time,
// else nil.
func (c *Contract) TerminationDeadline() *time.Time {
	if c.TerminationDeadlineDate != nil {
		d := dateOf(*c.TerminationDeadlineDate)
		return &d
	}
	if c.TerminationNoticeDays != nil {
		d := dateOf(c.EndDate).AddDate(0, 0, -*c.TerminationNoticeDays)
		return &d
	}
	return nil
}

// HasDocument reports whether a blob is attached.
func (c *Contract) HasDocument() bool {
	return c.FileKey != ""
}
