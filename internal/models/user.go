package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole is a closed enumeration of user roles.
type UserRole string

const (
	RoleSuperadmin   UserRole = "SUPERADMIN"
	RoleCompanyAdmin UserRole = "COMPANY_ADMIN"
	RoleMember       UserRole = "MEMBER"
)

// User represents an account. CompanyID is nil only for the superadmin
// role; superadmins are exempt from tenant scoping and cannot own contracts.
type User struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CompanyID *uuid.UUID `json:"companyId" gorm:"type:uuid;index"`
	Email     string     `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	Name      string     `json:"name" gorm:"type:varchar(255);not null"`
	Role      UserRole   `json:"role" gorm:"type:varchar(20);not null;default:'MEMBER'"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

// IsSuperadmin reports whether the user sees all tenants unfiltered.
func (u *User) IsSuperadmin() bool {
	return u.Role == RoleSuperadmin
}
