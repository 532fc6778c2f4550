// Package tenant carries the explicit tenant context threaded through every
// persistence call. Omitting the company filter on a tenant-owned table is a
// silent cross-tenant leak, so scoping is enforced here, centrally, instead
// of per query.
package tenant

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"contract-service/internal/models"
)

// Context identifies the actor a persistence call runs on behalf of.
// The zero value scopes to no company at all and matches nothing.
type Context struct {
	UserID    uuid.UUID
	CompanyID *uuid.UUID
	Role      models.UserRole

	// Privileged marks system actors (the dispatch sweeper, provisioning)
	// that operate across all tenants.
	Privileged bool
}

// FromUser builds the context for a signed-in user.
func FromUser(u *models.User) Context {
	return Context{
		UserID:    u.ID,
		CompanyID: u.CompanyID,
		Role:      u.Role,
	}
}

// System returns the privileged background-actor context used by the
// dispatch sweeper and provisioning paths.
func System() Context {
	return Context{Privileged: true}
}

// Scoped reports whether queries on tenant-owned tables must be filtered
// to the actor's company. Superadmins and system actors see all rows.
func (c Context) Scoped() bool {
	return !c.Privileged && c.Role != models.RoleSuperadmin
}

// Scope applies the company filter to a query on a tenant-owned table.
// A scoped actor with no company matches nothing rather than everything.
func (c Context) Scope(db *gorm.DB) *gorm.DB {
	if !c.Scoped() {
		return db
	}
	if c.CompanyID == nil {
		return db.Where("1 = 0")
	}
	return db.Where("company_id = ?", *c.CompanyID)
}

// CanAccessCompany reports whether the actor may touch rows of the given
// company.
func (c Context) CanAccessCompany(companyID uuid.UUID) bool {
	if !c.Scoped() {
		return true
	}
	return c.CompanyID != nil && *c.CompanyID == companyID
}
