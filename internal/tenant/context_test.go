package tenant

import (
	"testing"

	"github.com/google/uuid"

	"contract-service/internal/models"
)

func TestScoped(t *testing.T) {
	companyID := uuid.New()

	testCases := []struct {
		name string
		ctx  Context
		want bool
	}{
		{"member", Context{Role: models.RoleMember, CompanyID: &companyID}, true},
		{"company admin", Context{Role: models.RoleCompanyAdmin, CompanyID: &companyID}, true},
		{"superadmin", Context{Role: models.RoleSuperadmin}, false},
		{"system", System(), false},
		{"zero value", Context{}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.ctx.Scoped(); got != tc.want {
				t.Errorf("Scoped() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCanAccessCompany(t *testing.T) {
	own := uuid.New()
	other := uuid.New()

	member := Context{Role: models.RoleMember, CompanyID: &own}
	if !member.CanAccessCompany(own) {
		t.Error("member should access own company")
	}
	if member.CanAccessCompany(other) {
		t.Error("member should not access another company")
	}

	superadmin := Context{Role: models.RoleSuperadmin}
	if !superadmin.CanAccessCompany(other) {
		t.Error("superadmin should access any company")
	}

	if System().CanAccessCompany(other) != true {
		t.Error("system actor should access any company")
	}

	// Scoped without a company matches nothing.
	homeless := Context{Role: models.RoleMember}
	if homeless.CanAccessCompany(other) {
		t.Error("scoped actor without a company should access nothing")
	}
}

func TestFromUser(t *testing.T) {
	companyID := uuid.New()
	u := &models.User{ID: uuid.New(), CompanyID: &companyID, Role: models.RoleCompanyAdmin}

	ctx := FromUser(u)
	if ctx.UserID != u.ID {
		t.Errorf("UserID = %s, want %s", ctx.UserID, u.ID)
	}
	if ctx.CompanyID == nil || *ctx.CompanyID != companyID {
		t.Errorf("CompanyID = %v, want %s", ctx.CompanyID, companyID)
	}
	if ctx.Privileged {
		t.Error("user contexts are never privileged")
	}
}
