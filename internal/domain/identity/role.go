package identity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/erp/rentledger/internal/domain/shared"
)

// Role is the closed set of staff roles known to the ledger
type Role string

const (
	RoleSuperAdmin          Role = "super_admin"
	RolePropertyAdmin       Role = "property_admin"
	RolePropertyAccountant  Role = "property_accountant"
	RolePropertyFrontdesk   Role = "property_frontdesk"
	RolePropertyUtility     Role = "property_utility"
	RolePropertyMaintenance Role = "property_maintenance"
	RoleStaff               Role = "staff"
)

// AllRoles lists every valid role
func AllRoles() []Role {
	return []Role{
		RoleSuperAdmin,
		RolePropertyAdmin,
		RolePropertyAccountant,
		RolePropertyFrontdesk,
		RolePropertyUtility,
		RolePropertyMaintenance,
		RoleStaff,
	}
}

// IsValid checks if the role is one of the known roles
func (r Role) IsValid() bool {
	for _, known := range AllRoles() {
		if r == known {
			return true
		}
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// ParseRole converts a claim or config value into a Role
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", shared.NewValidationError("INVALID_ROLE", fmt.Sprintf("unknown role %q", s))
	}
	return r, nil
}

// Capability is an operation a role may perform on the ledger
type Capability string

const (
	CapLeaseSchedule  Capability = "lease:schedule"
	CapBillingRead    Capability = "billing:read"
	CapBillingDelete  Capability = "billing:delete"
	CapBillingPenalty Capability = "billing:penalty"
	CapPaymentApply   Capability = "payment:apply"
	CapPaymentRevert  Capability = "payment:revert"
	CapReadingSubmit  Capability = "reading:submit"
	CapReadingConfirm Capability = "reading:confirm"
	CapUtilityBill    Capability = "utility:bill"
	CapReportRead     Capability = "report:read"
)

// AllCapabilities lists every capability
func AllCapabilities() []Capability {
	return []Capability{
		CapLeaseSchedule,
		CapBillingRead,
		CapBillingDelete,
		CapBillingPenalty,
		CapPaymentApply,
		CapPaymentRevert,
		CapReadingSubmit,
		CapReadingConfirm,
		CapUtilityBill,
		CapReportRead,
	}
}

// IsValid checks if the capability is known
func (c Capability) IsValid() bool {
	for _, known := range AllCapabilities() {
		if c == known {
			return true
		}
	}
	return false
}

// CapabilityTable maps each role to the capabilities it holds.
// It is built once from configuration and passed to whoever enforces access.
type CapabilityTable map[Role]map[Capability]struct{}

// DefaultCapabilityTable returns the built-in role grants
func DefaultCapabilityTable() CapabilityTable {
	t := CapabilityTable{}
	t.Grant(RoleSuperAdmin, AllCapabilities()...)
	t.Grant(RolePropertyAdmin, AllCapabilities()...)
	t.Grant(RolePropertyAccountant,
		CapLeaseSchedule, CapBillingRead, CapBillingDelete, CapBillingPenalty,
		CapPaymentApply, CapPaymentRevert, CapUtilityBill, CapReportRead)
	t.Grant(RolePropertyFrontdesk, CapBillingRead, CapPaymentApply)
	t.Grant(RolePropertyUtility, CapBillingRead, CapReadingSubmit, CapReadingConfirm, CapUtilityBill)
	t.Grant(RolePropertyMaintenance, CapReadingSubmit)
	t.Grant(RoleStaff, CapBillingRead)
	return t
}

// NewCapabilityTable builds a table from the defaults, replacing the grants of
// any role present in overrides. Unknown roles or capabilities are rejected.
func NewCapabilityTable(overrides map[string][]string) (CapabilityTable, error) {
	t := DefaultCapabilityTable()
	for rawRole, rawCaps := range overrides {
		role, err := ParseRole(rawRole)
		if err != nil {
			return nil, err
		}
		caps := make([]Capability, 0, len(rawCaps))
		for _, rc := range rawCaps {
			c := Capability(strings.TrimSpace(rc))
			if !c.IsValid() {
				return nil, shared.NewValidationError("INVALID_CAPABILITY",
					fmt.Sprintf("unknown capability %q for role %s", rc, role))
			}
			caps = append(caps, c)
		}
		delete(t, role)
		t.Grant(role, caps...)
	}
	return t, nil
}

// Grant adds capabilities to a role
func (t CapabilityTable) Grant(role Role, caps ...Capability) {
	set, ok := t[role]
	if !ok {
		set = make(map[Capability]struct{}, len(caps))
		t[role] = set
	}
	for _, c := range caps {
		set[c] = struct{}{}
	}
}

// Allows reports whether role holds capability
func (t CapabilityTable) Allows(role Role, c Capability) bool {
	_, ok := t[role][c]
	return ok
}

// AllowsAny reports whether role holds at least one of caps
func (t CapabilityTable) AllowsAny(role Role, caps ...Capability) bool {
	for _, c := range caps {
		if t.Allows(role, c) {
			return true
		}
	}
	return false
}

// Capabilities returns the sorted capabilities of a role
func (t CapabilityTable) Capabilities(role Role) []Capability {
	out := make([]Capability, 0, len(t[role]))
	for c := range t[role] {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
