package sge

import "fmt"

// Capability is a fine-grained permission tag gating in-module actions
type Capability = string

const (
	// CapabilityAll grants every capability
	CapabilityAll Capability = "all"

	CapabilityDelegations    Capability = "delegations"
	CapabilityTeams          Capability = "teams"
	CapabilityAthletes       Capability = "athletes"
	CapabilityRegistrations  Capability = "registrations"
	CapabilityEvents         Capability = "events"
	CapabilityOfficials      Capability = "officials"
	CapabilityResults        Capability = "results"
	CapabilityCompetitions   Capability = "competitions"
	CapabilityViewOwnData    Capability = "view_own_data"
	CapabilityViewPublicData Capability = "view_public_data"
	CapabilitySystemOps      Capability = "system_operations"
	CapabilityDataManagement Capability = "data_management"
	CapabilityUsers          Capability = "users"
)

// rolePermissions is the single source of truth for role → capability
// mapping. Navigation filtering and every CRUD screen read from here;
// nothing else may carry its own copy.
var rolePermissions = map[Role][]Capability{
	RoleGestor:    {CapabilityAll},
	RoleDirigente: {CapabilityDelegations, CapabilityTeams, CapabilityAthletes, CapabilityRegistrations, CapabilityEvents},
	RoleArbitro:   {CapabilityOfficials, CapabilityResults, CapabilityCompetitions},
	RoleAtleta:    {CapabilityViewOwnData, CapabilityRegistrations},
	RoleLeitor:    {CapabilityViewPublicData},
	RoleOperador:  {CapabilitySystemOps, CapabilityDataManagement, CapabilityUsers},
}

var roleLabels = map[Role]string{
	RoleGestor:    "Gestor do Sistema",
	RoleDirigente: "Dirigente Esportivo",
	RoleArbitro:   "Árbitro/Oficial",
	RoleAtleta:    "Atleta Master 60+",
	RoleOperador:  "Operador de Sistema",
	RoleLeitor:    "Consulta/Relatórios",
}

// PermissionsFor returns the capability set for a role. The role
// enumeration is closed; calling this with an unknown role is a
// programming error and panics.
func PermissionsFor(role Role) []Capability {
	caps, ok := rolePermissions[role]
	if !ok {
		panic(fmt.Sprintf("sge: unknown role %q", role))
	}
	out := make([]Capability, len(caps))
	copy(out, caps)
	return out
}

// CanPerform reports whether the role holds the capability, either
// directly or through the "all" grant. Total over any input.
func CanPerform(role Role, capability Capability) bool {
	caps, ok := rolePermissions[role]
	if !ok {
		return false
	}
	for _, c := range caps {
		if c == capability || c == CapabilityAll {
			return true
		}
	}
	return false
}

// IsValidRole checks the role against the closed enumeration
func IsValidRole(role Role) bool {
	_, ok := rolePermissions[role]
	return ok
}

// ParseRole safely parses a string into a Role
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, IsValidRole(role)
}

// AllRoles returns every role in the enumeration
func AllRoles() []Role {
	return []Role{
		RoleGestor,
		RoleDirigente,
		RoleArbitro,
		RoleAtleta,
		RoleLeitor,
		RoleOperador,
	}
}

// RegistrableRoles returns the roles a visitor may request through
// self-service registration. Gestor accounts are only seeded or
// assigned by an administrator.
func RegistrableRoles() []Role {
	return []Role{
		RoleDirigente,
		RoleArbitro,
		RoleAtleta,
		RoleOperador,
		RoleLeitor,
	}
}

// RoleLabel returns the display label for a role, falling back to the
// raw value for anything outside the enumeration.
func RoleLabel(role Role) string {
	if label, ok := roleLabels[role]; ok {
		return label
	}
	return role
}
