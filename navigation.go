package sge

import "fmt"

// Module identifies a navigable screen of the console
type Module = string

const (
	ModuleDashboard      Module = "dashboard"
	ModuleMunicipalities Module = "municipalities"
	ModuleDelegations    Module = "delegations"
	ModuleTeams          Module = "teams"
	ModuleAthletes       Module = "athletes"
	ModuleOfficials      Module = "officials"
	ModuleEvents         Module = "events"
	ModuleCompetitions   Module = "competitions"
	ModuleRegistrations  Module = "registrations"
	ModuleResults        Module = "results"
	ModuleReports        Module = "reports"
	ModuleUsers          Module = "users"
	ModuleApprovals      Module = "approvals"
)

// DefaultModule is where navigation lands after login and logout reset
const DefaultModule = ModuleDashboard

// MenuItem is one selectable entry of the navigation sidebar. Role
// gating here is the coarse visibility layer; screens re-check
// fine-grained rights through CanPerform.
type MenuItem struct {
	Module Module
	Label  string
	// Capability is the tag the screen itself enforces, empty when the
	// item is gated by role alone (approvals is manager-only).
	Capability   Capability
	AllowedRoles []Role
}

func everyRole() []Role { return AllRoles() }

var menuItems = []MenuItem{
	{Module: ModuleDashboard, Label: "Dashboard", AllowedRoles: everyRole()},
	{Module: ModuleMunicipalities, Label: "Municípios", AllowedRoles: []Role{RoleGestor, RoleOperador}},
	{Module: ModuleDelegations, Label: "Delegações", Capability: CapabilityDelegations, AllowedRoles: []Role{RoleGestor, RoleDirigente, RoleOperador}},
	{Module: ModuleTeams, Label: "Equipes", Capability: CapabilityTeams, AllowedRoles: []Role{RoleGestor, RoleDirigente, RoleOperador}},
	{Module: ModuleAthletes, Label: "Atletas", Capability: CapabilityAthletes, AllowedRoles: []Role{RoleGestor, RoleDirigente, RoleAtleta, RoleOperador}},
	{Module: ModuleOfficials, Label: "Oficiais", Capability: CapabilityOfficials, AllowedRoles: []Role{RoleGestor, RoleArbitro, RoleOperador}},
	{Module: ModuleEvents, Label: "Eventos", Capability: CapabilityEvents, AllowedRoles: everyRole()},
	{Module: ModuleCompetitions, Label: "Competições", Capability: CapabilityCompetitions, AllowedRoles: everyRole()},
	{Module: ModuleRegistrations, Label: "Inscrições", Capability: CapabilityRegistrations, AllowedRoles: []Role{RoleGestor, RoleDirigente, RoleAtleta, RoleOperador}},
	{Module: ModuleResults, Label: "Resultados", Capability: CapabilityResults, AllowedRoles: everyRole()},
	{Module: ModuleReports, Label: "Relatórios", AllowedRoles: []Role{RoleGestor, RoleDirigente, RoleArbitro, RoleLeitor, RoleOperador}},
	{Module: ModuleUsers, Label: "Usuários", Capability: CapabilityUsers, AllowedRoles: []Role{RoleGestor, RoleOperador}},
	{Module: ModuleApprovals, Label: "Aprovações", AllowedRoles: []Role{RoleGestor}},
}

// MenuItems returns the full navigation registry
func MenuItems() []MenuItem {
	out := make([]MenuItem, len(menuItems))
	copy(out, menuItems)
	return out
}

// NavigationFor returns the menu items visible to a role, evaluated
// from the role enumeration only.
func NavigationFor(role Role) []MenuItem {
	var out []MenuItem
	for _, item := range menuItems {
		if item.Allows(role) {
			out = append(out, item)
		}
	}
	return out
}

// Allows reports whether the role may see this menu item
func (m MenuItem) Allows(role Role) bool {
	for _, r := range m.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}

// VerifyNavigationConsistency checks that the menu registry does not
// diverge from the permission table: every role whose capability set
// grants an item's capability tag must also be allowed to see the
// item. Navigation may be broader (it is a coarser layer), never
// narrower.
func VerifyNavigationConsistency() error {
	for _, item := range menuItems {
		if item.Capability == "" {
			continue
		}
		for _, role := range AllRoles() {
			if CanPerform(role, item.Capability) && !item.Allows(role) {
				return fmt.Errorf("menu item %q hides role %q which holds capability %q", item.Module, role, item.Capability)
			}
		}
	}
	return nil
}
