package auth

import (
	"sort"

	"workforce_backend/internal/models"
)

// Capability - право на действие. Страницы и хэндлеры проверяют
// capability, а не списки ролей.
type Capability string

const (
	CapSendMessages        Capability = "messages:send"
	CapCreateAnnouncements Capability = "announcements:create"
	CapPublishEvents       Capability = "events:publish"
	CapManageEmployees     Capability = "employees:manage"
	CapViewPayroll         Capability = "payroll:view"
	CapApproveLeave        Capability = "leave:approve"
	CapViewAllPresence     Capability = "presence:view-all"
)

// grants - единственное место, где роль сопоставляется с правами
var grants = map[Capability][]models.UserRole{
	CapSendMessages:        models.AllRoles,
	CapCreateAnnouncements: {models.UserRoleAdmin, models.UserRoleCEO, models.UserRoleManager, models.UserRoleHR},
	CapPublishEvents:       {models.UserRoleAdmin, models.UserRoleCEO, models.UserRoleHR, models.UserRoleAccountant},
	CapManageEmployees:     {models.UserRoleAdmin, models.UserRoleCEO, models.UserRoleHR},
	CapViewPayroll:         {models.UserRoleAdmin, models.UserRoleCEO, models.UserRoleAccountant},
	CapApproveLeave:        {models.UserRoleAdmin, models.UserRoleCEO, models.UserRoleManager, models.UserRoleHR},
	CapViewAllPresence:     {models.UserRoleAdmin, models.UserRoleCEO, models.UserRoleManager},
}

// CapabilitySet - набор прав роли
type CapabilitySet map[Capability]struct{}

func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// List - отсортированный список, удобен для ответа /auth/me
func (s CapabilitySet) List() []Capability {
	out := make([]Capability, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Capabilities разрешает роль в набор прав. Неизвестная роль -> пустой набор.
func Capabilities(role models.UserRole) CapabilitySet {
	set := make(CapabilitySet)
	for capability, roles := range grants {
		for _, r := range roles {
			if r == role {
				set[capability] = struct{}{}
				break
			}
		}
	}
	return set
}

// Can проверяет одно право
func Can(role models.UserRole, c Capability) bool {
	for _, r := range grants[c] {
		if r == role {
			return true
		}
	}
	return false
}
