package models

type UserStatus string
type UserRole string

// UserModel - "коллекция" получателя сообщения: admin или employee
type UserModel string

type Theme string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"

	UserRoleAdmin      UserRole = "admin"
	UserRoleCEO        UserRole = "ceo"
	UserRoleManager    UserRole = "manager"
	UserRoleEmployee   UserRole = "employee"
	UserRoleAccountant UserRole = "accountant"
	UserRoleHR         UserRole = "hr"

	UserModelAdmin    UserModel = "admin"
	UserModelEmployee UserModel = "employee"

	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// AllRoles - порядок важен только для сообщений валидатора
var AllRoles = []UserRole{
	UserRoleAdmin, UserRoleCEO, UserRoleManager,
	UserRoleEmployee, UserRoleAccountant, UserRoleHR,
}

func (r UserRole) IsValid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Model возвращает коллекцию, к которой относится роль.
// Все, кроме employee, хранились в коллекции администраторов.
func (r UserRole) Model() UserModel {
	if r == UserRoleEmployee {
		return UserModelEmployee
	}
	return UserModelAdmin
}

func (m UserModel) IsValid() bool {
	return m == UserModelAdmin || m == UserModelEmployee
}
