package validator

import (
	"log"

	"github.com/go-playground/validator/v10"

	"workforce_backend/internal/models"
	"workforce_backend/internal/models/chat"
)

// registerCustomRules регистрирует кастомные теги
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			// без правил приложение запускать нельзя
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	mustRegister("is-user-role", validateUserRole)
	mustRegister("is-receiver-model", validateReceiverModel)
	mustRegister("is-message-type", validateMessageType)
	mustRegister("is-priority", validatePriority)
}

// Пустые значения пропускаем, для этого есть 'required'

func validateUserRole(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || models.UserRole(value).IsValid()
}

func validateReceiverModel(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || models.UserModel(value).IsValid()
}

func validateMessageType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || chat.MessageType(value).IsValid()
}

func validatePriority(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || models.Priority(value).IsValid()
}
