package transport

import (
	"cold_solutions_backend/internal/leads/domain"
	"cold_solutions_backend/platform/validator"

	playground "github.com/go-playground/validator/v10"
)

// RegisterValidations installs the enum rules used by the lead DTOs.
func RegisterValidations(v *validator.Validator) error {
	rules := map[string]playground.Func{
		"lead_source": func(fl playground.FieldLevel) bool {
			return domain.LeadSource(fl.Field().String()).Valid()
		},
		"lead_status": func(fl playground.FieldLevel) bool {
			return domain.LeadStatus(fl.Field().String()).Valid()
		},
		"lead_priority": func(fl playground.FieldLevel) bool {
			return domain.Priority(fl.Field().String()).Valid()
		},
		"activity_type": func(fl playground.FieldLevel) bool {
			return domain.ActivityType(fl.Field().String()).Valid()
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}
