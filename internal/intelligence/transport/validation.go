package transport

import (
	"cold_solutions_backend/internal/intelligence/domain"
	"cold_solutions_backend/platform/validator"

	playground "github.com/go-playground/validator/v10"
)

// RegisterValidations installs the enum rules used by the intelligence DTOs.
func RegisterValidations(v *validator.Validator) error {
	return v.RegisterValidation("analysis_status", func(fl playground.FieldLevel) bool {
		return domain.AnalysisStatus(fl.Field().String()).Valid()
	})
}
