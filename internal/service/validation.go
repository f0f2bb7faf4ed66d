package service

import (
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

var hhmmPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// NewValidator returns a validator with the portal specific tags registered:
// weekday (MONDAY..SUNDAY) and hhmm (24h HH:MM).
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		return models.WeekdayIndex(fl.Field().String()) >= 0
	})
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return hhmmPattern.MatchString(fl.Field().String())
	})
	return v
}

func ensureValidator(v *validator.Validate) *validator.Validate {
	if v == nil {
		return NewValidator()
	}
	return v
}

// lookupError maps a repository read failure to 404 or 500.
func lookupError(err error, notFound, failure string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Internal(err, failure)
}

// writeFailure maps a repository write failure to 404, 409 or 500.
func writeFailure(err error, notFound, conflict, failure string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	case errors.Is(err, models.ErrDuplicate), errors.Is(err, models.ErrStaleStatus):
		return appErrors.Clone(appErrors.ErrConflict, conflict)
	default:
		return appErrors.Internal(err, failure)
	}
}

func invalid(err error, message string) error {
	return appErrors.Validation(err, message)
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
