package validator

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// pushoverSounds lists the sound names accepted by the Pushover API.
var pushoverSounds = map[string]bool{
	"pushover": true, "bike": true, "bugle": true, "cashregister": true,
	"classical": true, "cosmic": true, "falling": true, "gamelan": true,
	"incoming": true, "intermission": true, "magic": true, "mechanical": true,
	"pianobar": true, "siren": true, "spacealarm": true, "tugboat": true,
	"alien": true, "climb": true, "persistent": true, "echo": true,
	"updown": true, "vibrate": true, "none": true,
}

// Validator represents a validator instance
type Validator struct {
	validate *validator.Validate
}

// New creates a new validator instance
func New() *Validator {
	once.Do(func() {
		validate = validator.New()

		// Register custom validation functions
		validate.RegisterValidation("hostname", validateHostname)
		validate.RegisterValidation("pushover_sound", validateSound)

		// Use mapstructure tag names in error messages
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})

	return &Validator{
		validate: validate,
	}
}

// Struct validates a struct
func (v *Validator) Struct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		if _, ok := err.(*validator.InvalidValidationError); ok {
			return fmt.Errorf("invalid validation error: %w", err)
		}

		var errMsgs []string
		for _, err := range err.(validator.ValidationErrors) {
			errMsgs = append(errMsgs, formatError(err))
		}
		return fmt.Errorf("validation failed: %s", strings.Join(errMsgs, "; "))
	}
	return nil
}

// Var validates a single variable
func (v *Validator) Var(field any, tag string) error {
	return v.validate.Var(field, tag)
}

// formatError formats a validation error
func formatError(err validator.FieldError) string {
	field := err.Field()
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, err.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, err.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "ip":
		return fmt.Sprintf("%s must be a valid IP address", field)
	case "hostname":
		return fmt.Sprintf("%s must be a valid hostname", field)
	case "pushover_sound":
		return fmt.Sprintf("%s must be a valid Pushover sound name", field)
	default:
		return fmt.Sprintf("%s failed on tag %s", field, err.Tag())
	}
}

// Custom validation functions
func validateHostname(fl validator.FieldLevel) bool {
	hostname := fl.Field().String()
	if hostname == "" {
		return true
	}

	// Basic hostname validation
	if len(hostname) > 255 {
		return false
	}

	for _, part := range strings.Split(hostname, ".") {
		if len(part) == 0 || len(part) > 63 {
			return false
		}
	}

	return true
}

// validateSound accepts the empty string, which means the API default
func validateSound(fl validator.FieldLevel) bool {
	sound := fl.Field().String()
	if sound == "" {
		return true
	}
	return pushoverSounds[sound]
}
