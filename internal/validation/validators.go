package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/benvon/task-manager/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate

	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,50}$`)
)

func init() {
	Validate = validator.New()

	// report json field names so messages match the request body
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	register := func(tag string, fn validator.Func) {
		if err := Validate.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("failed to register %s validator: %v", tag, err))
		}
	}
	register("task_status", func(fl validator.FieldLevel) bool {
		return models.TaskStatus(fl.Field().String()).Valid()
	})
	register("task_priority", func(fl validator.FieldLevel) bool {
		return models.TaskPriority(fl.Field().String()).Valid()
	})
	register("recurrence", func(fl validator.FieldLevel) bool {
		return models.Recurrence(fl.Field().String()).Valid()
	})
	register("reminder", func(fl validator.FieldLevel) bool {
		return models.Reminder(fl.Field().String()).Valid()
	})
	register("theme", func(fl validator.FieldLevel) bool {
		return ValidateTheme(fl.Field().String()) == nil
	})
	register("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// SanitizeLine sanitizes single-line input such as titles, dropping newlines too
func SanitizeLine(text string) string {
	text = SanitizeText(text)
	return strings.Join(strings.Fields(text), " ")
}

// ValidateTaskStatus validates a TaskStatus string value
func ValidateTaskStatus(value string) error {
	if !models.TaskStatus(value).Valid() {
		return fmt.Errorf("invalid status: %s (must be 'pending', 'in_progress', or 'completed')", value)
	}
	return nil
}

// ValidateTaskPriority validates a TaskPriority string value
func ValidateTaskPriority(value string) error {
	if !models.TaskPriority(value).Valid() {
		return fmt.Errorf("invalid priority: %s (must be 'low', 'medium', or 'high')", value)
	}
	return nil
}

// ValidateTheme validates a theme name
func ValidateTheme(value string) error {
	switch models.Theme(value) {
	case models.ThemeLight, models.ThemeDark, models.ThemeCustom:
		return nil
	default:
		return fmt.Errorf("invalid theme: %s (must be 'light', 'dark', or 'custom')", value)
	}
}

// ValidateSetting validates one key/value pair of the settings table
func ValidateSetting(key, value string) error {
	if !models.ValidSettingKey(key) {
		return fmt.Errorf("invalid setting key: %q", key)
	}
	if len([]rune(value)) > models.MaxSettingValueLength {
		return fmt.Errorf("setting %s exceeds %d characters", key, models.MaxSettingValueLength)
	}
	return nil
}

// Describe turns a validator error into a single human readable message
func Describe(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			return fmt.Sprintf("%s is required", field)
		case "min", "max":
			return fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param())
		case "email":
			return fmt.Sprintf("%s must be a valid email address", field)
		default:
			return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
		}
	}
	return "Validation failed"
}
