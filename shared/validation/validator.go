package validation

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"
	"time"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}

// ValidationResult holds validation results
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// Validator provides validation functions
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// ValidateRequired checks if a value is present
func (v *Validator) ValidateRequired(field string, value interface{}) *Validator {
	if value == nil {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: "field is required",
			Value:   value,
		})
		return v
	}

	switch val := value.(type) {
	case string:
		if strings.TrimSpace(val) == "" {
			v.errors = append(v.errors, ValidationError{
				Field:   field,
				Message: "field cannot be empty",
				Value:   value,
			})
		}
	case []interface{}:
		if len(val) == 0 {
			v.errors = append(v.errors, ValidationError{
				Field:   field,
				Message: "array cannot be empty",
				Value:   value,
			})
		}
	case map[string]interface{}:
		if len(val) == 0 {
			v.errors = append(v.errors, ValidationError{
				Field:   field,
				Message: "object cannot be empty",
				Value:   value,
			})
		}
	}

	return v
}

// ValidateRange checks if a numeric value is within range
func (v *Validator) ValidateRange(field string, value interface{}, min, max float64) *Validator {
	var numValue float64
	var valid bool

	switch val := value.(type) {
	case int:
		numValue = float64(val)
		valid = true
	case int32:
		numValue = float64(val)
		valid = true
	case int64:
		numValue = float64(val)
		valid = true
	case float32:
		numValue = float64(val)
		valid = true
	case float64:
		numValue = val
		valid = true
	}

	if !valid {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: "field must be a number",
			Value:   value,
		})
		return v
	}

	if numValue < min || numValue > max {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("value must be between %g and %g", min, max),
			Value:   value,
		})
	}

	return v
}

// ValidatePositive checks if a numeric value is positive
func (v *Validator) ValidatePositive(field string, value interface{}) *Validator {
	return v.ValidateRange(field, value, 0.000001, math.Inf(1))
}

// ValidateArrayLength checks array length constraints
func (v *Validator) ValidateArrayLength(field string, value interface{}, minLen, maxLen int) *Validator {
	var length int
	var valid bool

	switch val := value.(type) {
	case []interface{}:
		length = len(val)
		valid = true
	case []string:
		length = len(val)
		valid = true
	case []int:
		length = len(val)
		valid = true
	case []float64:
		length = len(val)
		valid = true
	default:
		// Use reflection for other slice types
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Slice {
			length = rv.Len()
			valid = true
		}
	}

	if !valid {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: "field must be an array",
			Value:   value,
		})
		return v
	}

	if length < minLen {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("array must have at least %d elements", minLen),
			Value:   value,
		})
	}

	if maxLen > 0 && length > maxLen {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("array cannot have more than %d elements", maxLen),
			Value:   value,
		})
	}

	return v
}

// ValidateStringLength checks string length constraints
func (v *Validator) ValidateStringLength(field string, value interface{}, minLen, maxLen int) *Validator {
	str, ok := value.(string)
	if !ok {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: "field must be a string",
			Value:   value,
		})
		return v
	}

	length := len(str)
	if length < minLen {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("string must be at least %d characters", minLen),
			Value:   value,
		})
	}

	if maxLen > 0 && length > maxLen {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("string cannot be longer than %d characters", maxLen),
			Value:   value,
		})
	}

	return v
}

// ValidatePattern checks if a string matches a regex pattern
func (v *Validator) ValidatePattern(field string, value interface{}, pattern string, description string) *Validator {
	str, ok := value.(string)
	if !ok {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: "field must be a string",
			Value:   value,
		})
		return v
	}

	matched, err := regexp.MatchString(pattern, str)
	if err != nil {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: "invalid pattern for validation",
			Value:   value,
		})
		return v
	}

	if !matched {
		message := fmt.Sprintf("field does not match required pattern")
		if description != "" {
			message = fmt.Sprintf("field must be %s", description)
		}
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: message,
			Value:   value,
		})
	}

	return v
}

// ValidateEmail checks if a string is a valid email
func (v *Validator) ValidateEmail(field string, value interface{}) *Validator {
	emailPattern := `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	return v.ValidatePattern(field, value, emailPattern, "a valid email address")
}

// ValidateEnum checks if a value is in allowed enum values
func (v *Validator) ValidateEnum(field string, value interface{}, allowedValues []string) *Validator {
	str, ok := value.(string)
	if !ok {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: "field must be a string",
			Value:   value,
		})
		return v
	}

	for _, allowed := range allowedValues {
		if str == allowed {
			return v
		}
	}

	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Message: fmt.Sprintf("value must be one of: %s", strings.Join(allowedValues, ", ")),
		Value:   value,
	})

	return v
}

// ValidateTimeout checks if a timeout value is reasonable
func (v *Validator) ValidateTimeout(field string, value interface{}) *Validator {
	var seconds float64
	var valid bool

	switch val := value.(type) {
	case int:
		seconds = float64(val)
		valid = true
	case float64:
		seconds = val
		valid = true
	case time.Duration:
		seconds = val.Seconds()
		valid = true
	}

	if !valid {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: "timeout must be a number or duration",
			Value:   value,
		})
		return v
	}

	// Validate reasonable timeout ranges (1 second to 1 hour)
	if seconds < 1 {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: "timeout must be at least 1 second",
			Value:   value,
		})
	}

	if seconds > 3600 {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: "timeout cannot exceed 1 hour",
			Value:   value,
		})
	}

	return v
}

// ValidateFlipAngleDegrees checks that a pulse flip angle is within a
// physically sane range for the console's request surface.
func (v *Validator) ValidateFlipAngleDegrees(field string, value interface{}) *Validator {
	return v.ValidateRange(field, value, -360, 360)
}

// ValidateDurationMilliSeconds checks that an interval duration is
// non-negative and within a bound long enough to cover any realistic
// sequence step.
func (v *Validator) ValidateDurationMilliSeconds(field string, value interface{}) *Validator {
	return v.ValidateRange(field, value, 0, 10000)
}

// ValidateGradientMilliTeslaPerMeter checks a gradient amplitude
// against typical clinical/preclinical hardware limits.
func (v *Validator) ValidateGradientMilliTeslaPerMeter(field string, value interface{}) *Validator {
	return v.ValidateRange(field, value, -500, 500)
}

// ValidateRelaxationTimeMilliSeconds checks a T1/T2 value is strictly
// positive and within a range that keeps R1/R2 well away from overflow.
func (v *Validator) ValidateRelaxationTimeMilliSeconds(field string, value interface{}) *Validator {
	return v.ValidateRange(field, value, 0.001, 1e7)
}

// Result returns the validation result
func (v *Validator) Result() ValidationResult {
	return ValidationResult{
		Valid:  len(v.errors) == 0,
		Errors: v.errors,
	}
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// GetErrors returns all validation errors
func (v *Validator) GetErrors() []ValidationError {
	return v.errors
}

// Common validation functions for the sequence-execution console.

// ValidateSpeciesRequest validates a species definition submitted to
// POST /v1/sequences:run or :batch.
func ValidateSpeciesRequest(params map[string]interface{}) ValidationResult {
	v := NewValidator()

	if t1, exists := params["t1_ms"]; exists {
		v.ValidateRequired("t1_ms", t1)
		v.ValidateRelaxationTimeMilliSeconds("t1_ms", t1)
	}
	if t2, exists := params["t2_ms"]; exists {
		v.ValidateRequired("t2_ms", t2)
		v.ValidateRelaxationTimeMilliSeconds("t2_ms", t2)
	}
	if d, exists := params["diffusivity_um2_per_ms"]; exists {
		v.ValidateRange("diffusivity_um2_per_ms", d, 0, 1e4)
	}

	return v.Result()
}

// ValidateSequenceStep validates one step of a submitted sequence: a
// pulse, a combined time interval, or one of the standalone relaxation,
// diffusion, shift, off_resonance events (SPEC_FULL.md §6).
func ValidateSequenceStep(step map[string]interface{}) ValidationResult {
	v := NewValidator()

	v.ValidateRequired("kind", step["kind"])
	v.ValidateEnum("kind", step["kind"], []string{"pulse", "interval", "relaxation", "diffusion", "shift", "off_resonance"})

	if angle, exists := step["angle_deg"]; exists {
		v.ValidateFlipAngleDegrees("angle_deg", angle)
	}
	if duration, exists := step["duration_ms"]; exists {
		v.ValidateDurationMilliSeconds("duration_ms", duration)
	}
	if gradient, exists := step["gradient_mt_per_m"]; exists {
		v.ValidateGradientMilliTeslaPerMeter("gradient_mt_per_m", gradient)
	}

	return v.Result()
}