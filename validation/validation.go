package validation

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Violations struct {
	Errors map[string][]error
}

func (violations Violations) MarshalJSON() ([]byte, error) {
	errors := make(map[string][]string)
	for fieldName, fieldErrors := range violations.Errors {
		errors[fieldName] = make([]string, len(fieldErrors))
		for index, fieldError := range fieldErrors {
			errors[fieldName][index] = fieldError.Error()
		}
	}

	return json.Marshal(map[string]map[string][]string{
		"errors": errors,
	})
}

func (violations Violations) IsEmpty() bool {
	return len(violations.Errors) == 0
}

// Error lists every violation, fields in lexical order.
func (violations Violations) Error() string {
	fieldNames := make([]string, 0, len(violations.Errors))
	for fieldName := range violations.Errors {
		fieldNames = append(fieldNames, fieldName)
	}
	slices.Sort(fieldNames)

	var builder strings.Builder
	builder.WriteString("validation failed")
	for _, fieldName := range fieldNames {
		for _, fieldError := range violations.Errors[fieldName] {
			builder.WriteString("; ")
			builder.WriteString(fieldError.Error())
		}
	}

	return builder.String()
}

// Err returns the violations as an error, or nil when there are none.
func (violations Violations) Err() error {
	if violations.IsEmpty() {
		return nil
	}
	return violations
}

// ValidateMap checks every attribute against its rules. An attribute
// without a rules entry is a violation on its own.
//
// Rules: required, port, url_path, duration, one_of:a|b|c.
func ValidateMap(data map[string]any, rules map[string][]string) Violations {
	var violations Violations
	violations.Errors = make(map[string][]error)

	for attributeName, attributeValue := range data {
		attributeRules, attributeRulesExists := rules[attributeName]
		if !attributeRulesExists {
			violations.Errors[attributeName] = append(violations.Errors[attributeName], fmt.Errorf("validation: no rules found :: %s", attributeName))
			continue
		}

		var errorCollection []error
		for _, attributeRule := range attributeRules {
			if err := validate(attributeRule, attributeName, attributeValue); err != nil {
				errorCollection = append(errorCollection, err)
			}
		}

		if len(errorCollection) != 0 {
			violations.Errors[attributeName] = errorCollection
		}
	}

	return violations
}

func validate(rule string, name string, value any) error {
	rule, argument, _ := strings.Cut(rule, ":")

	switch rule {
	case "required":
		{
			err := fmt.Errorf("%s is required", name)

			switch v := value.(type) {
			case nil:
				{
					return err
				}
			case string:
				{
					if v == "" {
						return err
					}
				}
			case []any:
				{
					if len(v) == 0 {
						return err
					}
				}
			}
		}
	case "port":
		{
			text := fmt.Sprint(value)
			if !ValidateInteger(text) || !ValidateGreaterThenOrEqual(text, 0) || !ValidateLesserThenOrEqual(text, 65535) {
				return fmt.Errorf("%s must be a port number between 0 and 65535", name)
			}
		}
	case "url_path":
		{
			text, ok := value.(string)
			if !ok || !ValidateURLPath(text) {
				return fmt.Errorf("%s must be an absolute url path", name)
			}
		}
	case "duration":
		{
			switch v := value.(type) {
			case time.Duration:
				{
					if v < 0 {
						return fmt.Errorf("%s must not be negative", name)
					}
				}
			case string:
				{
					if v != "" && !ValidateDuration(v) {
						return fmt.Errorf("%s must be a duration", name)
					}
				}
			default:
				{
					return fmt.Errorf("%s must be a duration", name)
				}
			}
		}
	case "one_of":
		{
			text := fmt.Sprint(value)
			options := strings.Split(argument, "|")
			if text != "" && !slices.Contains(options, text) {
				return fmt.Errorf("%s must be one of %s", name, strings.Join(options, ", "))
			}
		}
	default:
		{
			return fmt.Errorf("invalid validation rule :: %s", rule)
		}
	}

	return nil
}

// Numberic operations
func ValidateInteger(value string) bool {
	_, err := strconv.Atoi(value)
	return err == nil
}

func ValidateGreaterThenOrEqual(value string, size int) bool {
	valueAsInt, err := strconv.Atoi(value)
	if err != nil {
		return false
	}

	return valueAsInt >= size
}

func ValidateLesserThenOrEqual(value string, size int) bool {
	valueAsInt, err := strconv.Atoi(value)
	if err != nil {
		return false
	}

	return valueAsInt <= size
}

// string operations
func ValidateContains(value string, needle string) bool {
	return strings.Contains(value, needle)
}

// ValidateURLPath accepts what a request target can match exactly: a
// leading slash and no query or fragment.
func ValidateURLPath(value string) bool {
	return strings.HasPrefix(value, "/") && !ValidateContains(value, "?") && !ValidateContains(value, "#")
}

// Time operations
func ValidateDuration(value string) bool {
	duration, err := time.ParseDuration(value)
	return err == nil && duration >= 0
}
