package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Role names are limited by the staff.role column.
const (
	RoleNameMin = 3
	RoleNameMax = 50
)

// Init configures the global validator used by Gin's binding.
// - Uses JSON tag names in errors.
// - Registers the rolename tag and aliases.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		Configure(v)
	}
}

// Configure applies the project's tag name func and custom tags to v.
func Configure(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("rolename", validRoleName)
	v.RegisterAlias("uuid4", "uuid")
	v.RegisterAlias("nonzero", "required")
}

// ValidRoleName reports whether s, once trimmed, is an acceptable custom role name.
func ValidRoleName(s string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	return n >= RoleNameMin && n <= RoleNameMax
}

func validRoleName(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	return ValidRoleName(fl.Field().String())
}

// ToDetails converts validation/binding errors into a map[field]message suitable for API error.details.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	if errors.Is(err, io.EOF) {
		return map[string]string{"payload": "request body is empty"}
	}

	// Invalid JSON payloads
	var se *json.SyntaxError
	if errors.As(err, &se) {
		return map[string]string{"payload": "invalid json"}
	}
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) {
		field := ute.Field
		if field == "" {
			field = "payload"
		}
		return map[string]string{field: "must be " + describeType(ute.Type)}
	}

	// Validation errors from validator.v10
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fieldPath(fe)] = formatFieldError(fe)
		}
		return out
	}

	// Fallback
	return map[string]string{"payload": "invalid payload"}
}

// HasFieldError reports whether err contains a failure for the given JSON field.
// Element failures such as permissions[2] count towards their parent field.
func HasFieldError(err error, field string) bool {
	for k := range ToDetails(err) {
		if k == field || strings.HasPrefix(k, field+"[") {
			return true
		}
	}
	return false
}

// fieldPath drops the top-level struct name from the namespace, e.g. "req.permissions[1]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describeType(t reflect.Type) string {
	if t == nil {
		return "a valid value"
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return "an array"
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Map, reflect.Struct:
		return "an object"
	}
	if isNumberKind(t.Kind()) {
		return "a number"
	}
	return "a valid value"
}

func formatFieldError(fe validator.FieldError) string {
	tag := fe.Tag()
	param := fe.Param()
	kind := fe.Kind()

	switch tag {
	case "required":
		return "is required"
	case "required_with":
		return "is required when " + param + " is present"
	case "required_without":
		return "is required when " + param + " is not present"

	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "alphanum":
		return "must contain alphanumeric characters only"
	case "uppercase":
		return "must be in uppercase"
	case "lowercase":
		return "must be in lowercase"

	case "len":
		if param != "" {
			return fmt.Sprintf("must be exactly %s characters long", param)
		}
		return "invalid length"
	case "min":
		if param != "" {
			if isNumberKind(kind) {
				return "must be at least " + param
			}
			if isCollectionKind(kind) {
				return "must contain at least " + param + " items"
			}
			return "must be at least " + param + " characters long"
		}
		return "too small"
	case "max":
		if param != "" {
			if isNumberKind(kind) {
				return "must be at most " + param
			}
			if isCollectionKind(kind) {
				return "must contain at most " + param + " items"
			}
			return "must be at most " + param + " characters long"
		}
		return "too large"

	case "oneof":
		return "must be one of: " + strings.Join(splitParams(param), ", ")

	case "unique":
		return "must contain unique items"
	case "dive":
		return "array validation failed"

	case "rolename":
		return fmt.Sprintf("must be between %d and %d characters", RoleNameMin, RoleNameMax)
	}

	if param != "" {
		return "failed on '" + tag + "' with '" + param + "'"
	}
	return "failed on '" + tag + "'"
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isCollectionKind(k reflect.Kind) bool {
	return k == reflect.Slice || k == reflect.Array || k == reflect.Map
}

func splitParams(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}
