// Package validate runs struct-tag validation for request payloads.
//
// Supported rules (comma-separated in the `validate` tag):
//
//	required     field must not be zero/empty; a non-nil pointer is always present
//	nullable     if empty, skip all remaining rules for this field
//	email        valid email address
//	min=N        string: min char length | slice: min items | number: min value
//	max=N        string: max char length | slice: max items | number: max value
//	gte=N        number >= N
//	lte=N        number <= N
//	in=a|b|c     value must be one of the listed items
//	objectid     24 hex character document id
//	clock        "HH:MM" 24h time of day
//
// Nested structs and slices of structs are validated recursively; their
// errors are keyed by dotted path ("shippingAddress.city", "items.0.quantity").
//
//	type Input struct {
//	    Name  string `json:"name"  validate:"required,max=50"`
//	    Email string `json:"email" validate:"required,email"`
//	    Role  string `json:"role"  validate:"nullable,in=user|admin"`
//	}
package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Struct validates all exported fields of v that carry a `validate` tag.
// Returns a map of fieldName → error message; empty map means no errors.
func Struct(v interface{}) map[string]string {
	errs := make(map[string]string)
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return errs
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return errs
	}
	walk(rv, "", errs)
	return errs
}

// HasErrors returns true when the errs map is non-empty.
func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

var timeType = reflect.TypeOf(time.Time{})

func walk(rv reflect.Value, prefix string, errs map[string]string) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		value := rv.Field(i)
		name := prefix + jsonFieldName(field)

		if tag := field.Tag.Get("validate"); tag != "" && tag != "-" {
			rules := strings.Split(tag, ",")
			if hasRule(rules, "nullable") && isEmpty(value) {
				continue
			}
			failed := false
			for _, rule := range rules {
				if rule == "nullable" {
					continue
				}
				if msg := applyRule(strings.TrimSpace(rule), name, value); msg != "" {
					errs[name] = msg
					failed = true
					break // first failing rule per field
				}
			}
			if failed {
				continue
			}
		}

		descend(value, name, errs)
	}
}

func descend(value reflect.Value, name string, errs map[string]string) {
	switch value.Kind() {
	case reflect.Ptr:
		if !value.IsNil() {
			descend(value.Elem(), name, errs)
		}
	case reflect.Struct:
		if value.Type() != timeType {
			walk(value, name+".", errs)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < value.Len(); i++ {
			el := value.Index(i)
			if el.Kind() == reflect.Ptr && !el.IsNil() {
				el = el.Elem()
			}
			if el.Kind() == reflect.Struct && el.Type() != timeType {
				walk(el, fmt.Sprintf("%s.%d.", name, i), errs)
			}
		}
	}
}

func applyRule(rule, field string, v reflect.Value) string {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			if rule == "required" {
				return fmt.Sprintf("The %s field is required.", field)
			}
			return ""
		}
		if rule == "required" {
			return ""
		}
		v = v.Elem()
	}
	raw := fmt.Sprintf("%v", v.Interface())
	key, param, _ := strings.Cut(rule, "=")

	switch key {
	case "required":
		if isEmpty(v) {
			return fmt.Sprintf("The %s field is required.", field)
		}
	case "email":
		if !emailRE.MatchString(raw) {
			return fmt.Sprintf("The %s must be a valid email address.", field)
		}
	case "objectid":
		if !primitive.IsValidObjectID(raw) {
			return fmt.Sprintf("The %s must be a valid id.", field)
		}
	case "clock":
		if _, err := time.Parse("15:04", raw); err != nil || len(raw) != 5 {
			return fmt.Sprintf("The %s must be a time in HH:MM format.", field)
		}
	case "min":
		n := mustParseFloat(param)
		switch {
		case isNumericKind(v):
			if toFloat(v) < n {
				return fmt.Sprintf("The %s must be at least %s.", field, param)
			}
		case v.Kind() == reflect.Slice:
			if float64(v.Len()) < n {
				return fmt.Sprintf("The %s must have at least %s items.", field, param)
			}
		default:
			if float64(len([]rune(raw))) < n {
				return fmt.Sprintf("The %s must be at least %s characters.", field, param)
			}
		}
	case "max":
		n := mustParseFloat(param)
		switch {
		case isNumericKind(v):
			if toFloat(v) > n {
				return fmt.Sprintf("The %s must not be greater than %s.", field, param)
			}
		case v.Kind() == reflect.Slice:
			if float64(v.Len()) > n {
				return fmt.Sprintf("The %s must not have more than %s items.", field, param)
			}
		default:
			if float64(len([]rune(raw))) > n {
				return fmt.Sprintf("The %s must not exceed %s characters.", field, param)
			}
		}
	case "gte":
		if toFloat(v) < mustParseFloat(param) {
			return fmt.Sprintf("The %s must be greater than or equal to %s.", field, param)
		}
	case "lte":
		if toFloat(v) > mustParseFloat(param) {
			return fmt.Sprintf("The %s must be less than or equal to %s.", field, param)
		}
	case "in":
		for _, a := range strings.Split(param, "|") {
			if raw == strings.TrimSpace(a) {
				return ""
			}
		}
		return fmt.Sprintf("The selected %s is invalid.", field)
	}

	return ""
}

var emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Bool:
		return false // false is a valid boolean value, not empty
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Struct:
		if v.Type() == timeType {
			return v.Interface().(time.Time).IsZero()
		}
		return v.IsZero()
	}
	return false
}

func isNumericKind(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func toFloat(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	f, _ := strconv.ParseFloat(fmt.Sprintf("%v", v.Interface()), 64)
	return f
}

func mustParseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func jsonFieldName(f reflect.StructField) string {
	name := f.Tag.Get("json")
	if name == "" || name == "-" {
		return strings.ToLower(f.Name[:1]) + f.Name[1:]
	}
	if idx := strings.Index(name, ","); idx != -1 {
		name = name[:idx]
	}
	return name
}

func hasRule(rules []string, target string) bool {
	for _, r := range rules {
		if strings.TrimSpace(r) == target {
			return true
		}
	}
	return false
}
