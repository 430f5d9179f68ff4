package records

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/sketchbook/internal/ids"
)

var (
	validate       *validator.Validate
	obsValuesRegex = regexp.MustCompile(`^[01*]*$`)
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return ids.IsValid(fl.Field().String())
	})
	_ = validate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	_ = validate.RegisterValidation("obsvalues", func(fl validator.FieldLevel) bool {
		return obsValuesRegex.MatchString(fl.Field().String())
	})
}

// Decode parses a JSON payload into a record of type T and validates it.
// Unknown fields and trailing data are rejected.
func Decode[T any](payload string) (T, error) {
	var out T
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("decode %T: %w", out, err)
	}
	if dec.More() {
		return out, fmt.Errorf("decode %T: trailing data after record", out)
	}
	if err := Validate(out); err != nil {
		return out, err
	}
	return out, nil
}

// Validate runs struct-tag validation on a record.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validate %T: %w", v, err)
	}
	return nil
}

// Encode serializes a record to its JSON payload form.
// HTML escaping is disabled so expressions like "a && b" stay readable.
func Encode(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode %T: %w", v, err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
