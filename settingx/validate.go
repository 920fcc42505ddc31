package settingx

import (
	"context"
	"encoding/json"
	"math"
	"reflect"

	"go.eggybyte.com/settings/core/errors"
)

// Message keys used for validation failures. i18nx catalogs translate them.
const (
	MsgExpectString      = "setting.value.string"
	MsgExpectStringArray = "setting.value.string_array"
	MsgExpectBoolean     = "setting.value.boolean"
	MsgExpectNumber      = "setting.value.number"
)

var defaultMessages = map[string]string{
	MsgExpectString:      "Setting Model : Value must be a string!",
	MsgExpectStringArray: "Setting Model : Value must be a string array!",
	MsgExpectBoolean:     "Setting Model : Value must be a boolean!",
	MsgExpectNumber:      "Setting Model : Value must be a number!",
}

// Translator localizes validation messages for the locale carried by ctx.
type Translator interface {
	Translate(ctx context.Context, key string, args ...any) string
}

// ValidationError reports a value whose shape does not match its type.
type ValidationError struct {
	Type    Type   // declared type the value was checked against
	Key     string // message key naming the expected shape
	Message string // human-readable, possibly localized
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate checks that value has the shape type requires.
//
//	text, textarea   string or nil
//	multiple_text    array of strings, possibly empty; nil is rejected
//	checkbox         bool or nil
//	number           a finite Go numeric value, a parseable json.Number, or nil
//
// Types outside this set are not checked.
func Validate(t Type, value any) error {
	key := expectation(t, value)
	if key == "" {
		return nil
	}
	return &ValidationError{Type: t, Key: key, Message: defaultMessages[key]}
}

// expectation returns the message key of the violated rule, or "".
func expectation(t Type, value any) string {
	switch t {
	case TypeText, TypeTextarea:
		if value == nil {
			return ""
		}
		if _, ok := value.(string); !ok {
			return MsgExpectString
		}
	case TypeMultipleText:
		if !isStringArray(value) {
			return MsgExpectStringArray
		}
	case TypeCheckbox:
		if value == nil {
			return ""
		}
		if _, ok := value.(bool); !ok {
			return MsgExpectBoolean
		}
	case TypeNumber:
		if value != nil && !isNumber(value) {
			return MsgExpectNumber
		}
	}
	return ""
}

func isStringArray(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case []string:
		return v != nil
	case []any:
		if v == nil {
			return false
		}
		for _, e := range v {
			if _, ok := e.(string); !ok {
				return false
			}
		}
		return true
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false
	}
	if rv.Kind() == reflect.Slice && rv.IsNil() {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if rv.Index(i).Kind() != reflect.String {
			return false
		}
	}
	return true
}

// isNumber accepts only values the JSON column can store: NaN and the
// infinities are rejected.
func isNumber(value any) bool {
	if n, ok := value.(json.Number); ok {
		f, err := n.Float64()
		return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) && json.Valid([]byte(n))
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return false
}

// localize rewrites the message of a *ValidationError through tr and wraps
// it as an INVALID_ARGUMENT error.
func localize(ctx context.Context, tr Translator, op string, err error) error {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	if tr != nil {
		if msg := tr.Translate(ctx, verr.Key); msg != "" && msg != verr.Key {
			verr.Message = msg
		}
	}
	return errors.Wrap(errors.CodeInvalidArgument, op, verr)
}
