package settingx

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"golang.org/x/text/language"

	"go.eggybyte.com/settings/core/errors"
	"go.eggybyte.com/settings/i18nx"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		value   any
		wantKey string
	}{
		{"text string", TypeText, "hello", ""},
		{"text empty string", TypeText, "", ""},
		{"text nil", TypeText, nil, ""},
		{"text number", TypeText, 42, MsgExpectString},
		{"text bool", TypeText, true, MsgExpectString},
		{"textarea string", TypeTextarea, "line1\nline2", ""},
		{"textarea nil", TypeTextarea, nil, ""},
		{"textarea list", TypeTextarea, []string{"a"}, MsgExpectString},
		{"multiple_text strings", TypeMultipleText, []string{"a", "b"}, ""},
		{"multiple_text any strings", TypeMultipleText, []any{"a", "b"}, ""},
		{"multiple_text empty", TypeMultipleText, []string{}, ""},
		{"multiple_text empty any", TypeMultipleText, []any{}, ""},
		{"multiple_text array", TypeMultipleText, [2]string{"a", "b"}, ""},
		{"multiple_text nil", TypeMultipleText, nil, MsgExpectStringArray},
		{"multiple_text nil slice", TypeMultipleText, []string(nil), MsgExpectStringArray},
		{"multiple_text mixed", TypeMultipleText, []any{"a", 1}, MsgExpectStringArray},
		{"multiple_text string", TypeMultipleText, "a", MsgExpectStringArray},
		{"multiple_text ints", TypeMultipleText, []int{1, 2}, MsgExpectStringArray},
		{"checkbox true", TypeCheckbox, true, ""},
		{"checkbox false", TypeCheckbox, false, ""},
		{"checkbox nil", TypeCheckbox, nil, ""},
		{"checkbox string true", TypeCheckbox, "true", MsgExpectBoolean},
		{"checkbox one", TypeCheckbox, 1, MsgExpectBoolean},
		{"number int", TypeNumber, 42, ""},
		{"number float", TypeNumber, 3.14, ""},
		{"number negative", TypeNumber, int64(-7), ""},
		{"number uint8", TypeNumber, uint8(7), ""},
		{"number json", TypeNumber, json.Number("12.5"), ""},
		{"number json garbage", TypeNumber, json.Number("abc"), MsgExpectNumber},
		{"number json overflow", TypeNumber, json.Number("1e400"), MsgExpectNumber},
		{"number json NaN literal", TypeNumber, json.Number("NaN"), MsgExpectNumber},
		{"number json hex", TypeNumber, json.Number("0x1p4"), MsgExpectNumber},
		{"number NaN", TypeNumber, math.NaN(), MsgExpectNumber},
		{"number +Inf", TypeNumber, math.Inf(1), MsgExpectNumber},
		{"number -Inf float32", TypeNumber, float32(math.Inf(-1)), MsgExpectNumber},
		{"number nil", TypeNumber, nil, ""},
		{"number string", TypeNumber, "42", MsgExpectNumber},
		{"number bool", TypeNumber, false, MsgExpectNumber},
		{"unknown type", Type("color"), map[string]any{"r": 1}, ""},
		{"unknown type nil", Type("color"), nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.typ, tt.value)
			if tt.wantKey == "" {
				if err != nil {
					t.Fatalf("Validate(%s, %v) = %v, want nil", tt.typ, tt.value, err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate(%s, %v) = %v, want *ValidationError", tt.typ, tt.value, err)
			}
			if verr.Key != tt.wantKey {
				t.Errorf("key = %s, want %s", verr.Key, tt.wantKey)
			}
			if verr.Type != tt.typ {
				t.Errorf("type = %s, want %s", verr.Type, tt.typ)
			}
			if verr.Error() != defaultMessages[tt.wantKey] {
				t.Errorf("message = %q, want %q", verr.Error(), defaultMessages[tt.wantKey])
			}
		})
	}
}

func TestTypeKnown(t *testing.T) {
	for _, typ := range []Type{TypeText, TypeTextarea, TypeMultipleText, TypeCheckbox, TypeNumber} {
		if !typ.Known() {
			t.Errorf("%s should be known", typ)
		}
	}
	if Type("color").Known() {
		t.Error("color should not be known")
	}
}

func TestLocalize(t *testing.T) {
	tr, err := i18nx.New()
	if err != nil {
		t.Fatalf("i18nx.New: %v", err)
	}

	tests := []struct {
		name string
		ctx  context.Context
		tr   Translator
		want string
	}{
		{"no translator", context.Background(), nil, defaultMessages[MsgExpectBoolean]},
		{"default locale", context.Background(), tr, "Setting Model : Value must be a boolean!"},
		{"french", i18nx.WithLocale(context.Background(), language.French), tr, "Paramètre : la valeur doit être un booléen !"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := localize(tt.ctx, tt.tr, "settings.test", Validate(TypeCheckbox, "true"))
			if !errors.IsCode(err, errors.CodeInvalidArgument) {
				t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
			}
			if got := errors.Message(err); got != tt.want {
				t.Errorf("message = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLocalize_PassesOtherErrors(t *testing.T) {
	cause := errors.New(errors.CodeNotFound, "missing")
	if got := localize(context.Background(), nil, "op", cause); got != cause {
		t.Errorf("non-validation errors should pass through, got %v", got)
	}
}
