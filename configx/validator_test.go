package configx

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"

	"go.eggybyte.com/settings/core/errors"
)

type seedConfig struct {
	DefaultsFile string `validate:"required"`
	Locale       string `validate:"omitempty,bcp47_language_tag"`
	Workers      int    `validate:"min=1,max=16"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		cfg     seedConfig
		wantErr string
	}{
		{"valid", seedConfig{DefaultsFile: "defaults.yaml", Locale: "fr", Workers: 2}, ""},
		{"missing file", seedConfig{Workers: 1}, "DefaultsFile"},
		{"too many workers", seedConfig{DefaultsFile: "d.yaml", Workers: 32}, "Workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(nil, &tt.cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidateStruct() error = %v", err)
				}
				return
			}
			if !errors.IsCode(err, errors.CodeInvalidArgument) {
				t.Fatalf("ValidateStruct() code = %v, want INVALID_ARGUMENT", errors.CodeOf(err))
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not name %s", err, tt.wantErr)
			}
		})
	}
}

func TestNewValidator_WithOptions(t *testing.T) {
	noColon := func(v *validator.Validate) {
		_ = v.RegisterValidation("nocolon", func(fl validator.FieldLevel) bool {
			return !strings.Contains(fl.Field().String(), ":")
		})
	}
	v := NewValidator(noColon)

	type group struct {
		Name string `validate:"nocolon"`
	}
	if err := ValidateStruct(v, &group{Name: "chatbot"}); err != nil {
		t.Errorf("valid name rejected: %v", err)
	}
	if err := ValidateStruct(v, &group{Name: "chat:bot"}); err == nil {
		t.Error("expected a colon to be rejected")
	}
}
