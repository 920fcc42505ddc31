package settingx

import (
	stderrors "errors"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"go.eggybyte.com/settings/core/errors"
)

// DefaultsFile is the YAML document LoadDefaults reads:
//
//	settings:
//	  - group: chatbot_settings
//	    label: global_fallback
//	    type: checkbox
//	    value: true
//	    weight: 1
type DefaultsFile struct {
	Settings []*Setting `yaml:"settings"`
}

// LoadDefaults decodes and checks a defaults document. Every entry must
// have a valid identity, a value matching its type, and a unique key.
func LoadDefaults(r io.Reader) ([]*Setting, error) {
	var file DefaultsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.CodeInvalidArgument, "settings.defaults", err)
	}

	seen := make(map[string]bool, len(file.Settings))
	for i, s := range file.Settings {
		if s == nil {
			return nil, errors.Newf(errors.CodeInvalidArgument, "defaults[%d]: empty entry", i)
		}
		if err := s.CheckIdentity(); err != nil {
			return nil, errors.Wrapf(errors.CodeInvalidArgument, "settings.defaults", err, "defaults[%d]", i)
		}
		if err := Validate(s.Type, s.Value); err != nil {
			return nil, errors.Wrapf(errors.CodeInvalidArgument, "settings.defaults", err, "defaults[%d] %s", i, s.Key())
		}
		if seen[s.Key()] {
			return nil, errors.Newf(errors.CodeInvalidArgument, "defaults[%d]: duplicate setting %s", i, s.Key())
		}
		seen[s.Key()] = true
	}
	return file.Settings, nil
}

// LoadDefaultsFile reads defaults from path.
func LoadDefaultsFile(path string) ([]*Setting, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeNotFound, "settings.defaults", err)
	}
	defer f.Close()
	return LoadDefaults(f)
}
