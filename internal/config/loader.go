package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// knownKeys lists the top-level JSON keys owned by Settings. Anything else
// found in persisted data is carried through untouched.
var knownKeys = jsonKeys(reflect.TypeOf(Settings{}))

// FieldError reports a persisted value that could not be applied to its
// field. The default is kept for that field.
type FieldError struct {
	Key string
	Err error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("settings field %q: %v", e.Key, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Merge overlays persisted data onto a copy of defaults, field by field.
// Keys present in data win; absent keys keep their default. The nested
// ollamaParameters object is overlaid key-wise as well, so parameters added
// in newer releases still receive defaults.
//
// Merge never fails the load: a value of the wrong JSON type is skipped and
// reported as a *FieldError, and unparseable data yields defaults plus the
// parse error. Unknown top-level keys are returned so Save can write them back.
func Merge(defaults *Settings, data []byte) (*Settings, map[string]json.RawMessage, error) {
	merged := defaults.Clone()

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return merged, nil, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return merged, nil, fmt.Errorf("parse settings: %w", err)
	}

	var (
		extra map[string]json.RawMessage
		errs  []error
	)
	for key, value := range raw {
		if _, ok := knownKeys[key]; !ok {
			if extra == nil {
				extra = make(map[string]json.RawMessage)
			}
			extra[key] = value
			continue
		}
		if key == ollamaParametersKey {
			errs = append(errs, mergeOllamaParameters(&merged.OllamaParameters, value)...)
			continue
		}
		if err := applyField(merged, key, value); err != nil {
			errs = append(errs, &FieldError{Key: key, Err: err})
		}
	}

	return merged, extra, errors.Join(errs...)
}

const ollamaParametersKey = "ollamaParameters"

// mergeOllamaParameters overlays each nested key separately so one bad
// parameter does not discard its siblings. Numbers are accepted for the
// string-typed parameters and kept in their literal form.
func mergeOllamaParameters(p *OllamaParameters, value json.RawMessage) []error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(value, &raw); err != nil {
		return []error{&FieldError{Key: ollamaParametersKey, Err: err}}
	}
	var errs []error
	for key, v := range raw {
		v = bytes.TrimSpace(v)
		if bytes.Equal(v, []byte("null")) {
			continue
		}
		if len(v) > 0 && (v[0] == '-' || (v[0] >= '0' && v[0] <= '9')) && key != "stop" {
			v, _ = json.Marshal(string(v))
		}
		doc, err := json.Marshal(map[string]json.RawMessage{key: v})
		if err != nil {
			errs = append(errs, &FieldError{Key: ollamaParametersKey + "." + key, Err: err})
			continue
		}
		scratch := *p
		scratch.Stop = cloneStrings(p.Stop)
		if err := json.Unmarshal(doc, &scratch); err != nil {
			errs = append(errs, &FieldError{Key: ollamaParametersKey + "." + key, Err: err})
			continue
		}
		*p = scratch
	}
	return errs
}

// applyField decodes a single {"key": value} document into s. encoding/json
// only assigns the fields present in the document, which is what gives the
// key-wise overlay for nested objects.
func applyField(s *Settings, key string, value json.RawMessage) error {
	if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
		return nil
	}
	doc, err := json.Marshal(map[string]json.RawMessage{key: value})
	if err != nil {
		return err
	}

	// Decode into a scratch copy first so a type mismatch deep inside a
	// nested object cannot leave a half-applied value behind.
	scratch := s.Clone()
	if err := json.Unmarshal(doc, scratch); err != nil {
		return err
	}
	*s = *scratch
	return nil
}

func jsonKeys(t reflect.Type) map[string]struct{} {
	keys := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		name, _, _ := strings.Cut(tag, ",")
		if name == "" || name == "-" {
			continue
		}
		keys[name] = struct{}{}
	}
	return keys
}
