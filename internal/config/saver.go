package config

import (
	"encoding/json"
)

// Marshal serializes s together with any unknown keys that were present
// when the settings were loaded. Managed keys always win over extras.
func Marshal(s *Settings, extra map[string]json.RawMessage) ([]byte, error) {
	managed, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return indent(managed)
	}

	var out map[string]json.RawMessage
	if err := json.Unmarshal(managed, &out); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, ok := out[k]; ok {
			continue
		}
		out[k] = v
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return indent(data)
}

func indent(data []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return json.MarshalIndent(v, "", "  ")
}
