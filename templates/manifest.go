package templates

import (
	"encoding/json"
	"fmt"
)

// ParamDef describes one shader parameter exposed through a template's
// manifest.json, per spec §6's "parameters" schema.
type ParamDef struct {
	Type    string          `json:"type"` // "f32", "u32", or "bool"
	Default json.RawMessage `json:"default"`
	Min     json.RawMessage `json:"min,omitempty"`
	Max     json.RawMessage `json:"max,omitempty"`
}

// Manifest is a template's manifest.json, deserialized.
type Manifest struct {
	Name           string              `json:"name"`
	DisplayName    string              `json:"display_name"`
	Description    string              `json:"description"`
	DefaultEffects []string            `json:"default_effects"`
	Parameters     map[string]ParamDef `json:"parameters"`
}

func parseManifest(raw []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Name == "" {
		return Manifest{}, fmt.Errorf("manifest missing required field \"name\"")
	}
	return m, nil
}
