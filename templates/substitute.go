package templates

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sonica/sonica/internal/sonicaerr"
)

// ApplySubstitutions resolves every parameter declared in manifest
// against overrides (falling back to the manifest default), validates
// it against min/max when present, and replaces every occurrence of
// PARAM_<UPPERCASE_NAME> in source with its literal WGSL text, per
// spec §6's shader contract.
func ApplySubstitutions(source string, manifest Manifest, overrides map[string]string) (string, error) {
	for key := range overrides {
		if _, ok := manifest.Parameters[key]; !ok {
			return "", sonicaerr.WithName(sonicaerr.KindParam, key, fmt.Errorf("template %q has no parameter %q", manifest.Name, key))
		}
	}

	out := source
	for name, def := range manifest.Parameters {
		overrideValue, hasOverride := overrides[name]
		literal, err := resolveParamLiteral(manifest.Name, name, def, overrideValue, hasOverride)
		if err != nil {
			return "", err
		}
		token := "PARAM_" + strings.ToUpper(name)
		out = strings.ReplaceAll(out, token, literal)
	}
	return out, nil
}

func resolveParamLiteral(templateName, name string, def ParamDef, overrideValue string, hasOverride bool) (string, error) {
	switch def.Type {
	case "f32":
		v, err := resolveFloat(templateName, name, def, overrideValue, hasOverride)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(v, 'f', 6, 64), nil
	case "u32":
		v, err := resolveUint(templateName, name, def, overrideValue, hasOverride)
		if err != nil {
			return "", err
		}
		return strconv.FormatUint(v, 10) + "u", nil
	case "bool":
		v, err := resolveBool(overrideValue, hasOverride, def)
		if err != nil {
			return "", sonicaerr.WithName(sonicaerr.KindParam, name, err)
		}
		if v {
			return "true", nil
		}
		return "false", nil
	default:
		return "", sonicaerr.WithName(sonicaerr.KindParam, name, fmt.Errorf("unknown parameter type %q", def.Type))
	}
}

func resolveFloat(templateName, name string, def ParamDef, overrideValue string, hasOverride bool) (float64, error) {
	var v float64
	if hasOverride {
		parsed, err := strconv.ParseFloat(overrideValue, 64)
		if err != nil {
			return 0, sonicaerr.WithName(sonicaerr.KindParam, name, fmt.Errorf("parameter %q: %q is not a float: %w", name, overrideValue, err))
		}
		v = parsed
	} else {
		v = jsonFloat(def.Default)
	}
	if lo, ok := jsonFloatOK(def.Min); ok && v < lo {
		return 0, sonicaerr.WithName(sonicaerr.KindParam, name, fmt.Errorf("parameter %q: %v below minimum %v", name, v, lo))
	}
	if hi, ok := jsonFloatOK(def.Max); ok && v > hi {
		return 0, sonicaerr.WithName(sonicaerr.KindParam, name, fmt.Errorf("parameter %q: %v above maximum %v", name, v, hi))
	}
	return v, nil
}

func resolveUint(templateName, name string, def ParamDef, overrideValue string, hasOverride bool) (uint64, error) {
	var v uint64
	if hasOverride {
		parsed, err := strconv.ParseUint(overrideValue, 10, 64)
		if err != nil {
			return 0, sonicaerr.WithName(sonicaerr.KindParam, name, fmt.Errorf("parameter %q: %q is not a uint: %w", name, overrideValue, err))
		}
		v = parsed
	} else {
		v = uint64(jsonFloat(def.Default))
	}
	if lo, ok := jsonFloatOK(def.Min); ok && float64(v) < lo {
		return 0, sonicaerr.WithName(sonicaerr.KindParam, name, fmt.Errorf("parameter %q: %v below minimum %v", name, v, lo))
	}
	if hi, ok := jsonFloatOK(def.Max); ok && float64(v) > hi {
		return 0, sonicaerr.WithName(sonicaerr.KindParam, name, fmt.Errorf("parameter %q: %v above maximum %v", name, v, hi))
	}
	return v, nil
}

func resolveBool(overrideValue string, hasOverride bool, def ParamDef) (bool, error) {
	if hasOverride {
		switch overrideValue {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		default:
			return false, fmt.Errorf("%q is not a bool", overrideValue)
		}
	}
	return string(def.Default) == "true", nil
}

func jsonFloat(raw []byte) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	return v
}

func jsonFloatOK(raw []byte) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	return v, err == nil
}
