package templates

import (
	"errors"
	"strings"
	"testing"

	"github.com/sonica/sonica/internal/sonicaerr"
)

func TestLoadEmbeddedEveryName(t *testing.T) {
	for _, name := range Names {
		loaded, err := Load(name, "")
		if err != nil {
			t.Fatalf("Load(%q): %v", name, err)
		}
		if loaded.Manifest.Name != name {
			t.Errorf("Load(%q): manifest name = %q", name, loaded.Manifest.Name)
		}
		if !strings.Contains(loaded.FragmentSource, "fn fs_main") {
			t.Errorf("Load(%q): fragment source missing fs_main", name)
		}
	}
}

func TestLoadUnknownTemplateFails(t *testing.T) {
	_, err := Load("not_a_real_template", "")
	var serr *sonicaerr.Error
	if !errors.As(err, &serr) {
		t.Fatalf("expected a sonicaerr.Error, got %T", err)
	}
	if serr.Kind != sonicaerr.KindTemplateNotFound {
		t.Errorf("expected KindTemplateNotFound, got %v", serr.Kind)
	}
}

func TestListIncludesAllEmbeddedNames(t *testing.T) {
	names := List("")
	for _, want := range Names {
		found := false
		for _, got := range names {
			if got == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("List(\"\") missing %q", want)
		}
	}
}

func TestApplySubstitutionsReplacesDefaults(t *testing.T) {
	loaded, err := Load("frequency_bars", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	out, err := ApplySubstitutions(loaded.FragmentSource, loaded.Manifest, nil)
	if err != nil {
		t.Fatalf("ApplySubstitutions: %v", err)
	}
	if strings.Contains(out, "PARAM_BAR_COUNT") {
		t.Error("expected PARAM_BAR_COUNT token to be substituted")
	}
	if !strings.Contains(out, "let bar_count = 64u;") {
		t.Error("expected default bar_count (64) to appear in substituted source")
	}
}

func TestApplySubstitutionsHonorsOverride(t *testing.T) {
	loaded, err := Load("frequency_bars", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	out, err := ApplySubstitutions(loaded.FragmentSource, loaded.Manifest, map[string]string{"bar_count": "32"})
	if err != nil {
		t.Fatalf("ApplySubstitutions: %v", err)
	}
	if !strings.Contains(out, "let bar_count = 32u;") {
		t.Error("expected overridden bar_count to appear verbatim")
	}
	if strings.Contains(out, "64u") {
		t.Error("expected default bar_count (64u) not to appear once overridden")
	}
}

func TestApplySubstitutionsRejectsUnknownKey(t *testing.T) {
	loaded, err := Load("frequency_bars", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	_, err = ApplySubstitutions(loaded.FragmentSource, loaded.Manifest, map[string]string{"not_a_param": "1"})
	var serr *sonicaerr.Error
	if !errors.As(err, &serr) || serr.Kind != sonicaerr.KindParam {
		t.Fatalf("expected KindParam, got %v", err)
	}
}

func TestApplySubstitutionsRejectsOutOfRange(t *testing.T) {
	loaded, err := Load("frequency_bars", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	_, err = ApplySubstitutions(loaded.FragmentSource, loaded.Manifest, map[string]string{"bar_count": "99999"})
	var serr *sonicaerr.Error
	if !errors.As(err, &serr) || serr.Kind != sonicaerr.KindParam {
		t.Fatalf("expected KindParam, got %v", err)
	}
}
