// Package templates implements Sonica's shipped visualization
// templates: a manifest.json + main.wgsl pair per template, looked up
// first in an on-disk override directory and falling back to the six
// templates embedded in the binary.
package templates

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/sonica/sonica/internal/sonicaerr"
)

//go:embed assets
var embedded embed.FS

// Names lists the six shipped templates in registration order, which
// is also alphabetical for this set — the order "all" mode cycles
// through and the order --list-templates prints.
var Names = []string{
	"circular_spectrum",
	"frequency_bars",
	"kaleidoscope",
	"particle_burst",
	"spectrogram",
	"waveform_scope",
}

// Loaded is one resolved template: its manifest and raw (pre-param-
// substitution) fragment shader source.
type Loaded struct {
	Manifest       Manifest
	FragmentSource string
}

// Load resolves a template by name. If overrideDir is non-empty and
// contains a "<overrideDir>/<name>/manifest.json", that copy wins;
// otherwise the embedded copy is used. TemplateNotFound is returned
// when neither source has the name.
func Load(name, overrideDir string) (Loaded, error) {
	if overrideDir != "" {
		loaded, ok, err := loadFromDir(filepath.Join(overrideDir, name), name)
		if err != nil {
			return Loaded{}, err
		}
		if ok {
			return loaded, nil
		}
	}
	return loadEmbedded(name)
}

// List returns the registered template names available either on disk
// (under overrideDir) or embedded, sorted and deduplicated, mirroring
// the original loader's filesystem-then-embedded merge.
func List(overrideDir string) []string {
	seen := make(map[string]bool)
	var out []string
	if overrideDir != "" {
		entries, err := os.ReadDir(overrideDir)
		if err == nil {
			for _, e := range entries {
				if !e.IsDir() {
					continue
				}
				manifestPath := filepath.Join(overrideDir, e.Name(), "manifest.json")
				if _, err := os.Stat(manifestPath); err == nil && !seen[e.Name()] {
					seen[e.Name()] = true
					out = append(out, e.Name())
				}
			}
		}
	}
	for _, n := range Names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

func loadFromDir(dir, name string) (Loaded, bool, error) {
	manifestPath := filepath.Join(dir, "manifest.json")
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Loaded{}, false, nil
		}
		return Loaded{}, false, sonicaerr.WithName(sonicaerr.KindTemplateNotFound, name, fmt.Errorf("read manifest: %w", err))
	}
	manifest, err := parseManifest(raw)
	if err != nil {
		return Loaded{}, false, sonicaerr.WithName(sonicaerr.KindTemplateNotFound, name, err)
	}
	fragPath := filepath.Join(dir, "main.wgsl")
	frag, err := os.ReadFile(fragPath)
	if err != nil {
		return Loaded{}, false, sonicaerr.WithName(sonicaerr.KindTemplateNotFound, name, fmt.Errorf("read main.wgsl: %w", err))
	}
	return Loaded{Manifest: manifest, FragmentSource: string(frag)}, true, nil
}

func loadEmbedded(name string) (Loaded, error) {
	dir := "assets/" + name
	raw, err := fs.ReadFile(embedded, dir+"/manifest.json")
	if err != nil {
		return Loaded{}, sonicaerr.WithName(sonicaerr.KindTemplateNotFound, name, fmt.Errorf("no such template"))
	}
	manifest, err := parseManifest(raw)
	if err != nil {
		return Loaded{}, sonicaerr.WithName(sonicaerr.KindTemplateNotFound, name, err)
	}
	frag, err := fs.ReadFile(embedded, dir+"/main.wgsl")
	if err != nil {
		return Loaded{}, sonicaerr.WithName(sonicaerr.KindTemplateNotFound, name, fmt.Errorf("read embedded main.wgsl: %w", err))
	}
	return Loaded{Manifest: manifest, FragmentSource: string(frag)}, nil
}
