package config

import (
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed presets/*.yaml
var presetFS embed.FS

// Preset overlays the embedded preset name on base.
func Preset(name string, base RunConfig) (RunConfig, error) {
	data, err := presetFS.ReadFile("presets/" + name + ".yaml")
	if err != nil {
		return base, fmt.Errorf("preset %q not found (available: %s): %w",
			name, strings.Join(ListPresets(), ", "), err)
	}
	cfg, err := Parse(data, ".yaml", base)
	if err != nil {
		return base, fmt.Errorf("preset %q: %w", name, err)
	}
	return cfg, nil
}

// ListPresets returns the names of all embedded presets, sorted.
func ListPresets() []string {
	entries, _ := presetFS.ReadDir("presets")
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
		}
	}
	sort.Strings(names)
	return names
}
