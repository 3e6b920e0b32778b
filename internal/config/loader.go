package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML or JSON run configuration and overlays it on base.
// Fields absent from the file keep their base values.
func LoadFile(path string, base RunConfig) (RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, filepath.Ext(path), base)
}

// Parse overlays configuration bytes on base. ext is the file extension used
// as a format hint (".yaml", ".yml", ".json"); empty means detect from
// content: a leading '{' is JSON, anything else YAML.
func Parse(data []byte, ext string, base RunConfig) (RunConfig, error) {
	ext = strings.ToLower(ext)
	if ext == ".yml" {
		ext = ".yaml"
	}
	if ext == "" {
		if strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
			ext = ".json"
		} else {
			ext = ".yaml"
		}
	}

	cfg := base
	switch ext {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return base, fmt.Errorf("parse config json: %w", err)
		}
	case ".yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return base, fmt.Errorf("parse config yaml: %w", err)
		}
	default:
		return base, fmt.Errorf("unsupported config format %q (want .yaml, .yml or .json)", ext)
	}
	return cfg, nil
}
