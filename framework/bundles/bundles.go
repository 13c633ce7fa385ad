// Package bundles loads the manifest of source bundles that annotation
// discovery scans.
//
// A manifest is a YAML file:
//
//	bundles:
//	  - name: mail
//	    path: ./internal/mail
//	    namespace: github.com/acme/shop/internal/mail
//
// Relative paths are resolved against the manifest's directory.
package bundles

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidManifest is returned when a manifest entry is incomplete.
var ErrInvalidManifest = errors.New("bundles: invalid manifest")

// Bundle is one independently scannable source root.
type Bundle struct {
	Name string `yaml:"name" json:"name"`
	// Path is the directory on disk.
	Path string `yaml:"path" json:"path"`
	// Namespace is the Go import path that Path corresponds to.
	Namespace string `yaml:"namespace" json:"namespace"`
}

// IsVendored reports whether the bundle lives under a vendor/ directory.
func (b Bundle) IsVendored() bool {
	p := "/" + filepath.ToSlash(b.Path) + "/"
	return strings.Contains(p, "/vendor/")
}

type manifest struct {
	Bundles []Bundle `yaml:"bundles"`
}

// Load reads and validates the manifest at path.
func Load(path string) ([]Bundle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bundles manifest: %w", err)
	}
	return Parse(raw, filepath.Dir(path))
}

// Parse decodes a manifest, resolving relative bundle paths against baseDir.
func Parse(raw []byte, baseDir string) ([]Bundle, error) {
	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode bundles manifest: %w", err)
	}

	out := make([]Bundle, 0, len(m.Bundles))
	for i, b := range m.Bundles {
		if b.Path == "" {
			return nil, fmt.Errorf("%w: bundle #%d has no path", ErrInvalidManifest, i)
		}
		if b.Namespace == "" {
			return nil, fmt.Errorf("%w: bundle #%d (%s) has no namespace", ErrInvalidManifest, i, b.Path)
		}
		if !filepath.IsAbs(b.Path) {
			b.Path = filepath.Join(baseDir, b.Path)
		}
		b.Namespace = strings.TrimSuffix(b.Namespace, "/")
		if b.Name == "" {
			b.Name = filepath.Base(b.Path)
		}
		out = append(out, b)
	}
	return out, nil
}
