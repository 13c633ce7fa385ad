package bundles_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/service-annotations/framework/bundles"
)

func TestParse_ResolvesRelativePaths(t *testing.T) {
	raw := []byte(`
bundles:
  - name: mail
    path: ./internal/mail
    namespace: github.com/acme/shop/internal/mail/
  - path: /abs/billing
    namespace: github.com/acme/billing
`)
	got, err := bundles.Parse(raw, "/srv/shop")
	require.NoError(t, err)

	assert.Equal(t, []bundles.Bundle{
		{Name: "mail", Path: filepath.Join("/srv/shop", "internal/mail"), Namespace: "github.com/acme/shop/internal/mail"},
		{Name: "billing", Path: "/abs/billing", Namespace: "github.com/acme/billing"},
	}, got)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"missing path":      "bundles:\n  - namespace: github.com/acme/x\n",
		"missing namespace": "bundles:\n  - path: ./x\n",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := bundles.Parse([]byte(raw), ".")
			require.ErrorIs(t, err, bundles.ErrInvalidManifest)
		})
	}
}

func TestParse_BadYAML(t *testing.T) {
	_, err := bundles.Parse([]byte("bundles: [\n"), ".")
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bundles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bundles:\n  - path: app\n    namespace: example.com/app\n"), 0o644))

	got, err := bundles.Load(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, filepath.Join(dir, "app"), got[0].Path)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := bundles.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestBundle_IsVendored(t *testing.T) {
	assert.True(t, bundles.Bundle{Path: "/srv/shop/vendor/github.com/x"}.IsVendored())
	assert.True(t, bundles.Bundle{Path: "/srv/shop/vendor"}.IsVendored())
	assert.False(t, bundles.Bundle{Path: "/srv/shop/internal/mail"}.IsVendored())
	assert.False(t, bundles.Bundle{Path: "/srv/shop/myvendorlib"}.IsVendored())
}
