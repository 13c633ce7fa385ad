package app_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/service-annotations/framework/app"
	"github.com/km-arc/service-annotations/framework/bundles"
	"github.com/km-arc/service-annotations/framework/config"
	"github.com/km-arc/service-annotations/framework/discovery"
	"github.com/km-arc/service-annotations/framework/logging"
)

// ── helpers ──────────────────────────────────────────────────────────────────

const manifest = `bundles:
  - name: shop
    path: ./shop
    namespace: example.com/shop
`

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// project writes a manifest and a one-bundle source tree and returns a config
// pointing at it.
func project(t *testing.T, env string) (*config.Config, string) {
	t.Helper()
	root := t.TempDir()
	write(t, filepath.Join(root, "bundles.yaml"), manifest)
	write(t, filepath.Join(root, "shop", "mailer.go"), `package shop

//di:service id = "mailer", public = true, tags = ["event.listener"]
type Mailer struct{}
`)
	write(t, filepath.Join(root, "shop", "profiler.go"), `package shop

//di:service id = "profiler", envs = ["dev"]
type Profiler struct{}
`)

	cfg := &config.Config{
		App:  config.AppConfig{Name: "Shop", Env: env, Port: "0"},
		Scan: config.ScanConfig{BundlesFile: filepath.Join(root, "bundles.yaml")},
	}
	return cfg, root
}

// ── New / Boot ───────────────────────────────────────────────────────────────

func TestNew_RegistersServicesAndParameters(t *testing.T) {
	cfg, root := project(t, "dev")

	a, err := app.New(cfg, logging.Discard())
	require.NoError(t, err)
	require.NoError(t, a.Boot())
	assert.True(t, a.Booted())

	b := a.Builder()
	assert.Equal(t, []string{"mailer", "profiler"}, b.Definitions())

	env, _ := b.Parameter("kernel.environment")
	assert.Equal(t, "dev", env)
	name, _ := b.Parameter("kernel.name")
	assert.Equal(t, "Shop", name)
	bs, _ := b.Parameter("kernel.bundles")
	assert.Equal(t, map[string]string{"shop": "example.com/shop"}, bs)

	assert.Equal(t, []bundles.Bundle{{Name: "shop", Path: filepath.Join(root, "shop"), Namespace: "example.com/shop"}}, a.Bundles())
	assert.Equal(t, []string{"mailer", "profiler"}, a.Summary().Registered)
	assert.Equal(t, "dev", a.Environment())
	assert.False(t, a.IsDebug())
}

func TestNew_FiltersByEnvironment(t *testing.T) {
	cfg, _ := project(t, "prod")

	a, err := app.New(cfg, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, []string{"mailer"}, a.Builder().Definitions())
}

func TestNew_ConfiguredExcludes(t *testing.T) {
	cfg, root := project(t, "dev")
	write(t, filepath.Join(root, "shop", "generated", "stub.go"), "package generated\n\n//di:service id = \"stub\"\ntype Stub struct{}\n")

	a, err := app.New(cfg, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, discovery.DefaultExcludes, a.Excludes())
	assert.Equal(t, []string{"mailer", "profiler", "stub"}, a.Builder().Definitions())

	cfg.Scan.Excludes = []string{"generated"}
	a, err = app.New(cfg, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, []string{"generated"}, a.Excludes())
	assert.Equal(t, []string{"mailer", "profiler"}, a.Builder().Definitions())
}

func TestNew_MissingManifest(t *testing.T) {
	cfg := &config.Config{Scan: config.ScanConfig{BundlesFile: filepath.Join(t.TempDir(), "missing.yaml")}}

	_, err := app.New(cfg, logging.Discard())
	assert.Error(t, err)
}

func TestNew_StructuralViolationFails(t *testing.T) {
	cfg, root := project(t, "dev")
	write(t, filepath.Join(root, "shop", "greedy.go"), `package shop

//di:single-method-service
type Greedy struct{}

func (g *Greedy) A() {}
func (g *Greedy) B() {}
`)

	_, err := app.New(cfg, logging.Discard())
	require.ErrorIs(t, err, discovery.ErrStructuralViolation)
	assert.Contains(t, err.Error(), "example.com/shop.Greedy")
}

// ── Reload ───────────────────────────────────────────────────────────────────

func TestReload_PicksUpChanges(t *testing.T) {
	cfg, root := project(t, "dev")
	a, err := app.New(cfg, logging.Discard())
	require.NoError(t, err)

	write(t, filepath.Join(root, "shop", "cache.go"), "package shop\n\n//di:service id = \"cache\"\ntype Cache struct{}\n")
	require.NoError(t, a.Reload())

	assert.Equal(t, []string{"cache", "mailer", "profiler"}, a.Builder().Definitions())
	assert.True(t, a.Booted())
}

func TestReload_FailureKeepsCurrentContainer(t *testing.T) {
	cfg, root := project(t, "dev")
	a, err := app.New(cfg, logging.Discard())
	require.NoError(t, err)
	before := a.Builder()

	write(t, filepath.Join(root, "shop", "bad.go"), "package shop\n\n//di:service id = \ntype Bad struct{}\n")
	require.ErrorIs(t, a.Reload(), discovery.ErrMalformedMetadata)

	assert.Same(t, before, a.Builder())
	assert.Equal(t, []string{"mailer", "profiler"}, a.Summary().Registered)
}

// ── Handler ──────────────────────────────────────────────────────────────────

func TestHandler_ServesCurrentContainer(t *testing.T) {
	cfg, root := project(t, "dev")
	a, err := app.New(cfg, logging.Discard())
	require.NoError(t, err)
	h := a.Handler()

	serve := func(path string) int {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		return rr.Code
	}
	assert.Equal(t, http.StatusOK, serve("/api/definitions/mailer"))
	assert.Equal(t, http.StatusNotFound, serve("/api/definitions/cache"))

	write(t, filepath.Join(root, "shop", "cache.go"), "package shop\n\n//di:service id = \"cache\"\ntype Cache struct{}\n")
	require.NoError(t, a.Reload())
	assert.Equal(t, http.StatusOK, serve("/api/definitions/cache"))
}
