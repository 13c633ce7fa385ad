package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/km-arc/service-annotations/framework/bundles"
)

const testNamespace = "example.com/shop"

// writeTree writes files (relative path → content) under a fresh temp dir.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		writeFile(t, p, content)
	}
	return root
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testBundle(t *testing.T, files map[string]string) bundles.Bundle {
	t.Helper()
	return bundles.Bundle{Name: "shop", Path: writeTree(t, files), Namespace: testNamespace}
}

// loadClass writes a single file and loads the type it names.
func loadClass(t *testing.T, rel, content string) *Class {
	t.Helper()
	b := testBundle(t, map[string]string{rel: content})
	for cand, err := range NewLocator().Candidates(b) {
		require.NoError(t, err)
		c, err := NewLoader().Load(cand)
		require.NoError(t, err)
		return c
	}
	t.Fatalf("no candidate for %s", rel)
	return nil
}

// recordingRegistry records every call in order.
type recordingRegistry struct {
	calls []string
	defs  map[string]*recordedDefinition
	order []string
}

type recordedDefinition struct {
	class       string
	flags       [5]bool
	arguments   any
	tags        []recordedTag
	methodCalls []any
	factory     any
	decorates   string
}

type recordedTag struct {
	name       string
	attributes map[string]any
}

func newRecordingRegistry() *recordingRegistry {
	return &recordingRegistry{defs: make(map[string]*recordedDefinition)}
}

func (r *recordingRegistry) CreateDefinition(class string) Definition {
	r.calls = append(r.calls, "create "+class)
	return &recordedDefinition{class: class}
}

func (r *recordingRegistry) Register(id string, def Definition) {
	r.calls = append(r.calls, "register "+id)
	r.defs[id] = def.(*recordedDefinition)
	r.order = append(r.order, id)
}

func (d *recordedDefinition) SetFlags(autowired, autoconfigured, public, lazy, abstract bool) {
	d.flags = [5]bool{autowired, autoconfigured, public, lazy, abstract}
}
func (d *recordedDefinition) SetArguments(args any) { d.arguments = args }
func (d *recordedDefinition) AddTag(name string, attributes map[string]any) {
	d.tags = append(d.tags, recordedTag{name: name, attributes: attributes})
}
func (d *recordedDefinition) SetMethodCalls(calls []any)    { d.methodCalls = calls }
func (d *recordedDefinition) SetFactory(factory any)        { d.factory = factory }
func (d *recordedDefinition) SetDecoratedService(id string) { d.decorates = id }
