package discovery

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/service-annotations/framework/bundles"
	"github.com/km-arc/service-annotations/framework/container"
	"github.com/km-arc/service-annotations/framework/logging"
)

// shopFiles is a small bundle exercising both syntaxes.
var shopFiles = map[string]string{
	"logger.go": `package shop

//di:service id = "logger"
type Logger struct{}
`,
	"mail/smtp_mailer.go": `package mail

// SMTPMailer sends mail.
//
//di:service id = "mailer", public = true, priority = 5
//di:service arguments = ["@logger", "!tagged handler", "literal"]
//di:service tags = [
//di:service   {name = "event.listener", attributes = {event = "boot"}},
//di:service   {name = "event.listener", attributes = {event = "shutdown"}},
//di:service ]
//di:service factory = ["@mailer.factory", "create"]
type SMTPMailer struct{}

func (m *SMTPMailer) Send() error  { return nil }
func (m *SMTPMailer) Queue() error { return nil }
`,
	"handler.go": `package shop

//di:single-method-service priority = 1, tags = ["handler"]
type Handler struct{}

func NewHandler() *Handler { return &Handler{} }

func (h *Handler) Handle() error { return nil }
func (h *Handler) Close() error  { return nil }
func (h *Handler) reset()        {}
`,
	"legacy.go": `package shop

// Legacy predates directives.
//
// @Service(id="legacy", priority=1, arguments={"$retries"=3, "$log"="@logger"})
type Legacy struct{}
`,
	"plain.go": `package shop

// Plain has no metadata.
type Plain struct{}
`,
	"broken.go": "package shop\n\ntype Broken struct{\n",
	"tests/fixture.go": `package tests

//di:service id = "fixture"
type Fixture struct{}
`,
}

func TestScanner_RegistersInPriorityOrder(t *testing.T) {
	reg := newRecordingRegistry()
	err := NewScanner().RegisterServices(reg, []bundles.Bundle{testBundle(t, shopFiles)}, "dev")
	require.NoError(t, err)

	handler := testNamespace + ".Handler"
	assert.Equal(t, []string{
		"create " + testNamespace + ".Logger", "register logger",
		"create " + handler, "register " + handler,
		"create " + testNamespace + ".Legacy", "register legacy",
		"create " + testNamespace + "/mail.SMTPMailer", "register mailer",
	}, reg.calls)
}

func TestScanner_TranslatesDescriptors(t *testing.T) {
	reg := newRecordingRegistry()
	require.NoError(t, NewScanner().RegisterServices(reg, []bundles.Bundle{testBundle(t, shopFiles)}, "dev"))

	mailer := reg.defs["mailer"]
	require.NotNil(t, mailer)
	assert.Equal(t, testNamespace+"/mail.SMTPMailer", mailer.class)
	assert.Equal(t, [5]bool{true, true, true, false, false}, mailer.flags)
	assert.Equal(t, []any{
		container.Reference{ID: "logger"},
		container.TaggedIterator{Tag: "handler"},
		"literal",
	}, mailer.arguments)
	assert.Equal(t, []recordedTag{
		{name: "event.listener", attributes: map[string]any{"event": "boot"}},
		{name: "event.listener", attributes: map[string]any{"event": "shutdown"}},
	}, mailer.tags)
	assert.Equal(t, []any{container.Reference{ID: "mailer.factory"}, "create"}, mailer.factory)
	assert.Empty(t, mailer.decorates)

	legacy := reg.defs["legacy"]
	require.NotNil(t, legacy)
	assert.Equal(t, map[string]any{"$retries": int64(3), "$log": container.Reference{ID: "logger"}}, legacy.arguments)

	logger := reg.defs["logger"]
	require.NotNil(t, logger)
	assert.Nil(t, logger.arguments, "empty arguments are not written")
	assert.Nil(t, logger.factory)
	assert.Nil(t, logger.methodCalls)
}

func TestScanner_SkipsExcludedAndUnannotated(t *testing.T) {
	reg := newRecordingRegistry()
	sum, err := NewScanner().Scan(reg, []bundles.Bundle{testBundle(t, shopFiles)}, "dev")
	require.NoError(t, err)

	assert.NotContains(t, reg.defs, "fixture")
	assert.NotContains(t, reg.defs, testNamespace+".Plain")
	assert.NotContains(t, reg.defs, testNamespace+".Broken")
	assert.Len(t, sum.Registered, 4)
	assert.Equal(t, 6, sum.Candidates)
	assert.NotEmpty(t, sum.PassID)
}

func TestScanner_EnvironmentFilter(t *testing.T) {
	files := map[string]string{
		"profiler.go": `package shop

//di:service id = "profiler", envs = ["dev", "test"]
type Profiler struct{}
`,
		"cache.go": `package shop

//di:service id = "cache"
type Cache struct{}
`,
	}

	tests := map[string][]string{
		"dev":  {"cache", "profiler"},
		"test": {"cache", "profiler"},
		"prod": {"cache"},
	}
	for env, want := range tests {
		t.Run(env, func(t *testing.T) {
			reg := newRecordingRegistry()
			require.NoError(t, NewScanner().RegisterServices(reg, []bundles.Bundle{testBundle(t, files)}, env))
			assert.Equal(t, want, reg.order)
		})
	}
}

func TestScanner_StructuralViolationAbortsBeforeRegistering(t *testing.T) {
	files := map[string]string{
		"a_ok.go": `package shop

//di:service
type AOk struct{}
`,
		"greedy.go": `package shop

//di:single-method-service envs = ["prod"]
type Greedy struct{}

func (g *Greedy) Handle() {}
func (g *Greedy) Other()  {}
`,
	}

	reg := newRecordingRegistry()
	// Greedy is not active in dev; structure is still enforced.
	err := NewScanner().RegisterServices(reg, []bundles.Bundle{testBundle(t, files)}, "dev")

	require.ErrorIs(t, err, ErrStructuralViolation)
	assert.Contains(t, err.Error(), testNamespace+".Greedy")
	assert.Contains(t, err.Error(), "Handle, Other")
	assert.Empty(t, reg.calls)
}

func TestScanner_StructuralCheckCountsPromotedMethods(t *testing.T) {
	base := `package shop

type base struct{}

func (b *base) Handle() {}
func (b *base) Extra()  {}
func (b *base) Close() error { return nil }
`
	tests := map[string]struct {
		handler string
		wantErr bool
	}{
		"promoted method breaks the contract": {
			handler: `package shop

//di:single-method-service
type Handler struct{ *base }

func (h *Handler) Handle() {}
`,
			wantErr: true,
		},
		"field hides the promoted method": {
			handler: `package shop

//di:single-method-service
type Handler struct {
	*base
	Extra func()
}

func (h *Handler) Handle() {}
`,
		},
		"ambiguous selector is not promoted": {
			handler: `package shop

type other struct{}

func (other) Extra() {}

//di:single-method-service
type Handler struct {
	base
	other
}

func (h *Handler) Handle() {}
`,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			files := map[string]string{"base.go": base, "handler.go": tt.handler}
			reg := newRecordingRegistry()
			err := NewScanner().RegisterServices(reg, []bundles.Bundle{testBundle(t, files)}, "dev")
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, []string{testNamespace + ".Handler"}, reg.order)
				return
			}
			require.ErrorIs(t, err, ErrStructuralViolation)
			assert.Contains(t, err.Error(), testNamespace+".Handler")
			assert.Contains(t, err.Error(), "Extra, Handle")
		})
	}
}

func TestScanner_LegacySingleMethodIsNotValidated(t *testing.T) {
	files := map[string]string{
		"multi.go": `package shop

// @SingleMethodService
type Multi struct{}

func (m *Multi) A() {}
func (m *Multi) B() {}
`,
	}

	reg := newRecordingRegistry()
	require.NoError(t, NewScanner().RegisterServices(reg, []bundles.Bundle{testBundle(t, files)}, "dev"))
	assert.Empty(t, reg.calls)
}

func TestScanner_MalformedMetadataAborts(t *testing.T) {
	files := map[string]string{
		"a_ok.go": "package shop\n\n//di:service\ntype AOk struct{}\n",
		"bad.go":  "package shop\n\n//di:service id = \ntype Bad struct{}\n",
	}

	reg := newRecordingRegistry()
	err := NewScanner().RegisterServices(reg, []bundles.Bundle{testBundle(t, files)}, "dev")
	require.ErrorIs(t, err, ErrMalformedMetadata)
	assert.Empty(t, reg.calls)
}

func TestScanner_MultipleBundles(t *testing.T) {
	first := testBundle(t, map[string]string{"a.go": "package shop\n\n//di:service id = \"a\", priority = 2\ntype A struct{}\n"})
	second := bundles.Bundle{
		Name:      "blog",
		Path:      writeTree(t, map[string]string{"b.go": "package blog\n\n//di:service id = \"b\"\ntype B struct{}\n"}),
		Namespace: "example.com/blog",
	}

	reg := newRecordingRegistry()
	require.NoError(t, NewScanner().RegisterServices(reg, []bundles.Bundle{first, second}, "dev"))
	assert.Equal(t, []string{"b", "a"}, reg.order)
	assert.Equal(t, "example.com/blog.B", reg.defs["b"].class)
}

func TestScanner_SameClassTwiceRegistersOnce(t *testing.T) {
	b := testBundle(t, map[string]string{"a.go": "package shop\n\n//di:service id = \"a\"\ntype A struct{}\n"})

	reg := newRecordingRegistry()
	require.NoError(t, NewScanner().RegisterServices(reg, []bundles.Bundle{b, b}, "dev"))
	assert.Equal(t, []string{"a"}, reg.order)
}

func TestScanner_VendoredBundleIsSkipped(t *testing.T) {
	root := writeTree(t, map[string]string{"vendor/lib/a.go": "package lib\n\n//di:service\ntype A struct{}\n"})
	b := bundles.Bundle{Name: "lib", Path: filepath.Join(root, "vendor", "lib"), Namespace: "example.com/lib"}

	reg := newRecordingRegistry()
	require.NoError(t, NewScanner().RegisterServices(reg, []bundles.Bundle{b}, "dev"))
	assert.Empty(t, reg.calls)
}

func TestScanner_MissingBundleRootFails(t *testing.T) {
	b := bundles.Bundle{Name: "gone", Path: filepath.Join(t.TempDir(), "missing"), Namespace: "example.com/gone"}

	err := NewScanner().RegisterServices(newRecordingRegistry(), []bundles.Bundle{b}, "dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan bundle gone")
}

func TestScanner_PicksUpChangesBetweenPasses(t *testing.T) {
	b := testBundle(t, map[string]string{"a.go": "package shop\n\n//di:service id = \"a\"\ntype A struct{}\n"})
	s := NewScanner()

	reg := newRecordingRegistry()
	require.NoError(t, s.RegisterServices(reg, []bundles.Bundle{b}, "dev"))
	assert.Equal(t, []string{"a"}, reg.order)

	writeFile(t, filepath.Join(b.Path, "a.go"), "package shop\n\n//di:service id = \"renamed\"\ntype A struct{}\n")

	reg = newRecordingRegistry()
	require.NoError(t, s.RegisterServices(reg, []bundles.Bundle{b}, "dev"))
	assert.Equal(t, []string{"renamed"}, reg.order)
}

func TestScanner_LogsSummary(t *testing.T) {
	var buf bytes.Buffer
	s := NewScanner(WithLogger(logging.New("debug", "json", &buf)))

	require.NoError(t, s.RegisterServices(newRecordingRegistry(), []bundles.Bundle{testBundle(t, shopFiles)}, "dev"))

	out := buf.String()
	assert.Contains(t, out, `"msg":"annotated services registered"`)
	assert.Contains(t, out, `"services":4`)
	assert.Contains(t, out, `"id":"mailer"`)
}

func TestProvider_FillsBuilder(t *testing.T) {
	b := container.New()
	providers := container.NewProviderRegistry(b)

	require.NoError(t, providers.Register(&Provider{
		Bundles: []bundles.Bundle{testBundle(t, shopFiles)},
		Env:     "dev",
	}))

	def, ok := b.Definition("mailer")
	require.True(t, ok)
	assert.True(t, def.Public)
	assert.Equal(t, container.Reference{ID: "logger"}, def.Arguments.([]any)[0])

	listeners := b.FindTaggedServiceIDs("event.listener")
	require.Len(t, listeners, 2)
	assert.Equal(t, "mailer", listeners[0].ID)
	assert.Equal(t, map[string]any{"event": "shutdown"}, listeners[1].Attributes)

	handlers := b.FindTaggedServiceIDs("handler")
	require.Len(t, handlers, 1)
	assert.Equal(t, testNamespace+".Handler", handlers[0].ID)

	byClass, ok := b.Definition(testNamespace + "/mail.SMTPMailer")
	require.True(t, ok, "a renamed service resolves by class name")
	assert.Same(t, def, byClass)
	assert.NotContains(t, b.Definitions(), testNamespace+"/mail.SMTPMailer")
}

func TestBuilderRegistry_ClassAliasNeverShadowsADefinition(t *testing.T) {
	b := container.New()
	reg := BuilderRegistry(b)

	reg.Register("example.com/shop.Mailer", reg.CreateDefinition("example.com/shop.Other"))
	reg.Register("mailer", reg.CreateDefinition("example.com/shop.Mailer"))

	def, ok := b.Definition("example.com/shop.Mailer")
	require.True(t, ok)
	assert.Equal(t, "example.com/shop.Other", def.Class)
}

func TestProvider_PropagatesScanErrors(t *testing.T) {
	files := map[string]string{"bad.go": "package shop\n\n//di:service public = 1\ntype Bad struct{}\n"}

	err := container.NewProviderRegistry(container.New()).Register(&Provider{
		Bundles: []bundles.Bundle{testBundle(t, files)},
		Env:     "dev",
	})
	require.ErrorIs(t, err, ErrMalformedMetadata)
}
