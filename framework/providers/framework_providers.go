package providers

import (
	"github.com/km-arc/service-annotations/framework/bundles"
	"github.com/km-arc/service-annotations/framework/config"
	"github.com/km-arc/service-annotations/framework/container"
)

// ── ParametersServiceProvider ─────────────────────────────────────────────────

// ParametersServiceProvider exposes the application configuration as
// container parameters so definitions and tooling can read it.
//
// Parameters written:
//   - "kernel.name"        → string
//   - "kernel.environment" → string
//   - "kernel.debug"       → bool
//   - "kernel.bundles"     → map[string]string (bundle name → namespace)
type ParametersServiceProvider struct {
	container.BaseProvider
	Config  *config.Config
	Bundles []bundles.Bundle
}

func (p *ParametersServiceProvider) Register(b *container.Builder) error {
	b.SetParameter("kernel.name", p.Config.App.Name)
	b.SetParameter("kernel.environment", p.Config.App.Env)
	b.SetParameter("kernel.debug", p.Config.App.Debug)

	names := make(map[string]string, len(p.Bundles))
	for _, bundle := range p.Bundles {
		names[bundle.Name] = bundle.Namespace
	}
	b.SetParameter("kernel.bundles", names)
	return nil
}
