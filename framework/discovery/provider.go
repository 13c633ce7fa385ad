package discovery

import (
	"github.com/km-arc/service-annotations/framework/bundles"
	"github.com/km-arc/service-annotations/framework/container"
)

// Provider registers annotated services as part of container bootstrap.
//
//	registry.Register(&discovery.Provider{Bundles: bs, Env: cfg.App.Env})
type Provider struct {
	container.BaseProvider

	Bundles []bundles.Bundle
	Env     string
	// Scanner defaults to NewScanner().
	Scanner *Scanner

	summary Summary
}

func (p *Provider) Register(b *container.Builder) error {
	s := p.Scanner
	if s == nil {
		s = NewScanner()
	}
	sum, err := s.Scan(BuilderRegistry(b), p.Bundles, p.Env)
	p.summary = sum
	return err
}

// Summary describes the pass run by Register.
func (p *Provider) Summary() Summary { return p.summary }
