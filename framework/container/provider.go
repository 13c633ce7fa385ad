package container

import "fmt"

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider fills the builder during bootstrap.
//
// Boot() is called after ALL providers have been registered, making it safe
// to inspect definitions written by other providers inside Boot().
//
//	type MailProvider struct{ container.BaseProvider }
//
//	func (p *MailProvider) Register(b *container.Builder) error {
//	    b.SetDefinition("mailer", container.NewDefinition("github.com/acme/mail.SMTPMailer"))
//	    return nil
//	}
type ServiceProvider interface {
	// Register writes definitions and parameters into the builder.
	Register(b *Builder) error

	// Boot is called after all providers are registered.
	Boot(b *Builder) error
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct that provides a no-op Boot().
// Embed it in your provider and only override what you need.
//
//	type MyProvider struct{ container.BaseProvider }
//	func (p *MyProvider) Register(b *container.Builder) error { ... }
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Builder) error { return nil }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry manages registration and booting of ServiceProviders.
type ProviderRegistry struct {
	builder    *Builder
	providers  []ServiceProvider
	booted     bool
	registered map[ServiceProvider]bool
}

// NewProviderRegistry creates a registry bound to b.
func NewProviderRegistry(b *Builder) *ProviderRegistry {
	return &ProviderRegistry{
		builder:    b,
		registered: make(map[ServiceProvider]bool),
	}
}

// Register adds a provider and calls its Register() method.
// Registering the same provider twice is a no-op.
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	if r.registered[provider] {
		return nil
	}
	r.registered[provider] = true

	if err := provider.Register(r.builder); err != nil {
		return fmt.Errorf("register %T: %w", provider, err)
	}
	r.providers = append(r.providers, provider)

	// If already booted, boot this provider immediately
	if r.booted {
		if err := provider.Boot(r.builder); err != nil {
			return fmt.Errorf("boot %T: %w", provider, err)
		}
	}
	return nil
}

// Boot calls Boot() on all registered providers, stopping at the first error.
// Must be called after ALL providers have been registered.
func (r *ProviderRegistry) Boot() error {
	if r.booted {
		return nil
	}
	r.booted = true
	for _, provider := range r.providers {
		if err := provider.Boot(r.builder); err != nil {
			return fmt.Errorf("boot %T: %w", provider, err)
		}
	}
	return nil
}

// Booted returns true if Boot() has been called.
func (r *ProviderRegistry) Booted() bool { return r.booted }
