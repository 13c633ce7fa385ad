// Package container provides the service-definition registry that annotation
// discovery populates, plus the ServiceProvider bootstrap protocol.
//
// # Overview
//
// The builder stores definitions keyed by service id. A definition records the
// class, five boolean flags, constructor arguments, tags, method calls, a
// factory and an optional decoration target. It does not build instances,
// detect cycles or generate lazy proxies; that belongs to whatever runtime
// consumes the builder.
//
// # Definitions
//
//	def := container.NewDefinition("github.com/acme/mail.SMTPMailer")
//	def.SetFlags(true, true, false, false, false)
//	def.SetArguments([]any{container.Reference{ID: "logger"}})
//	def.AddTag("event.listener", map[string]any{"event": "boot"})
//	b.SetDefinition("mailer", def)
//
// # Argument placeholders
//
//	container.Reference{ID: "logger"}          // the service "logger"
//	container.TaggedIterator{Tag: "handler"}   // every service tagged "handler"
//
// # Tags
//
//	for _, ts := range b.FindTaggedServiceIDs("event.listener") {
//	    fmt.Println(ts.ID, ts.Attributes)
//	}
//
// # Service Providers
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(b *container.Builder) error {
//	    b.SetParameter("mailer.transport", "smtp")
//	    return nil
//	}
//
//	registry := container.NewProviderRegistry(b)
//	if err := registry.Register(&AppServiceProvider{}); err != nil { ... }
//	if err := registry.Boot(); err != nil { ... }
package container
