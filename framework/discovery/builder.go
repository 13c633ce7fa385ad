package discovery

import (
	"fmt"

	"github.com/km-arc/service-annotations/framework/container"
)

// Definition is the handle a Registry hands out for one service.
type Definition interface {
	SetFlags(autowired, autoconfigured, public, lazy, abstract bool)
	SetArguments(args any)
	AddTag(name string, attributes map[string]any)
	SetMethodCalls(calls []any)
	SetFactory(factory any)
	SetDecoratedService(id string)
}

// Registry is the narrow write interface of a dependency-injection
// container that discovery populates.
type Registry interface {
	CreateDefinition(class string) Definition
	Register(id string, def Definition)
}

// register translates one descriptor into registry calls.
func register(reg Registry, d Descriptor) {
	svc := d.Service
	def := reg.CreateDefinition(d.Class)

	def.SetFlags(svc.Autowired, svc.Autoconfigured, svc.Public, svc.Lazy, svc.Abstract)

	if args := ResolveArguments(svc.Arguments); !isEmpty(args) {
		def.SetArguments(args)
	}
	for _, tag := range svc.Tags {
		def.AddTag(tag.Name, tag.Attributes)
	}
	if len(svc.MethodCalls) > 0 {
		def.SetMethodCalls(svc.MethodCalls)
	}
	if factory := ResolveArguments(svc.Factory); !isEmpty(factory) {
		def.SetFactory(factory)
	}
	if svc.Decorates != "" {
		def.SetDecoratedService(svc.Decorates)
	}

	reg.Register(d.ID(), def)
}

// ── container adapter ─────────────────────────────────────────────────────────

// builderRegistry writes into a container.Builder.
type builderRegistry struct {
	b *container.Builder
}

// BuilderRegistry adapts a container.Builder to Registry.
func BuilderRegistry(b *container.Builder) Registry {
	return builderRegistry{b: b}
}

func (r builderRegistry) CreateDefinition(class string) Definition {
	return container.NewDefinition(class)
}

func (r builderRegistry) Register(id string, def Definition) {
	cd, ok := def.(*container.Definition)
	if !ok {
		panic(fmt.Sprintf("discovery: [%s] definition %T was not created by this registry", id, def))
	}
	r.b.SetDefinition(id, cd)

	// A service registered under its own id stays reachable by class name.
	if cd.Class != id && !r.b.HasDefinition(cd.Class) {
		r.b.Alias(id, cd.Class)
	}
}
