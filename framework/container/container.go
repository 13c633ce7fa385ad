package container

import (
	"fmt"
	"sort"
	"sync"
)

// ── Builder ───────────────────────────────────────────────────────────────────

// Builder is the service-definition registry. Definitions stay mutable
// until something compiles them.
//
// It stores definitions and parameters only. Turning definitions into live
// instances is left to whatever consumes the builder.
//
// It supports:
//   - SetDefinition / Definition / HasDefinition / Definitions
//   - Alias (alternative ids for a definition)
//   - Tags (FindTaggedServiceIDs)
//   - Decoration (Decorators)
//   - Parameters
type Builder struct {
	mu sync.RWMutex

	// id → definition
	definitions map[string]*Definition

	// registration order of ids, first registration wins the slot
	order []string

	// alias → id (canonical key)
	aliases map[string]string

	// name → value
	parameters map[string]any
}

// New creates an empty builder.
func New() *Builder {
	return &Builder{
		definitions: make(map[string]*Definition),
		aliases:     make(map[string]string),
		parameters:  make(map[string]any),
	}
}

// ── Registration ──────────────────────────────────────────────────────────────

// SetDefinition registers def under id. A later call with the same id
// replaces the earlier definition.
//
//	b.SetDefinition("mailer", container.NewDefinition("github.com/acme/mail.SMTPMailer"))
func (b *Builder) SetDefinition(id string, def *Definition) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.aliases, id)
	if _, exists := b.definitions[id]; !exists {
		b.order = append(b.order, id)
	}
	b.definitions[id] = def
}

// Alias registers an alternative id for a definition.
//
//	b.Alias("mailer", "mailer.default")
func (b *Builder) Alias(id, alias string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id == alias {
		panic(fmt.Sprintf("container: [%s] is aliased to itself", id))
	}
	b.aliases[alias] = b.canonical(id)
}

// SetParameter stores a named parameter.
func (b *Builder) SetParameter(name string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.parameters[name] = value
}

// ── Lookup ────────────────────────────────────────────────────────────────────

// Definition returns the definition registered under id (or an alias of it).
func (b *Builder) Definition(id string) (*Definition, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	def, ok := b.definitions[b.canonical(id)]
	return def, ok
}

// HasDefinition returns true if id (or an alias of it) is registered.
func (b *Builder) HasDefinition(id string) bool {
	_, ok := b.Definition(id)
	return ok
}

// Definitions returns a sorted copy of all registered ids.
func (b *Builder) Definitions() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.definitions))
	for id := range b.definitions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Parameter returns a named parameter.
func (b *Builder) Parameter(name string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.parameters[name]
	return v, ok
}

// Parameters returns a copy of all parameters.
func (b *Builder) Parameters() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]any, len(b.parameters))
	for k, v := range b.parameters {
		out[k] = v
	}
	return out
}

// ── Tags ──────────────────────────────────────────────────────────────────────

// TaggedService is one occurrence of a tag on a definition.
type TaggedService struct {
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes"`
}

// FindTaggedServiceIDs returns every occurrence of tag in registration order.
// A definition tagged twice with the same name appears twice.
//
//	listeners := b.FindTaggedServiceIDs("event.listener")
func (b *Builder) FindTaggedServiceIDs(tag string) []TaggedService {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []TaggedService
	for _, id := range b.order {
		def, ok := b.definitions[id]
		if !ok {
			continue
		}
		for _, t := range def.Tags {
			if t.Name == tag {
				out = append(out, TaggedService{ID: id, Attributes: t.Attributes})
			}
		}
	}
	return out
}

// ── Decoration ────────────────────────────────────────────────────────────────

// Decorators returns the ids of definitions that decorate id, in
// registration order.
func (b *Builder) Decorators(id string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	target := b.canonical(id)
	var out []string
	for _, dID := range b.order {
		if def, ok := b.definitions[dID]; ok && def.Decorates != "" && b.canonical(def.Decorates) == target {
			out = append(out, dID)
		}
	}
	return out
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// canonical resolves an alias to its canonical id.
func (b *Builder) canonical(id string) string {
	if target, ok := b.aliases[id]; ok {
		return target
	}
	return id
}
