package container

// Definition describes how a service should be built. It is a plain record:
// the builder stores it, nothing here instantiates the class.
type Definition struct {
	Class          string `json:"class"`
	Autowired      bool   `json:"autowired"`
	Autoconfigured bool   `json:"autoconfigured"`
	Public         bool   `json:"public"`
	Lazy           bool   `json:"lazy"`
	Abstract       bool   `json:"abstract"`

	// Arguments is either []any (positional) or map[string]any (named).
	Arguments   any    `json:"arguments,omitempty"`
	Tags        []Tag  `json:"tags,omitempty"`
	MethodCalls []any  `json:"methodCalls,omitempty"`
	Factory     any    `json:"factory,omitempty"`
	Decorates   string `json:"decorates,omitempty"`
}

// Tag is a named label with free-form attributes.
type Tag struct {
	Name       string         `json:"name"`
	Attributes map[string]any `json:"attributes"`
}

// NewDefinition creates a definition for class with every flag off.
func NewDefinition(class string) *Definition {
	return &Definition{Class: class}
}

// SetFlags sets the five boolean flags at once.
func (d *Definition) SetFlags(autowired, autoconfigured, public, lazy, abstract bool) {
	d.Autowired = autowired
	d.Autoconfigured = autoconfigured
	d.Public = public
	d.Lazy = lazy
	d.Abstract = abstract
}

// SetArguments replaces the constructor arguments.
func (d *Definition) SetArguments(args any) { d.Arguments = args }

// AddTag appends a tag. The same name may be added more than once.
func (d *Definition) AddTag(name string, attributes map[string]any) {
	if attributes == nil {
		attributes = map[string]any{}
	}
	d.Tags = append(d.Tags, Tag{Name: name, Attributes: attributes})
}

// SetMethodCalls replaces the post-construction call list.
func (d *Definition) SetMethodCalls(calls []any) { d.MethodCalls = calls }

// SetFactory sets the factory used instead of the constructor.
func (d *Definition) SetFactory(factory any) { d.Factory = factory }

// SetDecoratedService marks the definition as decorating id.
func (d *Definition) SetDecoratedService(id string) { d.Decorates = id }

// HasTag returns true if at least one tag called name is attached.
func (d *Definition) HasTag(name string) bool {
	for _, t := range d.Tags {
		if t.Name == name {
			return true
		}
	}
	return false
}

// ── Argument placeholders ─────────────────────────────────────────────────────

// Reference points at another service by id.
type Reference struct {
	ID string `json:"ref"`
}

func (r Reference) String() string { return r.ID }

// TaggedIterator stands for every service carrying Tag, in tag order.
type TaggedIterator struct {
	Tag string `json:"tagged"`
}

func (t TaggedIterator) String() string { return "!tagged " + t.Tag }
