// Package annotation defines the service metadata schema: the Service
// descriptor, its derived single-method variants and the Tag record.
//
// The schema is written on a Go type in one of two ways. The structured form
// is a directive whose body is a list of HCL object items:
//
//	//di:service id = "mailer", public = true
//	//di:service arguments = ["@logger", "!tagged mail.transport"]
//	type SMTPMailer struct{}
//
// The legacy form is an annotation in the doc comment text:
//
//	// SMTPMailer sends mail.
//	//
//	// @Service(id="mailer", public=true, arguments={"@logger"})
//	type SMTPMailer struct{}
package annotation

// Kind names a schema variant.
type Kind string

const (
	KindService             Kind = "service"
	KindSingleMethodService Kind = "single-method-service"
	// KindOneMethodService only exists in the legacy comment syntax.
	KindOneMethodService Kind = "one-method-service"
)

// parents maps each derived variant to the schema it extends.
var parents = map[Kind]Kind{
	KindSingleMethodService: KindService,
	KindOneMethodService:    KindService,
}

// DerivesFrom reports whether k is base or a variant of base.
func (k Kind) DerivesFrom(base Kind) bool {
	for cur := k; cur != ""; cur = parents[cur] {
		if cur == base {
			return true
		}
	}
	return false
}

// SingleMethod reports whether the variant restricts the type to one public
// method.
func (k Kind) SingleMethod() bool {
	return k.DerivesFrom(KindSingleMethodService) || k.DerivesFrom(KindOneMethodService)
}

// Service is the normalized registration intent of one type.
type Service struct {
	// ID overrides the service id. Empty means the type's qualified name.
	ID             string
	Autowired      bool
	Autoconfigured bool
	Public         bool
	Lazy           bool
	Abstract       bool
	// Arguments is nil, []any or map[string]any.
	Arguments   any
	Tags        []Tag
	MethodCalls []any
	Factory     any
	Decorates   string
	// Envs lists the environments the service is active in; empty means all.
	Envs     []string
	Priority int
}

// NewService returns a Service holding the schema defaults.
func NewService() *Service {
	return &Service{
		Autowired:      true,
		Autoconfigured: true,
	}
}

// ActiveIn reports whether the service should be registered in env.
func (s *Service) ActiveIn(env string) bool {
	if len(s.Envs) == 0 {
		return true
	}
	for _, e := range s.Envs {
		if e == env {
			return true
		}
	}
	return false
}

// Tag is a named label with attributes.
type Tag struct {
	Name       string
	Attributes map[string]any
}
