package discovery

import (
	"fmt"

	"github.com/km-arc/service-annotations/framework/annotation"
)

// Descriptor pairs a service schema with the class it was read from. The
// schema itself carries no class identity.
type Descriptor struct {
	Class   string
	Kind    annotation.Kind
	Service *annotation.Service
}

// ID returns the id the service registers under.
func (d Descriptor) ID() string {
	if d.Service.ID != "" {
		return d.Service.ID
	}
	return d.Class
}

// strategy reads one metadata encoding. ok is false when the class carries
// no service metadata in that encoding.
type strategy interface {
	name() string
	extract(c *Class) (d Descriptor, ok bool, err error)
}

// Extractor tries the structured directive encoding first and falls back to
// the legacy comment annotations. A class that has directives is never read
// through the legacy path.
type Extractor struct {
	strategies []strategy
}

// NewExtractor creates the two-step extractor.
func NewExtractor() *Extractor {
	return &Extractor{strategies: []strategy{attributeStrategy{}, docCommentStrategy{}}}
}

// Extract returns the class's descriptor. Errors wrap ErrMalformedMetadata.
func (e *Extractor) Extract(c *Class) (Descriptor, bool, error) {
	for _, s := range e.strategies {
		d, ok, err := s.extract(c)
		if err != nil {
			return Descriptor{}, false, fmt.Errorf("%w: class %s (%s): %w", ErrMalformedMetadata, c.Name, s.name(), err)
		}
		if ok {
			return d, true, nil
		}
	}
	return Descriptor{}, false, nil
}

// docCommentStrategy parses @-annotations in the doc comment.
// Unlike the directive path only an exact @Service matches; the derived
// variants are parsed but not treated as services here.
type docCommentStrategy struct{}

func (docCommentStrategy) name() string { return "doc comment" }

func (docCommentStrategy) extract(c *Class) (Descriptor, bool, error) {
	if c.Doc == nil {
		return Descriptor{}, false, nil
	}

	annotations, err := parseDocAnnotations(c.Doc.Text())
	if err != nil {
		return Descriptor{}, false, err
	}
	for _, a := range annotations {
		if a.service != nil && a.kind == annotation.KindService {
			return Descriptor{Class: c.Name, Kind: a.kind, Service: a.service}, true, nil
		}
	}
	return Descriptor{}, false, nil
}
