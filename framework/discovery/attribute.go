package discovery

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/km-arc/service-annotations/framework/annotation"
)

// DirectivePrefix starts every structured service directive.
const DirectivePrefix = "//di:"

// attributeKinds are the schema variants usable as directives.
var attributeKinds = map[annotation.Kind]bool{
	annotation.KindService:             true,
	annotation.KindSingleMethodService: true,
}

// directive is one run of consecutive directive lines of the same kind.
type directive struct {
	kind  annotation.Kind
	line  int
	lines []string
}

// attributeStrategy reads //di:<kind> directives. Consecutive lines of the
// same kind form one instance; their bodies are HCL object items:
//
//	//di:single-method-service id = "mailer.send", public = true
//	//di:single-method-service tags = [{name = "mail.handler", attributes = {priority = 10}}]
type attributeStrategy struct{}

func (attributeStrategy) name() string { return "attribute" }

func (attributeStrategy) extract(c *Class) (Descriptor, bool, error) {
	for _, d := range directives(c) {
		if !attributeKinds[d.kind] || !d.kind.DerivesFrom(annotation.KindService) {
			continue
		}

		fields, err := evalDirective(c.File, d)
		if err != nil {
			return Descriptor{}, false, err
		}
		svc, err := annotation.Decode(fields)
		if err != nil {
			return Descriptor{}, false, fmt.Errorf("%s:%d: %w", c.File, d.line, err)
		}
		return Descriptor{Class: c.Name, Kind: d.kind, Service: svc}, true, nil
	}
	return Descriptor{}, false, nil
}

// directives splits the class doc comment into directive runs, in source order.
func directives(c *Class) []directive {
	if c.Doc == nil {
		return nil
	}

	var (
		out  []directive
		open bool
	)
	for _, cm := range c.Doc.List {
		rest, ok := strings.CutPrefix(cm.Text, DirectivePrefix)
		if !ok {
			open = false
			continue
		}

		kind, body, _ := strings.Cut(rest, " ")
		k := annotation.Kind(strings.TrimSpace(kind))
		body = strings.TrimSpace(body)

		if open && out[len(out)-1].kind == k {
			last := &out[len(out)-1]
			last.lines = append(last.lines, body)
			continue
		}
		out = append(out, directive{kind: k, line: c.Line(cm.Pos()), lines: []string{body}})
		open = true
	}
	return out
}

// evalDirective parses the directive body as the items of an HCL object
// constructor and converts the result to native Go values.
func evalDirective(filename string, d directive) (map[string]any, error) {
	src := "{\n" + strings.Join(d.lines, "\n") + "\n}"

	// The body's first line lands on d.line.
	expr, diags := hclsyntax.ParseExpression([]byte(src), filename, hcl.Pos{Line: d.line - 1, Column: 1})
	if diags.HasErrors() {
		return nil, diags
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}

	native, err := ctyToNative(val)
	if err != nil {
		return nil, fmt.Errorf("%s:%d: %w", filename, d.line, err)
	}
	fields, ok := native.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s:%d: directive body is not an object", filename, d.line)
	}
	return fields, nil
}

// ctyToNative recursively converts a cty.Value to its most natural Go
// counterpart. Whole numbers become int64, other numbers float64.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsKnown() {
		return nil, fmt.Errorf("value is not known")
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return i, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, ev := it.Element()
			nv, err := ctyToNative(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, nv)
		}
		return out, nil

	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			k, ev := it.Element()
			nv, err := ctyToNative(ev)
			if err != nil {
				return nil, fmt.Errorf("in attribute %q: %w", k.AsString(), err)
			}
			out[k.AsString()] = nv
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}
