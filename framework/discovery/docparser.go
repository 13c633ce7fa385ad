package discovery

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/km-arc/service-annotations/framework/annotation"
)

// docAnnotation is one recognised annotation from a doc comment.
type docAnnotation struct {
	// kind is empty for a top-level @Tag.
	kind    annotation.Kind
	service *annotation.Service
	tag     *annotation.Tag
}

// docNames maps the annotation names the parser knows to their schema.
// Anything else after an @ is ignored.
var docNames = map[string]annotation.Kind{
	"Service":             annotation.KindService,
	"SingleMethodService": annotation.KindSingleMethodService,
	"OneMethodService":    annotation.KindOneMethodService,
	"Tag":                 "",
}

// docParser reads @-annotations:
//
//	@Service(id="mailer", arguments={"@logger", "!tagged mail.transport"},
//	    tags={@Tag("event.listener", {"event"="boot"})}, envs={"prod"})
type docParser struct {
	src []rune
	pos int
}

// parseDocAnnotations returns the known annotations in text, in order.
func parseDocAnnotations(text string) ([]docAnnotation, error) {
	p := &docParser{src: []rune(text)}

	var out []docAnnotation
	for p.pos < len(p.src) {
		if p.src[p.pos] != '@' || !p.atBoundary() {
			p.pos++
			continue
		}
		p.pos++

		name := p.qualifiedName()
		short := lastSegment(name)
		kind, known := docNames[short]
		if !known {
			p.skipParens()
			continue
		}

		fields, positional, err := p.params()
		if err != nil {
			return nil, fmt.Errorf("@%s: %w", name, err)
		}
		a, err := instantiate(short, kind, fields, positional)
		if err != nil {
			return nil, fmt.Errorf("@%s: %w", name, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func instantiate(short string, kind annotation.Kind, fields map[string]any, positional []any) (docAnnotation, error) {
	if short == "Tag" {
		tag, err := tagFromParams(fields, positional)
		if err != nil {
			return docAnnotation{}, err
		}
		return docAnnotation{tag: &tag}, nil
	}

	if len(positional) > 0 {
		fields["value"] = collapse(positional)
	}
	svc, err := annotation.Decode(fields)
	if err != nil {
		return docAnnotation{}, err
	}
	return docAnnotation{kind: kind, service: svc}, nil
}

// tagFromParams accepts @Tag("name"), @Tag("name", {attrs}) and
// @Tag(name="name", attributes={attrs}).
func tagFromParams(fields map[string]any, positional []any) (annotation.Tag, error) {
	if len(positional) > 0 {
		if len(fields) > 0 {
			return annotation.Tag{}, fmt.Errorf("cannot mix positional and named tag values")
		}
		return annotation.DecodeTag(positional)
	}
	return annotation.DecodeTag(fields)
}

func collapse(positional []any) any {
	if len(positional) == 1 {
		return positional[0]
	}
	return positional
}

// atBoundary reports whether the @ at p.pos starts an annotation rather than,
// say, an e-mail address.
func (p *docParser) atBoundary() bool {
	if p.pos == 0 {
		return true
	}
	prev := p.src[p.pos-1]
	return unicode.IsSpace(prev) || prev == '*' || prev == '('
}

func (p *docParser) qualifiedName() string {
	start := p.pos
	for p.pos < len(p.src) {
		r := p.src[p.pos]
		if r == '_' || r == '\\' || r == '.' || unicode.IsLetter(r) || (p.pos > start && unicode.IsDigit(r)) {
			p.pos++
			continue
		}
		break
	}
	return string(p.src[start:p.pos])
}

func lastSegment(name string) string {
	if i := strings.LastIndexAny(name, `\.`); i >= 0 {
		return name[i+1:]
	}
	return name
}

// skipParens steps over a balanced parameter list of an ignored annotation.
func (p *docParser) skipParens() {
	if p.pos >= len(p.src) || p.src[p.pos] != '(' {
		return
	}
	depth := 0
	inString := false
	for ; p.pos < len(p.src); p.pos++ {
		r := p.src[p.pos]
		switch {
		case r == '"':
			inString = !inString
		case inString:
		case r == '(':
			depth++
		case r == ')':
			depth--
			if depth == 0 {
				p.pos++
				return
			}
		}
	}
}

// params parses an optional "(...)" list directly after the annotation name.
func (p *docParser) params() (map[string]any, []any, error) {
	fields := make(map[string]any)
	if p.pos >= len(p.src) || p.src[p.pos] != '(' {
		return fields, nil, nil
	}
	p.pos++

	var positional []any
	for {
		p.skipSpace()
		if p.consume(')') {
			return fields, positional, nil
		}

		if key, ok := p.peekAssignment('='); ok {
			if _, dup := fields[key]; dup {
				return nil, nil, p.errorf("duplicate field %q", key)
			}
			v, err := p.value()
			if err != nil {
				return nil, nil, err
			}
			fields[key] = v
		} else {
			v, err := p.value()
			if err != nil {
				return nil, nil, err
			}
			positional = append(positional, v)
		}

		p.skipSpace()
		if p.consume(',') {
			continue
		}
		if p.consume(')') {
			return fields, positional, nil
		}
		return nil, nil, p.errorf("expected ',' or ')'")
	}
}

// peekAssignment consumes `identifier <sep>` when present. seps lists the
// accepted separators.
func (p *docParser) peekAssignment(seps ...rune) (string, bool) {
	save := p.pos

	var key string
	switch {
	case p.pos < len(p.src) && p.src[p.pos] == '"':
		s, err := p.stringLit()
		if err != nil {
			p.pos = save
			return "", false
		}
		key = s
	default:
		key = p.identifier()
	}
	if key == "" {
		p.pos = save
		return "", false
	}

	p.skipSpace()
	for _, sep := range seps {
		if p.consume(sep) {
			return key, true
		}
	}
	p.pos = save
	return "", false
}

func (p *docParser) value() (any, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, p.errorf("unexpected end of comment")
	}

	switch r := p.src[p.pos]; {
	case r == '"':
		return p.stringLit()
	case r == '{':
		return p.array()
	case r == '@':
		return p.nested()
	case r == '-' || unicode.IsDigit(r):
		return p.number()
	}

	switch word := p.identifier(); strings.ToLower(word) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null":
		return nil, nil
	case "":
		return nil, p.errorf("unexpected %q", p.src[p.pos])
	default:
		return nil, p.errorf("unsupported bare value %q", word)
	}
}

// array parses {a, b} into []any and {k=v, ...} or {k: v, ...} into
// map[string]any. Positional entries in a keyed array take the next integer
// key: one past the largest integer key so far, or 0.
func (p *docParser) array() (any, error) {
	p.pos++ // {

	var (
		list  []any
		keyed map[string]any
		next  int
	)
	for {
		p.skipSpace()
		if p.consume('}') {
			break
		}

		if key, ok := p.peekAssignment('=', ':'); ok {
			if keyed == nil {
				keyed = make(map[string]any, len(list)+1)
				for j, v := range list {
					keyed[strconv.Itoa(j)] = v
				}
				next = len(list)
			}
			v, err := p.value()
			if err != nil {
				return nil, err
			}
			keyed[key] = v
			if n, err := strconv.Atoi(key); err == nil && n >= next {
				next = n + 1
			}
		} else {
			v, err := p.value()
			if err != nil {
				return nil, err
			}
			if keyed != nil {
				keyed[strconv.Itoa(next)] = v
				next++
			} else {
				list = append(list, v)
			}
		}

		p.skipSpace()
		if p.consume(',') {
			continue
		}
		if p.consume('}') {
			break
		}
		return nil, p.errorf("expected ',' or '}'")
	}

	if keyed != nil {
		return keyed, nil
	}
	if list == nil {
		list = []any{}
	}
	return list, nil
}

// nested parses an annotation used as a value. Only @Tag is allowed there.
func (p *docParser) nested() (any, error) {
	p.pos++ // @
	name := p.qualifiedName()
	if lastSegment(name) != "Tag" {
		return nil, p.errorf("annotation @%s is not allowed as a value", name)
	}
	fields, positional, err := p.params()
	if err != nil {
		return nil, err
	}
	tag, err := tagFromParams(fields, positional)
	if err != nil {
		return nil, fmt.Errorf("@%s: %w", name, err)
	}
	return tag, nil
}

// stringLit reads a double-quoted string. A doubled quote or \" is a
// literal quote.
func (p *docParser) stringLit() (string, error) {
	p.pos++ // opening quote
	var sb strings.Builder
	for p.pos < len(p.src) {
		r := p.src[p.pos]
		switch {
		case r == '\\' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '"':
			sb.WriteRune('"')
			p.pos += 2
		case r == '"' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '"':
			sb.WriteRune('"')
			p.pos += 2
		case r == '"':
			p.pos++
			return sb.String(), nil
		default:
			sb.WriteRune(r)
			p.pos++
		}
	}
	return "", p.errorf("unterminated string")
}

func (p *docParser) number() (any, error) {
	start := p.pos
	if p.src[p.pos] == '-' {
		p.pos++
	}
	isFloat := false
	for p.pos < len(p.src) {
		r := p.src[p.pos]
		if r == '.' || r == 'e' || r == 'E' {
			isFloat = true
		} else if !unicode.IsDigit(r) {
			break
		}
		p.pos++
	}

	lit := string(p.src[start:p.pos])
	if isFloat {
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return nil, p.errorf("bad number %q", lit)
		}
		return f, nil
	}
	i, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		return nil, p.errorf("bad number %q", lit)
	}
	return i, nil
}

func (p *docParser) identifier() string {
	start := p.pos
	for p.pos < len(p.src) {
		r := p.src[p.pos]
		if r == '_' || unicode.IsLetter(r) || (p.pos > start && unicode.IsDigit(r)) {
			p.pos++
			continue
		}
		break
	}
	return string(p.src[start:p.pos])
}

// skipSpace also skips the leading '*' of block-comment lines.
func (p *docParser) skipSpace() {
	for p.pos < len(p.src) && (unicode.IsSpace(p.src[p.pos]) || p.src[p.pos] == '*') {
		p.pos++
	}
}

func (p *docParser) consume(r rune) bool {
	if p.pos < len(p.src) && p.src[p.pos] == r {
		p.pos++
		return true
	}
	return false
}

func (p *docParser) errorf(format string, args ...any) error {
	return fmt.Errorf("offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}
