package annotation

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Decode builds a Service from field values, starting from the schema
// defaults. Values are the native trees produced by either syntax: string,
// bool, int64, float64, nil, []any, map[string]any and Tag.
func Decode(fields map[string]any) (*Service, error) {
	s := NewService()

	// Sorted so the first reported error does not depend on map order.
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.set(name, fields[name]); err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
	}
	return s, nil
}

func (s *Service) set(name string, v any) error {
	var err error
	switch name {
	case "id":
		s.ID, err = asString(v)
	case "autowired":
		s.Autowired, err = asBool(v)
	case "autoconfigured":
		s.Autoconfigured, err = asBool(v)
	case "public":
		s.Public, err = asBool(v)
	case "lazy":
		s.Lazy, err = asBool(v)
	case "abstract":
		s.Abstract, err = asBool(v)
	case "arguments":
		s.Arguments, err = asTree(v)
	case "tags":
		s.Tags, err = asTags(v)
	case "methodCalls":
		s.MethodCalls, err = asList(v)
	case "factory":
		s.Factory = v
	case "decorates":
		s.Decorates, err = asString(v)
	case "envs":
		s.Envs, err = asStrings(v)
	case "priority":
		s.Priority, err = asInt(v)
	default:
		return errors.New("unknown field")
	}
	return err
}

// DecodeTag builds a Tag from one of the accepted shapes:
//
//	"name"
//	["name", {attributes}]
//	{name = "name", attributes = {...}}
//	Tag{...}
func DecodeTag(v any) (Tag, error) {
	switch t := v.(type) {
	case Tag:
		return checkTag(t)
	case string:
		return checkTag(Tag{Name: t})
	case []any:
		if len(t) == 0 || len(t) > 2 {
			return Tag{}, errors.New("tag list must be [name] or [name, attributes]")
		}
		tag := Tag{}
		var err error
		if tag.Name, err = asString(t[0]); err != nil {
			return Tag{}, fmt.Errorf("tag name: %w", err)
		}
		if len(t) == 2 {
			if tag.Attributes, err = asAttributes(t[1]); err != nil {
				return Tag{}, err
			}
		}
		return checkTag(tag)
	case map[string]any:
		tag := Tag{}
		for k, fv := range t {
			var err error
			switch k {
			case "name":
				tag.Name, err = asString(fv)
			case "attributes":
				tag.Attributes, err = asAttributes(fv)
			default:
				err = fmt.Errorf("unknown tag field %q", k)
			}
			if err != nil {
				return Tag{}, err
			}
		}
		return checkTag(tag)
	default:
		return Tag{}, fmt.Errorf("unsupported tag value %T", v)
	}
}

func checkTag(t Tag) (Tag, error) {
	if t.Name == "" {
		return Tag{}, errors.New("tag name is required")
	}
	if t.Attributes == nil {
		t.Attributes = map[string]any{}
	}
	return t, nil
}

// ── value coercion ────────────────────────────────────────────────────────────

func asString(v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	default:
		return "", fmt.Errorf("want string, got %T", v)
	}
}

func asBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("want bool, got %T", v)
	}
	return b, nil
}

func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("want integer, got %v", n)
		}
		return int(n), nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, fmt.Errorf("want integer, got %q", n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("want integer, got %T", v)
	}
}

func asList(v any) ([]any, error) {
	switch l := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return l, nil
	default:
		return nil, fmt.Errorf("want list, got %T", v)
	}
}

func asTree(v any) (any, error) {
	switch v.(type) {
	case nil, []any, map[string]any:
		return v, nil
	default:
		return nil, fmt.Errorf("want list or map, got %T", v)
	}
}

func asStrings(v any) ([]string, error) {
	l, err := asList(v)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(l))
	for i, e := range l {
		s, ok := e.(string)
		if !ok {
			return nil, fmt.Errorf("element %d: want string, got %T", i, e)
		}
		out = append(out, s)
	}
	return out, nil
}

func asTags(v any) ([]Tag, error) {
	l, err := asList(v)
	if err != nil {
		return nil, err
	}
	out := make([]Tag, 0, len(l))
	for i, e := range l {
		t, err := DecodeTag(e)
		if err != nil {
			return nil, fmt.Errorf("tag %d: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func asAttributes(v any) (map[string]any, error) {
	switch m := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		for k, av := range m {
			switch av.(type) {
			case nil, string, bool, int, int64, float64:
			default:
				return nil, fmt.Errorf("tag attribute %q: want scalar, got %T", k, av)
			}
		}
		return m, nil
	case []any:
		if len(m) == 0 {
			return map[string]any{}, nil
		}
	}
	return nil, fmt.Errorf("tag attributes: want map, got %T", v)
}
