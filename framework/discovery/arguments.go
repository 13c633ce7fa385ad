package discovery

import (
	"strings"

	"github.com/km-arc/service-annotations/framework/container"
)

const (
	// TaggedPrefix marks a string as "every service tagged with the rest".
	TaggedPrefix = "!tagged "
	// ReferencePrefix marks a string as "the service named by the rest".
	ReferencePrefix = "@"
)

// ResolveArguments returns a copy of tree with prefixed string leaves turned
// into placeholders. Nested lists and maps keep their shape; the input is
// never modified. Placeholders pass through, so resolving twice is a no-op.
func ResolveArguments(tree any) any {
	switch v := tree.(type) {
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = ResolveArguments(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = ResolveArguments(e)
		}
		return out
	case string:
		return resolveString(v)
	default:
		return tree
	}
}

// resolveString checks the tagged prefix before the one-character
// reference prefix.
func resolveString(s string) any {
	if tag, ok := strings.CutPrefix(s, TaggedPrefix); ok {
		return container.TaggedIterator{Tag: tag}
	}
	if id, ok := strings.CutPrefix(s, ReferencePrefix); ok {
		return container.Reference{ID: id}
	}
	return s
}

// isEmpty mirrors what counts as "nothing to write" for a definition field.
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}
