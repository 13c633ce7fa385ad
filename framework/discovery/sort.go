package discovery

import (
	"cmp"
	"slices"
)

// collection accumulates descriptors keyed by class. Adding a class again
// replaces its descriptor but keeps its first position.
type collection struct {
	items []Descriptor
	index map[string]int
}

func newCollection() *collection {
	return &collection{index: make(map[string]int)}
}

func (c *collection) add(d Descriptor) {
	if i, ok := c.index[d.Class]; ok {
		c.items[i] = d
		return
	}
	c.index[d.Class] = len(c.items)
	c.items = append(c.items, d)
}

func (c *collection) len() int { return len(c.items) }

// sorted returns the descriptors ordered by ascending priority; equal
// priorities keep discovery order.
func (c *collection) sorted() []Descriptor {
	out := slices.Clone(c.items)
	slices.SortStableFunc(out, func(a, b Descriptor) int {
		return cmp.Compare(a.Service.Priority, b.Service.Priority)
	})
	return out
}
