package discovery

import (
	"fmt"
	"strings"
)

// validateStructure enforces the constraints of the descriptor's schema
// variant against the loaded type.
func validateStructure(d Descriptor, c *Class) error {
	if !d.Kind.SingleMethod() {
		return nil
	}
	if methods := c.PublicMethods(); len(methods) > 1 {
		return fmt.Errorf("%w: class %s should have only one public method, found %d (%s)",
			ErrStructuralViolation, c.Name, len(methods), strings.Join(methods, ", "))
	}
	return nil
}

// activeIn reports whether d is registered in env.
func activeIn(d Descriptor, env string) bool {
	return d.Service.ActiveIn(env)
}
