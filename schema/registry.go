package schema

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/falaki/spark/errors"
)

// Named is implemented by record types that name themselves for cross-unit
// resolution. The method is the reserved metadata accessor: derivation
// excludes it, and the Registry uses it as the registration key.
type Named interface {
	TypeName() string
}

// Registry resolves record types by name on the local execution unit.
//
// A reflect.Type handle cannot be shipped to another process, so any unit
// that must materialize rows re-obtains the type here by name, the same way
// components are resolved from a factory registry. Every unit that processes
// partitions of a type must register that type, typically from an init
// function or process bootstrap.
type Registry struct {
	mu    sync.RWMutex
	byName map[string]reflect.Type
}

// NewRegistry creates an empty type registry
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]reflect.Type)}
}

// Register adds a record type under its name. The name comes from the
// prototype's TypeName accessor when implemented, otherwise from the Go type
// name. Registering the same type again is a no-op; registering a different
// type under an occupied name is an error, since two units resolving the same
// name to different types would silently disagree on row shape.
func (r *Registry) Register(prototype any) (string, error) {
	if prototype == nil {
		return "", errors.WrapInvalid(
			errors.ErrInvalidConfig, "Registry", "Register", "nil prototype validation")
	}

	t := reflect.TypeOf(prototype)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	name := t.Name()
	if named, ok := prototype.(Named); ok {
		name = named.TypeName()
	}
	if name == "" {
		return "", errors.WrapInvalid(
			fmt.Errorf("%w: unnamed type %s", errors.ErrInvalidConfig, t.String()),
			"Registry", "Register", "type name validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[name]; ok {
		if existing == t {
			return name, nil
		}
		return "", errors.WrapInvalid(
			fmt.Errorf("%w: name %q bound to %s, cannot rebind to %s",
				errors.ErrInvalidConfig, name, existing.String(), t.String()),
			"Registry", "Register", "name conflict check")
	}

	r.byName[name] = t
	return name, nil
}

// Resolve returns the type registered under name. Failure means this
// execution unit cannot process records of that type at all; it is fatal for
// whatever partition triggered the lookup.
func (r *Registry) Resolve(name string) (reflect.Type, error) {
	r.mu.RLock()
	t, ok := r.byName[name]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.WrapFatal(
			fmt.Errorf("%w: %q", errors.ErrTypeNotRegistered, name),
			"Registry", "Resolve", "type lookup")
	}
	return t, nil
}

// Names returns the registered type names, unordered
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	return names
}
