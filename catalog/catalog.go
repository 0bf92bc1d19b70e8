// Package catalog holds the session-scoped table registry: named bindings of
// (schema, rows) pairs, visible to later calls within one session.
package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/falaki/spark/errors"
	"github.com/falaki/spark/row"
	"github.com/falaki/spark/schema"
)

// Table is one registered binding: an immutable schema and its partitioned rows
type Table struct {
	Schema     schema.Schema
	Partitions [][]row.Row
}

// Rows flattens the table's partitions in partition order
func (t Table) Rows() []row.Row {
	var rows []row.Row
	for _, p := range t.Partitions {
		rows = append(rows, p...)
	}
	return rows
}

// Catalog is the process-wide table registry scoped to one session. It is the
// only shared mutable state in the bridge, guarded by a single-writer mutex:
// concurrent registrations under the same name race, but the
// outcome is always the last actual write, never a corrupted merge.
type Catalog struct {
	mu     sync.RWMutex
	tables map[string]Table
}

// New creates an empty catalog
func New() *Catalog {
	return &Catalog{tables: make(map[string]Table)}
}

// Register binds a name to a table. Re-registering an existing name
// overwrites the prior binding entirely; there is no merge.
func (c *Catalog) Register(name string, table Table) error {
	if name == "" {
		return errors.WrapInvalid(
			errors.ErrInvalidConfig, "Catalog", "Register", "table name validation")
	}

	c.mu.Lock()
	c.tables[name] = table
	c.mu.Unlock()
	return nil
}

// Lookup returns the table bound to name
func (c *Catalog) Lookup(name string) (Table, error) {
	c.mu.RLock()
	table, ok := c.tables[name]
	c.mu.RUnlock()

	if !ok {
		return Table{}, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrTableNotFound, name),
			"Catalog", "Lookup", "table lookup")
	}
	return table, nil
}

// Drop removes a binding. Returns true if the name was bound.
func (c *Catalog) Drop(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.tables[name]
	delete(c.tables, name)
	return ok
}

// Names returns the bound table names, sorted
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Size returns the number of bound tables
func (c *Catalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}

// Clear removes all bindings; called when the owning session ends
func (c *Catalog) Clear() {
	c.mu.Lock()
	c.tables = make(map[string]Table)
	c.mu.Unlock()
}
