package session

import (
	"fmt"
	"strings"

	"github.com/falaki/spark/errors"
	"github.com/falaki/spark/row"
	"github.com/falaki/spark/schema"
)

// Dataset is a schema plus partitioned rows. Datasets from CreateDataset and
// the inference constructors are materialized; datasets from SQL are bound
// to a catalog table by name and resolve their rows when collected, so they
// observe re-registrations under the same name.
type Dataset struct {
	session    *Session
	schema     schema.Schema
	partitions [][]row.Row
	tableRef   string
}

// Schema returns the dataset's schema
func (d *Dataset) Schema() schema.Schema {
	return d.schema
}

// Collect flattens the dataset into rows in partition order
func (d *Dataset) Collect() ([]row.Row, error) {
	partitions, err := d.resolve()
	if err != nil {
		return nil, err
	}
	var rows []row.Row
	for _, p := range partitions {
		rows = append(rows, p...)
	}
	return rows, nil
}

// Count returns the total number of rows across partitions
func (d *Dataset) Count() (int, error) {
	partitions, err := d.resolve()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range partitions {
		n += len(p)
	}
	return n, nil
}

// resolve returns the dataset's partitions, looking the table up for
// catalog-bound datasets.
func (d *Dataset) resolve() ([][]row.Row, error) {
	if d.tableRef == "" {
		return d.partitions, nil
	}
	table, err := d.session.catalog.Lookup(d.tableRef)
	if err != nil {
		return nil, err
	}
	return table.Partitions, nil
}

// SQL runs a query against the session catalog. Only full-table projection
// is supported, in the form
//
//	SELECT * FROM <table>
//
// The returned dataset carries the table's schema as of this call but stays
// bound to the name, resolving rows when collected.
func (s *Session) SQL(query string) (*Dataset, error) {
	name, err := parseQuery(query)
	if err != nil {
		return nil, err
	}

	table, err := s.catalog.Lookup(name)
	if err != nil {
		return nil, err
	}

	return &Dataset{session: s, schema: table.Schema, tableRef: name}, nil
}

func parseQuery(query string) (string, error) {
	tokens := strings.Fields(strings.TrimSuffix(strings.TrimSpace(query), ";"))
	if len(tokens) != 4 ||
		!strings.EqualFold(tokens[0], "SELECT") ||
		tokens[1] != "*" ||
		!strings.EqualFold(tokens[2], "FROM") {
		return "", errors.WrapInvalid(
			fmt.Errorf("unsupported query %q, expected SELECT * FROM <table>", query),
			"Session", "SQL", "query parsing")
	}
	return tokens[3], nil
}
