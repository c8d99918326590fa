// Package query builds parameterized SELECT statements over a projection of
// logical field names onto table columns.
package query

import "strings"

// Dialect selects SQL syntax that differs between supported databases.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// ProjectionMap maps logical field names to alias-qualified columns of one table.
type ProjectionMap struct {
	from    string
	alias   string
	dialect Dialect
	byField map[string]string
	ordered []string
}

// NewProjectionMap starts a projection over schema.table aliased as alias.
// The dialect defaults to Postgres.
func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		from:    schema + "." + table + " " + alias,
		alias:   alias,
		dialect: Postgres,
		byField: make(map[string]string),
	}
}

// Project exposes column under field. Columns are selected in Project order.
func (p *ProjectionMap) Project(column, field string) *ProjectionMap {
	qualified := p.alias + "." + column
	p.byField[field] = qualified
	p.ordered = append(p.ordered, qualified)
	return p
}

// WithDialect sets the dialect used by builders over p.
func (p *ProjectionMap) WithDialect(d Dialect) *ProjectionMap {
	p.dialect = d
	return p
}

func (p *ProjectionMap) Dialect() Dialect {
	return p.dialect
}

// From is the table reference for FROM clauses, e.g. "public.records r".
func (p *ProjectionMap) From() string {
	return p.from
}

// Lookup returns the qualified column for field.
func (p *ProjectionMap) Lookup(field string) (string, bool) {
	col, ok := p.byField[field]
	return col, ok
}

// Column returns the qualified column for field, or field itself when it is
// not projected. Only call it with field names fixed in code.
func (p *ProjectionMap) Column(field string) string {
	if col, ok := p.byField[field]; ok {
		return col
	}
	return field
}

// Columns is the SELECT list in projection order.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.ordered, ", ")
}

// ColumnList returns a copy of the selected columns.
func (p *ProjectionMap) ColumnList() []string {
	return append([]string(nil), p.ordered...)
}
