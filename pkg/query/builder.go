package query

import (
	"reflect"
	"strconv"
	"strings"
)

// SortField is one ORDER BY term over a logical field name.
type SortField struct {
	Field      string
	Descending bool
}

// ParseSortFields reads "status,-createdAt": a leading "-" sorts descending.
// Blank entries are skipped and empty input yields nil.
func ParseSortFields(s string) []SortField {
	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, desc := strings.CutPrefix(part, "-")
		fields = append(fields, SortField{Field: name, Descending: desc})
	}
	return fields
}

// predicate is a WHERE fragment with "?" standing in for each of its args.
type predicate struct {
	sql  string
	args []any
}

// Builder accumulates predicates and ordering for one projection. Conditions
// are ANDed, and placeholders are numbered $1..$n when a statement is built.
type Builder struct {
	p           *ProjectionMap
	where       []predicate
	order       []SortField
	defaultSort []SortField
}

// NewBuilder starts a builder over p. defaultSort applies when no explicit
// order is given.
func NewBuilder(p *ProjectionMap, defaultSort ...SortField) *Builder {
	return &Builder{p: p, defaultSort: defaultSort}
}

// OrderByFields replaces the default sort. Fields that are not projected are
// dropped, so client-supplied sort keys never reach the SQL text.
func (b *Builder) OrderByFields(fields []SortField) *Builder {
	b.order = b.order[:0]
	for _, f := range fields {
		if _, ok := b.p.Lookup(f.Field); ok {
			b.order = append(b.order, f)
		}
	}
	return b
}

// WhereEquals adds field = value. Nil values, including typed nil pointers,
// add nothing.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	if isNil(value) {
		return b
	}
	return b.add(b.p.Column(field)+" = ?", value)
}

// WhereSearch ORs a case-insensitive substring match across fields.
func (b *Builder) WhereSearch(search *string, fields ...string) *Builder {
	if search == nil || *search == "" || len(fields) == 0 {
		return b
	}

	pattern := "%" + *search + "%"
	terms := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, f := range fields {
		terms[i] = b.p.Column(f) + " " + b.like() + " ?"
		args[i] = pattern
	}
	return b.add("("+strings.Join(terms, " OR ")+")", args...)
}

// WhereNotNull adds field IS NOT NULL.
func (b *Builder) WhereNotNull(field string) *Builder {
	return b.add(b.p.Column(field) + " IS NOT NULL")
}

// Build returns the filtered, ordered SELECT.
func (b *Builder) Build() (string, []any) {
	var sb strings.Builder
	b.selectFrom(&sb)
	args := b.writeWhere(&sb)
	b.writeOrder(&sb)
	return sb.String(), args
}

// BuildCount returns SELECT COUNT(*) under the same filters.
func (b *Builder) BuildCount() (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) FROM ")
	sb.WriteString(b.p.From())
	args := b.writeWhere(&sb)
	return sb.String(), args
}

// BuildPage returns Build limited to page (1-based) of size pageSize. The
// limit and offset are bound as the last two parameters.
func (b *Builder) BuildPage(page, pageSize int) (string, []any) {
	var sb strings.Builder
	b.selectFrom(&sb)
	args := b.writeWhere(&sb)
	b.writeOrder(&sb)

	n := len(args)
	sb.WriteString(" LIMIT $" + strconv.Itoa(n+1) + " OFFSET $" + strconv.Itoa(n+2))
	return sb.String(), append(args, pageSize, (max(page, 1)-1)*pageSize)
}

// BuildSingle selects the row whose field equals value, ignoring any
// accumulated predicates.
func (b *Builder) BuildSingle(field string, value any) (string, []any) {
	var sb strings.Builder
	b.selectFrom(&sb)
	sb.WriteString(" WHERE " + b.p.Column(field) + " = $1")
	return sb.String(), []any{value}
}

func (b *Builder) add(sql string, args ...any) *Builder {
	b.where = append(b.where, predicate{sql: sql, args: args})
	return b
}

// SQLite LIKE is already case-insensitive for ASCII and has no ILIKE.
func (b *Builder) like() string {
	if b.p.Dialect() == SQLite {
		return "LIKE"
	}
	return "ILIKE"
}

func (b *Builder) selectFrom(sb *strings.Builder) {
	sb.WriteString("SELECT ")
	sb.WriteString(b.p.Columns())
	sb.WriteString(" FROM ")
	sb.WriteString(b.p.From())
}

func (b *Builder) writeWhere(sb *strings.Builder) []any {
	if len(b.where) == 0 {
		return nil
	}

	var args []any
	for i, pred := range b.where {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}

		rest := pred.sql
		for _, arg := range pred.args {
			before, after, _ := strings.Cut(rest, "?")
			args = append(args, arg)
			sb.WriteString(before + "$" + strconv.Itoa(len(args)))
			rest = after
		}
		sb.WriteString(rest)
	}
	return args
}

func (b *Builder) writeOrder(sb *strings.Builder) {
	fields := b.order
	if len(fields) == 0 {
		fields = b.defaultSort
	}

	for i, f := range fields {
		if i == 0 {
			sb.WriteString(" ORDER BY ")
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(b.p.Column(f.Field))
		if f.Descending {
			sb.WriteString(" DESC")
		} else {
			sb.WriteString(" ASC")
		}
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
