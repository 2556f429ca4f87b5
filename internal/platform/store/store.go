// Package store is the table-scoped data access layer. Every operation is a
// single statement against the request's connection (or open transaction),
// attempted once, with store errors translated into apperr kinds.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/carepoint/hms/internal/platform/db"
)

// Table describes a table the layer may touch. Only listed columns can be
// selected, filtered, ordered or written.
type Table struct {
	Name    string
	Columns []string
	// Key is the primary-key column; "id" when empty.
	Key string
	// Touch names a timestamp column refreshed on every update.
	Touch string
}

func (t Table) key() string {
	if t.Key == "" {
		return "id"
	}
	return t.Key
}

func (t Table) has(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

func (t Table) selectList() string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(cols, ", ")
}

func (t Table) ident() string {
	return pgx.Identifier{t.Name}.Sanitize()
}

// Operator is a comparison used in a Filter.
type Operator string

const (
	Eq  Operator = "="
	Ne  Operator = "<>"
	Gte Operator = ">="
	Lte Operator = "<="
	Gt  Operator = ">"
	Lt  Operator = "<"
)

// Filter is a single column predicate. Op defaults to equality.
type Filter struct {
	Column string
	Op     Operator
	Value  any
}

func Where(col string, val any) Filter { return Filter{Column: col, Op: Eq, Value: val} }

// Order sorts by one column.
type Order struct {
	Column string
	Desc   bool
}

func Asc(col string) Order  { return Order{Column: col} }
func Desc(col string) Order { return Order{Column: col, Desc: true} }

// Query combines filters (ANDed), ordering and paging. Limit 0 means no limit.
type Query struct {
	Filters []Filter
	Order   []Order
	Limit   int
	Offset  int
}

// Record is a column → value map for inserts and patches.
type Record map[string]any

// Client runs statements through the request-scoped querier or the pool.
type Client struct {
	pool db.TxBeginner
}

func New(pool db.TxBeginner) *Client {
	return &Client{pool: pool}
}

// Conn exposes the querier bound to ctx for hand-written statements.
func (c *Client) Conn(ctx context.Context) db.Querier {
	return db.From(ctx, c.pool)
}

// WithTx runs fn in a transaction; store calls made with the ctx passed to
// fn join it.
func (c *Client) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, c.pool, fn)
}

func buildWhere(t Table, filters []Filter, args []any) (string, []any, error) {
	if len(filters) == 0 {
		return "", args, nil
	}
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		if !t.has(f.Column) {
			return "", nil, fmt.Errorf("store: unknown column %q on %s", f.Column, t.Name)
		}
		op := f.Op
		if op == "" {
			op = Eq
		}
		switch op {
		case Eq, Ne, Gte, Lte, Gt, Lt:
		default:
			return "", nil, fmt.Errorf("store: unsupported operator %q", op)
		}
		col := pgx.Identifier{f.Column}.Sanitize()
		if f.Value == nil {
			if op == Ne {
				parts = append(parts, col+" IS NOT NULL")
			} else {
				parts = append(parts, col+" IS NULL")
			}
			continue
		}
		args = append(args, f.Value)
		parts = append(parts, fmt.Sprintf("%s %s $%d", col, op, len(args)))
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func buildOrder(t Table, order []Order) (string, error) {
	if len(order) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(order))
	for _, o := range order {
		if !t.has(o.Column) {
			return "", fmt.Errorf("store: unknown order column %q on %s", o.Column, t.Name)
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		parts = append(parts, pgx.Identifier{o.Column}.Sanitize()+" "+dir)
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

// sortedColumns returns the record's columns in a stable order so that the
// generated SQL is deterministic.
func sortedColumns(t Table, rec Record) ([]string, error) {
	cols := make([]string, 0, len(rec))
	for col := range rec {
		if !t.has(col) {
			return nil, fmt.Errorf("store: unknown column %q on %s", col, t.Name)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols, nil
}
