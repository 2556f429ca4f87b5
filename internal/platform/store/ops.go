package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/carepoint/hms/internal/platform/apperr"
	"github.com/carepoint/hms/internal/platform/db"
)

// List returns the rows of t matching q, mapped by `db` struct tags.
func List[T any](ctx context.Context, c *Client, t Table, q Query) ([]*T, error) {
	where, args, err := buildWhere(t, q.Filters, nil)
	if err != nil {
		return nil, err
	}
	order, err := buildOrder(t, q.Order)
	if err != nil {
		return nil, err
	}
	sql := "SELECT " + t.selectList() + " FROM " + t.ident() + where + order
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		sql += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := c.Conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, db.Translate(db.OpRead, err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByNameLax[T])
	if err != nil {
		return nil, db.Translate(db.OpRead, err)
	}
	return items, nil
}

// Get fetches one row by primary key.
func Get[T any](ctx context.Context, c *Client, t Table, id any) (*T, error) {
	return First[T](ctx, c, t, Where(t.key(), id))
}

// First returns the first row matching filters or a not-found error.
func First[T any](ctx context.Context, c *Client, t Table, filters ...Filter) (*T, error) {
	items, err := List[T](ctx, c, t, Query{Filters: filters, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperr.NotFound(strings.TrimSuffix(t.Name, "s"))
	}
	return items[0], nil
}

// Count returns the number of rows matching filters.
func Count(ctx context.Context, c *Client, t Table, filters ...Filter) (int, error) {
	where, args, err := buildWhere(t, filters, nil)
	if err != nil {
		return 0, err
	}
	var n int
	if err := c.Conn(ctx).QueryRow(ctx, "SELECT COUNT(*) FROM "+t.ident()+where, args...).Scan(&n); err != nil {
		return 0, db.Translate(db.OpRead, err)
	}
	return n, nil
}

// Exists reports whether any row matches filters.
func Exists(ctx context.Context, c *Client, t Table, filters ...Filter) (bool, error) {
	where, args, err := buildWhere(t, filters, nil)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := c.Conn(ctx).QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM "+t.ident()+where+")", args...).Scan(&ok); err != nil {
		return false, db.Translate(db.OpRead, err)
	}
	return ok, nil
}

// Insert writes rec and returns the stored row including generated columns.
func Insert[T any](ctx context.Context, c *Client, t Table, rec Record) (*T, error) {
	cols, err := sortedColumns(t, rec)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("store: empty insert into %s", t.Name)
	}
	names := make([]string, len(cols))
	params := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		names[i] = pgx.Identifier{col}.Sanitize()
		params[i] = fmt.Sprintf("$%d", i+1)
		args[i] = rec[col]
	}
	sql := "INSERT INTO " + t.ident() + " (" + strings.Join(names, ", ") + ") VALUES (" +
		strings.Join(params, ", ") + ") RETURNING " + t.selectList()

	return collectOne[T](ctx, c, db.OpWrite, sql, args)
}

// Update applies patch to the row with the given id. Extra guards narrow the
// match; a guarded update that matches nothing reports not found and the
// caller decides what that means.
func Update[T any](ctx context.Context, c *Client, t Table, id any, patch Record, guards ...Filter) (*T, error) {
	cols, err := sortedColumns(t, patch)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("store: empty update of %s", t.Name)
	}
	sets := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(cols)+len(guards)+1)
	for _, col := range cols {
		args = append(args, patch[col])
		sets = append(sets, fmt.Sprintf("%s = $%d", pgx.Identifier{col}.Sanitize(), len(args)))
	}
	if t.Touch != "" && patch[t.Touch] == nil {
		sets = append(sets, pgx.Identifier{t.Touch}.Sanitize()+" = NOW()")
	}
	where, args, err := buildWhere(t, append([]Filter{Where(t.key(), id)}, guards...), args)
	if err != nil {
		return nil, err
	}
	sql := "UPDATE " + t.ident() + " SET " + strings.Join(sets, ", ") + where + " RETURNING " + t.selectList()

	return collectOne[T](ctx, c, db.OpWrite, sql, args)
}

// Delete removes the row with the given id.
func Delete(ctx context.Context, c *Client, t Table, id any) error {
	tag, err := c.Conn(ctx).Exec(ctx, "DELETE FROM "+t.ident()+" WHERE "+pgx.Identifier{t.key()}.Sanitize()+" = $1", id)
	if err != nil {
		return db.Translate(db.OpDelete, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(strings.TrimSuffix(t.Name, "s"))
	}
	return nil
}

func collectOne[T any](ctx context.Context, c *Client, op db.Op, sql string, args []any) (*T, error) {
	rows, err := c.Conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, db.Translate(op, err)
	}
	item, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByNameLax[T])
	if err != nil {
		return nil, db.Translate(op, err)
	}
	return item, nil
}
