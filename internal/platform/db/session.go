package db

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	DBConnKey contextKey = "db_conn"
	DBTxKey   contextKey = "db_tx"
)

// Querier is the subset of pgx shared by pools, connections and transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner is a Querier that can open a transaction. *pgxpool.Pool,
// *pgxpool.Conn and pgx.Tx all satisfy it.
type TxBeginner interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Session identifies the caller on whose behalf a connection runs. The
// row-level security policies read these values through current_setting.
type Session struct {
	CallerID string
	Role     string
}

// SessionFunc resolves the session for a request context.
type SessionFunc func(ctx context.Context) Session

// SessionMiddleware acquires one connection per request, binds the caller
// identity to it and stores it in the request context. Requests for which
// skip returns true use the pool directly.
func SessionMiddleware(pool *pgxpool.Pool, resolve SessionFunc, skip func(echo.Context) bool, logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skip != nil && skip(c) {
				return next(c)
			}

			ctx := c.Request().Context()
			conn, err := pool.Acquire(ctx)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
			}
			defer conn.Release()

			if err := BindSession(ctx, conn, resolve(ctx)); err != nil {
				logger.Error().Err(err).Msg("bind db session")
				return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
			}
			defer func() {
				// Reset on a fresh context: the request context may already be done.
				if err := ResetSession(context.Background(), conn); err != nil {
					logger.Warn().Err(err).Msg("reset db session, destroying connection")
					conn.Conn().Close(context.Background())
				}
			}()

			ctx = context.WithValue(ctx, DBConnKey, conn)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// BindSession sets the caller settings on a connection.
func BindSession(ctx context.Context, q Querier, s Session) error {
	_, err := q.Exec(ctx,
		`SELECT set_config('app.caller_id', $1, false), set_config('app.caller_role', $2, false)`,
		s.CallerID, s.Role)
	return err
}

// ResetSession clears the caller settings before a connection returns to the pool.
func ResetSession(ctx context.Context, q Querier) error {
	_, err := q.Exec(ctx,
		`SELECT set_config('app.caller_id', '', false), set_config('app.caller_role', '', false)`)
	return err
}

// ConnFromContext retrieves the request-scoped connection from context.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}

// From returns the querier to use for ctx: the open transaction, then the
// request connection, then fallback.
func From(ctx context.Context, fallback TxBeginner) TxBeginner {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := ConnFromContext(ctx); c != nil {
		return c
	}
	return fallback
}
