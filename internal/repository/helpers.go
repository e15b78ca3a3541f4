package repository

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// dbtx abstracts over a pgx pool or transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// itoaArg formats a positional argument index for SQL assembly.
func itoaArg(n int) string {
	return strconv.Itoa(n)
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
