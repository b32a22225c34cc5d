package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

// Querier is the subset of pgx operations engine repositories issue.
// Both *pgxpool.Pool and pgx.Tx satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// protectedTables are append-only: INSERT and SELECT pass, everything else is
// rejected before reaching storage. Corrections are expressed as reversal inserts.
var protectedTables = map[string]struct{}{
	"inventory_ledger": {},
	"cost_layers":      {},
	"lot_allocations":  {},
}

// Guarded wraps a Querier and enforces ledger immutability at the storage-access
// boundary. Every engine repository routes its statements through a Guarded
// querier so no code path, including ad-hoc migrations run through the engine,
// can mutate history.
type Guarded struct {
	q Querier
}

// Guard wraps q with the immutability gate.
func Guard(q Querier) Guarded {
	return Guarded{q: q}
}

// Exec rejects mutating statements against protected tables.
func (g Guarded) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if err := checkStatement(sql); err != nil {
		return pgconn.CommandTag{}, err
	}
	return g.q.Exec(ctx, sql, args...)
}

// Query rejects mutating statements (including RETURNING forms) against protected tables.
func (g Guarded) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if err := checkStatement(sql); err != nil {
		return nil, err
	}
	return g.q.Query(ctx, sql, args...)
}

// QueryRow rejects mutating statements against protected tables. Rejections are
// reported from Scan, matching the pgx.Row contract.
func (g Guarded) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if err := checkStatement(sql); err != nil {
		return errRow{err: err}
	}
	return g.q.QueryRow(ctx, sql, args...)
}

type errRow struct {
	err error
}

func (r errRow) Scan(dest ...any) error {
	return r.err
}

// checkStatement classifies the statement verb and target table. UPDATE, DELETE
// and TRUNCATE against a protected table fail with a distinct immutability error,
// not a generic constraint violation.
func checkStatement(sql string) error {
	tokens := tokenize(sql)
	if len(tokens) == 0 {
		return nil
	}
	verb := tokens[0]
	var table string
	switch verb {
	case "UPDATE":
		table = tableToken(tokens, 1)
	case "DELETE":
		table = tableAfter(tokens, "FROM")
	case "TRUNCATE":
		table = tableToken(tokens, 1)
	default:
		return nil
	}
	if _, protected := protectedTables[table]; protected {
		return fmt.Errorf("ledger: %s on append-only table %s rejected: %w", verb, table, shared.ErrLedgerImmutable)
	}
	return nil
}

func tokenize(sql string) []string {
	fields := strings.Fields(strings.ToUpper(sql))
	out := fields[:0]
	for _, f := range fields {
		if f == "ONLY" || f == "TABLE" {
			continue
		}
		out = append(out, f)
	}
	return out
}

func tableToken(tokens []string, idx int) string {
	if idx >= len(tokens) {
		return ""
	}
	return normalizeTable(tokens[idx])
}

func tableAfter(tokens []string, keyword string) string {
	for i, tok := range tokens {
		if tok == keyword {
			return tableToken(tokens, i+1)
		}
	}
	return ""
}

func normalizeTable(tok string) string {
	tok = strings.TrimRight(tok, ";")
	tok = strings.Trim(tok, `"`)
	if i := strings.LastIndex(tok, "."); i >= 0 {
		tok = tok[i+1:]
	}
	return strings.ToLower(tok)
}
