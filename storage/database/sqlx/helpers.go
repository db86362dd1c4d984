package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/tenant"
)

// psql builds queries with Postgres placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// errNoTenant trips when a tenant-scoped repository runs without a tenant
// in the context. It always indicates a routing bug in the caller, never
// user input.
var errNoTenant = errors.New("database: no tenant in context")

// tenantTable qualifies a table with the request's tenant schema.
// Tenant-scoped repositories refuse to run without one; falling back to a
// shared table would leak data across shops.
func tenantTable(ctx context.Context, table string) (string, error) {
	schema := tenant.SchemaFromContext(ctx)
	if schema == "" {
		return "", errNoTenant
	}
	return pq.QuoteIdentifier(schema) + "." + table, nil
}

// executor picks the transaction a service passed down, or the pool.
func executor(db core.DBExecutor, svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return db
}

// trapNoRowsErr maps psql "no rows" to the domain's not-found sentinel.
func trapNoRowsErr(err, sentinel error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return sentinel
	}
	return errors.Wrap(err, msg)
}

// Postgres error codes.
const (
	pqUniqueViolation     = pq.ErrorCode("23505")
	pqForeignKeyViolation = pq.ErrorCode("23503")
	pqCheckViolation      = pq.ErrorCode("23514")
)

// isPqError reports whether err carries the given Postgres code, and for a
// non-empty constraint, whether that constraint tripped it.
func isPqError(err error, code pq.ErrorCode, constraint string) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	if !ok || pqErr.Code != code {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// orderClause renders ORDER BY from service orderings, keeping only
// whitelisted columns. Fields come from query strings; nothing unlisted
// may reach the SQL text.
func orderClause(ordering []core.DBOrdering, allowed map[string]struct{}) string {
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if _, ok := allowed[ord.Field]; !ok {
			continue
		}
		parts = append(parts, ord.String())
	}
	return strings.Join(parts, ", ")
}

// applyOrdering appends the whitelisted ORDER BY, or the fallback when
// nothing survives the whitelist.
func applyOrdering(q sq.SelectBuilder, ordering []core.DBOrdering, allowed map[string]struct{}, fallback string) sq.SelectBuilder {
	if clause := orderClause(ordering, allowed); clause != "" {
		return q.OrderBy(clause)
	}
	return q.OrderBy(fallback)
}
