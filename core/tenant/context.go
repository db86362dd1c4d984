package tenant

import "context"

type ctxKey struct{}

// WithTenant returns a context carrying t; tenant-scoped repositories
// read it to qualify their tables.
func WithTenant(ctx context.Context, t Tenant) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

func FromContext(ctx context.Context) (Tenant, bool) {
	t, ok := ctx.Value(ctxKey{}).(Tenant)
	return t, ok
}

// SchemaFromContext returns the schema of the context tenant, or "" when
// none is set.
func SchemaFromContext(ctx context.Context) string {
	if t, ok := FromContext(ctx); ok {
		return t.SchemaName
	}
	return ""
}
