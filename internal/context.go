package internal

import "context"

type ctxKey string

const ContextOperatorKey ctxKey = "operator"

// Operator is the authenticated identity performing an administrative call.
type Operator struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

func OperatorFromContext(ctx context.Context) (*Operator, bool) {
	op, ok := ctx.Value(ContextOperatorKey).(*Operator)
	return op, ok
}

func ContextWithOperator(ctx context.Context, op *Operator) context.Context {
	return context.WithValue(ctx, ContextOperatorKey, op)
}

// RequestMetadata carries caller information captured at the transport
// boundary for audit entries.
type RequestMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
}
