package health

import "context"

// HealthPinger is an optional fast-path probe a component may implement.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}
