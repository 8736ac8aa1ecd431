package health

import "context"

// ReadinessCheck is implemented by anything that talks to an external
// dependency and can report whether that dependency is reachable.
type ReadinessCheck interface {
	IsReady(ctx context.Context) error
	Name() string
}
