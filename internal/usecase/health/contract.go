package health

import "context"

// Pinger is satisfied by the correlation store, the pgx pool and the NATS
// notifier.
type Pinger interface {
	Ping(ctx context.Context) error
}
