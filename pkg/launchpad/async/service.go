package async

import (
	"context"
)

// Service is a long running background worker. Start blocks until ctx is
// done or the worker fails.
type Service interface {
	Start(ctx context.Context) error
}
