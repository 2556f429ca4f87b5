package dashboard

import (
	"context"

	"github.com/carepoint/hms/internal/platform/store"
)

// Counter counts rows of a source. Row-level security on the session
// already limits what the caller can see.
type Counter interface {
	Count(ctx context.Context, src Source, filters ...store.Filter) (int, error)
}
