package stream

import (
	"context"

	"github.com/google/uuid"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/jerrors"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/tree"
)

// Acquirer is implemented by a driver node that exports an
// exportstream-tagged method (spec §4.4): Acquire runs the driver's
// scoped acquisition block for one stream open and hands back the byte-
// stream endpoint the multiplexer copies to/from the client.
type Acquirer interface {
	Acquire(ctx context.Context, method string) (DriverEndpoint, error)
}

// AcquireFromTree adapts a Tree into the acquire callback Multiplexer.
// ServeDriver (via session.WithExportStreamAcquire) expects: resolve id,
// assert the resolved node implements Acquirer, and delegate.
func AcquireFromTree(t *tree.Tree) func(ctx context.Context, id uuid.UUID, method string) (DriverEndpoint, error) {
	return func(ctx context.Context, id uuid.UUID, method string) (DriverEndpoint, error) {
		node, err := t.Find(id)
		if err != nil {
			return nil, err
		}
		acquirer, ok := node.(Acquirer)
		if !ok {
			return nil, jerrors.Newf(jerrors.NotFound, "node %s does not support stream acquisition", id)
		}
		return acquirer.Acquire(ctx, method)
	}
}
