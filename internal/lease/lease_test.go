package lease

import (
	"context"
	"testing"

	"google.golang.org/grpc"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/jerrors"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/wire"
)

// fakeController implements wire.ControllerClient with scripted
// responses, enough to exercise Client without a real controller.
type fakeController struct {
	requestResult *wire.Lease
	requestErr    error
	releaseErr    error
	listLeases    []*wire.Lease
	watchErr      error
}

func (f *fakeController) RequestLease(context.Context, *wire.RequestLeaseRequest, ...grpc.CallOption) (*wire.Lease, error) {
	return f.requestResult, f.requestErr
}

func (f *fakeController) ReleaseLease(context.Context, *wire.ReleaseLeaseRequest, ...grpc.CallOption) (*wire.ReleaseLeaseResponse, error) {
	return &wire.ReleaseLeaseResponse{}, f.releaseErr
}

func (f *fakeController) ListExporters(context.Context, *wire.ListExportersRequest, ...grpc.CallOption) (*wire.ListExportersResponse, error) {
	return &wire.ListExportersResponse{}, nil
}

func (f *fakeController) ListLeases(context.Context, *wire.ListLeasesRequest, ...grpc.CallOption) (*wire.ListLeasesResponse, error) {
	return &wire.ListLeasesResponse{Leases: f.listLeases}, nil
}

func (f *fakeController) WatchLease(context.Context, *wire.WatchLeaseRequest, ...grpc.CallOption) (wire.Controller_WatchLeaseClient, error) {
	return nil, f.watchErr
}

func (f *fakeController) ObtainRouterEndpoint(context.Context, *wire.ObtainRouterEndpointRequest, ...grpc.CallOption) (*wire.RouterEndpoint, error) {
	return &wire.RouterEndpoint{}, nil
}

func TestRequestReturnsTheLeaseFromTheController(t *testing.T) {
	fc := &fakeController{requestResult: &wire.Lease{Name: "lease-1"}}
	c := NewClient(fc, Options{})

	l, err := c.Request(context.Background(), "client-a", map[string]string{"board": "rpi"}, 0)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if l.Name != "lease-1" {
		t.Fatalf("got lease name %q", l.Name)
	}
}

func TestReleaseSwallowsNotFoundForIdempotency(t *testing.T) {
	fc := &fakeController{releaseErr: jerrors.New(jerrors.NotFound, "lease already released")}
	c := NewClient(fc, Options{})

	if err := c.Release(context.Background(), "lease-1"); err != nil {
		t.Fatalf("expected Release to swallow NotFound, got %v", err)
	}
}

func TestReleasePropagatesOtherErrors(t *testing.T) {
	fc := &fakeController{releaseErr: jerrors.New(jerrors.Internal, "boom")}
	c := NewClient(fc, Options{})

	if err := c.Release(context.Background(), "lease-1"); err == nil {
		t.Fatal("expected a non-NotFound release error to propagate")
	}
}

func TestAwaitReadyFallsBackToPollingWhenWatchUnavailable(t *testing.T) {
	fc := &fakeController{
		watchErr: jerrors.New(jerrors.Unavailable, "watch not supported"),
		listLeases: []*wire.Lease{
			{Name: "lease-1", Conditions: []*wire.LeaseCondition{{Type: "Ready", Status: "True"}}},
		},
	}
	c := NewClient(fc, Options{})

	l, err := c.AwaitReady(context.Background(), "lease-1")
	if err != nil {
		t.Fatalf("AwaitReady: %v", err)
	}
	if !leaseReady(l) {
		t.Fatal("expected the returned lease to be ready")
	}
}
