package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/domain"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/jerrors"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/tree"
)

type fakeDriver struct {
	*tree.Base
	callResult domain.Value
	callErr    error
	streamVals []domain.Value
	streamErr  error
}

func (f *fakeDriver) Call(ctx domain.CallContext, method string, args domain.Value) (domain.Value, error) {
	return f.callResult, f.callErr
}

func (f *fakeDriver) CallStreaming(ctx domain.CallContext, method string, args domain.Value, emit func(domain.Value) error) error {
	for _, v := range f.streamVals {
		if err := emit(v); err != nil {
			return err
		}
	}
	return f.streamErr
}

func newFakeDriver(name string, methods []domain.Method) *fakeDriver {
	return &fakeDriver{Base: tree.NewBase(name, "test.Fake", methods)}
}

func newCtx() domain.CallContext {
	ctx := context.Background()
	return ctxAdapter{ctx}
}

type ctxAdapter struct{ context.Context }

func (c ctxAdapter) CallID() uint64 { return 0 }

func TestCallDispatchesUnaryMethod(t *testing.T) {
	driver := newFakeDriver("d", []domain.Method{{Name: "ping", Kind: domain.MethodUnary}})
	one := 1.0
	driver.callResult = domain.Value{Number: &one}

	root := tree.NewComposite("root", driver)
	tr := tree.New(root)
	d := New(tr, nil)

	got, err := d.Call(newCtx(), driver.UUID(), "ping", domain.Value{})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got.Number == nil || *got.Number != 1.0 {
		t.Fatalf("Call returned %+v, want 1.0", got)
	}
}

func TestCallUnknownMethodIsNotFound(t *testing.T) {
	driver := newFakeDriver("d", nil)
	root := tree.NewComposite("root", driver)
	tr := tree.New(root)
	d := New(tr, nil)

	_, err := d.Call(newCtx(), driver.UUID(), "missing", domain.Value{})
	if jerrors.KindOf(err) != jerrors.NotFound {
		t.Fatalf("KindOf(err) = %v, want NotFound", jerrors.KindOf(err))
	}
}

func TestCallOnStreamingMethodIsInvalidArgument(t *testing.T) {
	driver := newFakeDriver("d", []domain.Method{{Name: "watch", Kind: domain.MethodStreaming}})
	root := tree.NewComposite("root", driver)
	tr := tree.New(root)
	d := New(tr, nil)

	_, err := d.Call(newCtx(), driver.UUID(), "watch", domain.Value{})
	if jerrors.KindOf(err) != jerrors.InvalidArgument {
		t.Fatalf("KindOf(err) = %v, want InvalidArgument", jerrors.KindOf(err))
	}
}

func TestCallDriverFailureSurfacesAsInternal(t *testing.T) {
	driver := newFakeDriver("d", []domain.Method{{Name: "ping", Kind: domain.MethodUnary}})
	driver.callErr = errors.New("boom")

	root := tree.NewComposite("root", driver)
	tr := tree.New(root)
	d := New(tr, nil)

	_, err := d.Call(newCtx(), driver.UUID(), "ping", domain.Value{})
	if jerrors.KindOf(err) != jerrors.Internal {
		t.Fatalf("KindOf(err) = %v, want Internal", jerrors.KindOf(err))
	}
}

func TestCallDriverMayOptIntoRicherKind(t *testing.T) {
	driver := newFakeDriver("d", []domain.Method{{Name: "ping", Kind: domain.MethodUnary}})
	driver.callErr = jerrors.New(jerrors.PermissionDenied, "nope")

	root := tree.NewComposite("root", driver)
	tr := tree.New(root)
	d := New(tr, nil)

	_, err := d.Call(newCtx(), driver.UUID(), "ping", domain.Value{})
	if jerrors.KindOf(err) != jerrors.PermissionDenied {
		t.Fatalf("KindOf(err) = %v, want PermissionDenied", jerrors.KindOf(err))
	}
}

func TestStreamingCallForwardsValuesInOrder(t *testing.T) {
	a, b := 1.0, 2.0
	driver := newFakeDriver("d", []domain.Method{{Name: "watch", Kind: domain.MethodStreaming}})
	driver.streamVals = []domain.Value{{Number: &a}, {Number: &b}}

	root := tree.NewComposite("root", driver)
	tr := tree.New(root)
	d := New(tr, nil)

	var got []float64
	err := d.StreamingCall(newCtx(), driver.UUID(), "watch", domain.Value{}, func(v domain.Value) error {
		got = append(got, *v.Number)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamingCall: %v", err)
	}
	if len(got) != 2 || got[0] != 1.0 || got[1] != 2.0 {
		t.Fatalf("got %v, want [1 2]", got)
	}
}

func TestStreamingCallOnUnaryMethodIsInvalidArgument(t *testing.T) {
	driver := newFakeDriver("d", []domain.Method{{Name: "ping", Kind: domain.MethodUnary}})
	root := tree.NewComposite("root", driver)
	tr := tree.New(root)
	d := New(tr, nil)

	err := d.StreamingCall(newCtx(), driver.UUID(), "ping", domain.Value{}, func(domain.Value) error { return nil })
	if jerrors.KindOf(err) != jerrors.InvalidArgument {
		t.Fatalf("KindOf(err) = %v, want InvalidArgument", jerrors.KindOf(err))
	}
}
