package session

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/transport"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/tree"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/wire"
)

func serveTestSession(t *testing.T, opts ...Option) string {
	t.Helper()
	root := tree.NewComposite("root")

	sess, err := New(root, 8, 0, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sock := filepath.Join(t.TempDir(), fmt.Sprintf("session-%d.sock", time.Now().UnixNano()))
	endpoint := "unix://" + sock

	errCh := make(chan error, 1)
	go func() { errCh <- sess.Serve(endpoint) }()
	t.Cleanup(func() {
		sess.Stop()
		select {
		case <-errCh:
		case <-time.After(time.Second):
		}
	})
	waitForSocket(t, sock)
	return endpoint
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if conn, err := net.Dial("unix", path); err == nil {
			conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("session socket %s never came up", path)
}

// TestServeWithoutTokenAcceptsUnauthenticatedCalls covers the embedded-use
// case WithToken's doc comment describes: no token configured means no
// auth interceptor is installed at all.
func TestServeWithoutTokenAcceptsUnauthenticatedCalls(t *testing.T) {
	endpoint := serveTestSession(t)

	conn, err := transport.Dial(context.Background(), endpoint)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if _, err := wire.NewExporterClient(conn).GetReport(context.Background(), &wire.GetReportRequest{}); err != nil {
		t.Fatalf("GetReport: %v", err)
	}
}

// TestServeWithTokenRejectsMissingOrWrongBearer covers spec §6's
// ExporterConfig.Token requirement: any RPC lacking the exact bearer
// token is refused PermissionDenied before it reaches the handler.
func TestServeWithTokenRejectsMissingOrWrongBearer(t *testing.T) {
	endpoint := serveTestSession(t, WithToken("s3cr3t"))

	noToken, err := transport.Dial(context.Background(), endpoint)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer noToken.Close()

	_, err = wire.NewExporterClient(noToken).GetReport(context.Background(), &wire.GetReportRequest{})
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("GetReport without token: got %v, want PermissionDenied", err)
	}

	wrongToken, err := transport.Dial(context.Background(), endpoint, transport.WithToken("nope"))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer wrongToken.Close()

	_, err = wire.NewExporterClient(wrongToken).GetReport(context.Background(), &wire.GetReportRequest{})
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("GetReport with wrong token: got %v, want PermissionDenied", err)
	}
}

// TestServeWithTokenAcceptsMatchingBearer is the positive counterpart of
// TestServeWithTokenRejectsMissingOrWrongBearer.
func TestServeWithTokenAcceptsMatchingBearer(t *testing.T) {
	endpoint := serveTestSession(t, WithToken("s3cr3t"))

	conn, err := transport.Dial(context.Background(), endpoint, transport.WithToken("s3cr3t"))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if _, err := wire.NewExporterClient(conn).GetReport(context.Background(), &wire.GetReportRequest{}); err != nil {
		t.Fatalf("GetReport: %v", err)
	}
}
