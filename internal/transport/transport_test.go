package transport

import (
	"context"
	"testing"
)

func TestBearerTokenSetsAuthorizationHeader(t *testing.T) {
	b := bearerToken{token: "abc123"}
	md, err := b.GetRequestMetadata(context.Background())
	if err != nil {
		t.Fatalf("GetRequestMetadata: %v", err)
	}
	if md["authorization"] != "Bearer abc123" {
		t.Fatalf("got authorization %q", md["authorization"])
	}
}

func TestDialDoesNotBlockOnUnreachableTarget(t *testing.T) {
	conn, err := Dial(context.Background(), "unix:///tmp/does-not-exist.sock")
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
}

func TestDialWithTokenOverInsecureCredentialsSucceeds(t *testing.T) {
	conn, err := Dial(context.Background(), "tcp://127.0.0.1:0", WithToken("tok"))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
}
