package db

import (
	"context"
	"testing"
	"time"
)

func TestConnectInvalidDSN(t *testing.T) {
	_, err := Connect(context.Background(), "not-a-dsn://%%")
	if err == nil {
		t.Error("Connect() error = nil, want parse error for malformed DSN")
	}
}

func TestConnectUnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network dial in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Connect(ctx, "postgres://u:p@127.0.0.1:1/filerelay?sslmode=disable")
	if err == nil {
		t.Error("Connect() error = nil, want ping failure for unreachable host")
	}
}
