package utils

import (
	"errors"
	"testing"
)

func TestAppErrorMessage(t *testing.T) {
	err := NewAppError("store.Record", "write metric", errors.New("connection refused"))
	want := "store.Record: write metric: connection refused"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}

	bare := NewAppError("config.Load", "parse config", nil)
	if bare.Error() != "config.Load: parse config" {
		t.Fatalf("nil cause format wrong: %q", bare.Error())
	}
}

func TestAppErrorUnwrapKeepsSentinelMatchable(t *testing.T) {
	sentinel := errors.New("storage unavailable")
	err := NewAppError("redis.Query", "dial tcp: i/o timeout", sentinel)

	if !errors.Is(err, sentinel) {
		t.Fatalf("errors.Is must see through AppError to the sentinel")
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("errors.As must recover the AppError")
	}
	if appErr.Op != "redis.Query" {
		t.Fatalf("unexpected op: %q", appErr.Op)
	}
}
