package main

import (
	"io"
	"strings"
	"testing"
)

func TestRunUsageErrorWhenNeitherGetNorPutGiven(t *testing.T) {
	code := run(nil, io.Discard, io.Discard)
	if code != exitUsageError {
		t.Fatalf("expected exit %d, got %d", exitUsageError, code)
	}
}

func TestRunUsageErrorWhenBothGetAndPutGiven(t *testing.T) {
	code := run([]string{"--get", "x", "--put", "y", "--val", "1"}, io.Discard, io.Discard)
	if code != exitUsageError {
		t.Fatalf("expected exit %d, got %d", exitUsageError, code)
	}
}

func TestRunUsageErrorWhenPutMissingVal(t *testing.T) {
	code := run([]string{"--put", "x"}, io.Discard, io.Discard)
	if code != exitUsageError {
		t.Fatalf("expected exit %d, got %d", exitUsageError, code)
	}
}

func TestRunOpFailedWhenManagerUnreachable(t *testing.T) {
	var stderr strings.Builder
	code := run([]string{"--get", "x", "--manager-host", "127.0.0.1", "--manager-port", "1"}, io.Discard, &stderr)
	if code != exitOpFailed {
		t.Fatalf("expected exit %d, got %d: %s", exitOpFailed, code, stderr.String())
	}
}
