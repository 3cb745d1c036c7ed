package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestLocalOpen covers success, missing file, directories and a pre-canceled
// context.
func TestLocalOpen(t *testing.T) {
	t.Parallel()

	type tc struct {
		name            string
		prepare         func(t *testing.T) string // returns path to open
		cancel          bool
		wantErrIs       error
		wantErrContains string
		wantContent     string
	}

	writeFile := func(t *testing.T, payload string) string {
		t.Helper()
		p := filepath.Join(t.TempDir(), "trips.csv")
		if err := os.WriteFile(p, []byte(payload), 0o644); err != nil {
			t.Fatalf("write test file: %v", err)
		}
		return p
	}

	cases := []tc{
		{
			name:        "success_reads_content",
			prepare:     func(t *testing.T) string { return writeFile(t, "a,b\n1,2\n") },
			wantContent: "a,b\n1,2\n",
		},
		{
			name:            "missing_file_errors_with_wrapping",
			prepare:         func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.csv") },
			wantErrIs:       os.ErrNotExist,
			wantErrContains: "open ",
		},
		{
			name:            "directory_rejected",
			prepare:         func(t *testing.T) string { return t.TempDir() },
			wantErrContains: "is a directory",
		},
		{
			name:      "pre_canceled_context_short_circuits",
			prepare:   func(t *testing.T) string { return writeFile(t, "ignored") },
			cancel:    true,
			wantErrIs: context.Canceled,
		},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithCancel(context.Background())
			if c.cancel {
				cancel()
			} else {
				defer cancel()
			}

			rc, err := NewLocal(c.prepare(t)).Open(ctx)
			if c.wantErrIs != nil || c.wantErrContains != "" {
				if err == nil {
					rc.Close()
					t.Fatalf("expected error, got nil")
				}
				if c.wantErrIs != nil && !errors.Is(err, c.wantErrIs) {
					t.Fatalf("error %v does not wrap %v", err, c.wantErrIs)
				}
				if !strings.Contains(err.Error(), c.wantErrContains) {
					t.Fatalf("error %q does not contain %q", err, c.wantErrContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer rc.Close()
			b, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(b) != c.wantContent {
				t.Fatalf("content = %q, want %q", b, c.wantContent)
			}
		})
	}
}
