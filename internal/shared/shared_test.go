package shared

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestRetryable(t *testing.T) {
	t.Run("Records Failure Then Success", func(t *testing.T) {
		calls := 0
		boom := errors.New("boom")
		r := NewRetryable("load", func(ctx context.Context) (string, error) {
			calls++
			if calls == 1 {
				return "", boom
			}
			return "ok", nil
		})

		if _, err := r.Run(context.Background()); !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if !r.Failed() {
			t.Error("expected Failed after first attempt")
		}
		if _, ok := r.Value(); ok {
			t.Error("expected no value after failure")
		}

		v, err := r.Retry(context.Background())
		if err != nil {
			t.Fatalf("expected retry to succeed, got %v", err)
		}
		if v != "ok" {
			t.Errorf("expected ok, got %q", v)
		}
		if r.Err() != nil {
			t.Errorf("expected Err to be cleared, got %v", r.Err())
		}
		if r.Attempts() != 2 {
			t.Errorf("expected 2 attempts, got %d", r.Attempts())
		}
		if got, ok := r.Value(); !ok || got != "ok" {
			t.Errorf("expected stored value ok, got %q (%v)", got, ok)
		}
	})

	t.Run("Rejects Reentry While Running", func(t *testing.T) {
		started := make(chan struct{})
		release := make(chan struct{})
		r := NewRetryable("slow", func(ctx context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		})

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Run(context.Background())
		}()

		<-started
		if _, err := r.Retry(context.Background()); !errors.Is(err, ErrInFlight) {
			t.Errorf("expected ErrInFlight, got %v", err)
		}
		close(release)
		wg.Wait()

		if r.Attempts() != 1 {
			t.Errorf("expected rejected reentry not to count as an attempt, got %d", r.Attempts())
		}
	})

	t.Run("Name", func(t *testing.T) {
		r := NewRetryable("router.initialize", func(ctx context.Context) (struct{}, error) { return struct{}{}, nil })
		if r.Name() != "router.initialize" {
			t.Errorf("unexpected name %q", r.Name())
		}
	})
}

func TestLoggers(t *testing.T) {
	t.Run("NewFileLogger", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "tunemeld.log")

		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("failed to create file logger: %v", err)
		}
		WithLogger(logger, "component", "test").Info("hello")

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read log file: %v", err)
		}
		if !strings.Contains(string(data), "hello") || !strings.Contains(string(data), "component=test") {
			t.Errorf("expected log line with component key, got %q", string(data))
		}
	})

	t.Run("GenerateID", func(t *testing.T) {
		a, b := GenerateID(), GenerateID()
		if a == b {
			t.Error("expected unique IDs")
		}
		if len(a) != 36 {
			t.Errorf("expected 36 character UUID, got %d", len(a))
		}
	})
}

func TestOpenBrowser(t *testing.T) {
	t.Run("Rejects Non HTTP URLs", func(t *testing.T) {
		for _, target := range []string{"", "file:///etc/passwd", "/?genre=pop", "javascript:alert(1)"} {
			if err := OpenBrowser(target); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("OpenBrowser(%q) expected ErrInvalidArgument, got %v", target, err)
			}
		}
	})

	t.Run("Unsupported Platform", func(t *testing.T) {
		original := getRuntime
		defer func() { getRuntime = original }()
		getRuntime = func() string { return "plan9" }

		err := OpenBrowser("https://open.spotify.com/track/1")
		if err == nil || !strings.Contains(err.Error(), "unsupported platform") {
			t.Errorf("expected unsupported platform error, got %v", err)
		}
	})
}
