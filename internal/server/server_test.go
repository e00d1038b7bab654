// ABOUTME: Tests for server lifecycle and store selection
// ABOUTME: Runs a real server on a loopback port and exercises graceful shutdown

package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/NiLuJe/kosync/internal/config"
	"github.com/NiLuJe/kosync/internal/store"
)

// testConfig creates a minimal config for testing with an available port.
func testConfig(t *testing.T) *config.Config {
	t.Helper()

	// Find an available port
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find available HTTP port: %v", err)
	}
	httpAddr := ln.Addr().String()
	ln.Close()

	cfg := config.Default()
	cfg.Server.HTTPAddr = httpAddr
	cfg.Storage = config.StorageConfig{Backend: config.BackendMemory}
	return cfg
}

// testLogger creates a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		cfg := &config.Config{Storage: config.StorageConfig{Backend: config.BackendMemory}}
		st, err := OpenStore(ctx, cfg)
		if err != nil {
			t.Fatalf("OpenStore() failed: %v", err)
		}
		defer st.Close()

		if _, ok := st.(*store.MemoryStore); !ok {
			t.Errorf("OpenStore() returned %T, want *store.MemoryStore", st)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := &config.Config{Storage: config.StorageConfig{
			Backend: config.BackendSQLite,
			Path:    filepath.Join(t.TempDir(), "test.db"),
		}}
		st, err := OpenStore(ctx, cfg)
		if err != nil {
			t.Fatalf("OpenStore() failed: %v", err)
		}
		defer st.Close()

		if err := st.Ping(ctx); err != nil {
			t.Errorf("Ping() failed: %v", err)
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := &config.Config{Storage: config.StorageConfig{Backend: "etcd"}}
		if _, err := OpenStore(ctx, cfg); err == nil {
			t.Error("OpenStore() expected error for unknown backend, got nil")
		}
	})
}

func TestNew(t *testing.T) {
	cfg := testConfig(t)
	st := store.NewMemoryStore()

	s := New(cfg, st, testLogger())

	if s.config != cfg {
		t.Error("server config mismatch")
	}
	if s.store == nil {
		t.Error("store should not be nil")
	}
	if s.httpServer == nil {
		t.Error("httpServer should not be nil")
	}
	if s.httpServer.ReadHeaderTimeout != 10*time.Second {
		t.Errorf("ReadHeaderTimeout = %v, want 10s", s.httpServer.ReadHeaderTimeout)
	}
}

func TestServerRunAndShutdown(t *testing.T) {
	cfg := testConfig(t)
	s := New(cfg, store.NewMemoryStore(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())

	// Run server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Run(ctx)
	}()

	// Poll until the server answers
	var resp *http.Response
	var err error
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + cfg.Server.HTTPAddr + "/robots.txt")
		if err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never answered: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("robots.txt status = %d, want 200", resp.StatusCode)
	}

	// Shutdown via context cancel
	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Run() returned unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("server did not shutdown in time")
	}
}

func TestRun_ListenFailure(t *testing.T) {
	// Occupy a port, then point the server at it
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to occupy port: %v", err)
	}
	defer ln.Close()

	cfg := testConfig(t)
	cfg.Server.HTTPAddr = ln.Addr().String()
	s := New(cfg, store.NewMemoryStore(), testLogger())

	if err := s.Run(context.Background()); err == nil {
		t.Error("Run() expected error for occupied port, got nil")
	}
}

func TestResolveTailscaleStateDir(t *testing.T) {
	if got := resolveTailscaleStateDir("/explicit/dir"); got != "/explicit/dir" {
		t.Errorf("resolveTailscaleStateDir() = %q, want the configured value", got)
	}

	t.Setenv("KOSYNC_DATA_DIR", "/data")
	if got := resolveTailscaleStateDir(""); got != filepath.Join("/data", "tailscale") {
		t.Errorf("resolveTailscaleStateDir() = %q, want the data dir default", got)
	}
}

func TestResolveTailscaleAuthKey(t *testing.T) {
	t.Setenv("TS_AUTHKEY", "")

	if _, err := resolveTailscaleAuthKey(""); err == nil {
		t.Error("resolveTailscaleAuthKey() expected error with no key available")
	}

	key, err := resolveTailscaleAuthKey("tskey-configured")
	if err != nil || key != "tskey-configured" {
		t.Errorf("resolveTailscaleAuthKey() = %q, %v", key, err)
	}

	t.Setenv("TS_AUTHKEY", "tskey-env")
	key, err = resolveTailscaleAuthKey("")
	if err != nil || key != "tskey-env" {
		t.Errorf("resolveTailscaleAuthKey() = %q, %v; want the env fallback", key, err)
	}
}

func TestAppendCloseError(t *testing.T) {
	errs := appendCloseError(nil, "first", nil)
	if len(errs) != 0 {
		t.Errorf("appendCloseError(nil err) grew the slice: %v", errs)
	}

	errs = appendCloseError(errs, "second", errors.New("boom"))
	if len(errs) != 1 {
		t.Fatalf("appendCloseError() len = %d, want 1", len(errs))
	}
	if got := errs[0].Error(); got != "second: boom" {
		t.Errorf("appendCloseError() = %q", got)
	}
}
