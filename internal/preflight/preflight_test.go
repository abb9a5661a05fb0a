package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tagbench/internal/config"
	"tagbench/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDataset_Local(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if r := CheckDataset(context.Background(), "train", cfg.Dataset.Train, nil); !r.Passed {
		t.Fatalf("expected readable dataset, got: %s", r.Detail)
	}
	if r := CheckDataset(context.Background(), "train", filepath.Join(t.TempDir(), "x.csv"), nil); r.Passed {
		t.Fatal("expected failure for missing file")
	}
	if r := CheckDataset(context.Background(), "train", " ", nil); r.Passed {
		t.Fatal("expected failure for empty location")
	}
}

func TestCheckDataset_Remote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		if strings.HasSuffix(r.URL.Path, "missing.csv") {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	if r := CheckDataset(context.Background(), "holdout", srv.URL+"/holdout.csv", nil); !r.Passed {
		t.Fatalf("expected pass, got: %s", r.Detail)
	}
	if r := CheckDataset(context.Background(), "holdout", srv.URL+"/missing.csv", nil); r.Passed {
		t.Fatal("expected failure for 404")
	}
}

func TestCheckCredentials(t *testing.T) {
	if r := CheckCredentials(config.Backend{Name: "openai", APIKeyEnv: "OPENAI_API_KEY"}); r.Passed || !strings.Contains(r.Detail, "OPENAI_API_KEY") {
		t.Fatalf("expected missing-key failure naming the env var, got %+v", r)
	}
	if r := CheckCredentials(config.Backend{Name: "openai", APIKey: "k"}); !r.Passed {
		t.Fatalf("expected pass, got %+v", r)
	}
}

func TestCheckBackend(t *testing.T) {
	server := testsupport.NewChatServer(t, func(string) string { return "OK" })
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(server.URL))

	r := CheckBackend(context.Background(), cfg, cfg.Backends[0])
	if !r.Passed {
		t.Fatalf("expected pass, got: %s", r.Detail)
	}
	if server.Calls() != 1 {
		t.Fatalf("expected a single ping, got %d", server.Calls())
	}
}

func TestCheckBackend_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(srv.URL))

	r := CheckBackend(context.Background(), cfg, cfg.Backends[0])
	if r.Passed || !strings.HasPrefix(r.Detail, "rejected") {
		t.Fatalf("expected rejection, got %+v", r)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil, Options{})
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg, Options{})
	// work dir, log dir, train, holdout, one backend credential check
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d: %+v", len(results), results)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestRunAll_PingsWhenRequested(t *testing.T) {
	server := testsupport.NewChatServer(t, func(string) string { return "OK" })
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(server.URL))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg, Options{Ping: true})
	if len(results) != 6 || len(Failed(results)) != 0 {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestRunAll_SkipsPingWithoutCredentials(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutAPIKey())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	results := RunAll(context.Background(), cfg, Options{Ping: true})
	failed := Failed(results)
	if len(failed) != 1 || !strings.Contains(failed[0].Name, "credentials") {
		t.Fatalf("expected only the credential check to fail, got %+v", failed)
	}
}
