package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/zalando/go-keyring"

	"bgmexport/internal/ratelimit"
	"bgmexport/internal/token"
	"bgmexport/internal/workflow"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	outputDir  string
	cacheDir   string
	server     *httptest.Server
	requests   *atomic.Int64
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	keyring.MockInit()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Chdir(base)
	t.Setenv(token.EnvVar, "cli-token")

	requests := new(atomic.Int64)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.Header.Get("Authorization") != "Bearer cli-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/v0/me":
			fmt.Fprint(w, `{"id": 42, "username": "sai", "nickname": "Sai"}`)
		case r.URL.Path == "/v0/users/sai/collections":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"total": 1, "limit": 30, "offset": 0,
				"data": []map[string]any{{
					"subject_id": 10380, "subject_type": 2, "type": 2, "rate": 10, "ep_status": 24,
					"updated_at": "2024-03-01T12:30:00+08:00", "comment": nil, "tags": []string{}, "private": false,
					"subject": map[string]any{"id": 10380, "name": "Steins;Gate", "name_cn": "命运石之门", "type": 2, "eps": 24},
				}},
			})
		case strings.HasPrefix(r.URL.Path, "/v0/users/-/collections/"):
			fmt.Fprint(w, `{"total": 2, "limit": 100, "offset": 0, "data": [`+
				`{"episode": {"id": 1, "type": 0, "sort": 1, "ep": 1}, "type": 2},`+
				`{"episode": {"id": 2, "type": 0, "sort": 2, "ep": 2}, "type": 0}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "bgmexport.toml"),
		outputDir:  filepath.Join(base, "out"),
		cacheDir:   filepath.Join(base, "cache"),
		server:     server,
		requests:   requests,
	}
	writeTestConfig(t, env)
	return env
}

func writeTestConfig(t *testing.T, env *cliTestEnv) {
	t.Helper()
	content := fmt.Sprintf(`[api]
base_url = %q
request_interval_seconds = 5
max_retries = 0

[paths]
cache_dir = %q
output_dir = %q
token_file = %q

[export]
timezone = "Asia/Shanghai"

[keyring]
enabled = true
service = "bgmexport-test"

[logging]
level = "error"
`, env.server.URL, env.cacheDir, env.outputDir, filepath.Join(env.baseDir, "token"))
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand(workflow.WithGate(ratelimit.New(0)))
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
