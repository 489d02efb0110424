package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// testEnv is an isolated database and configuration file.
type testEnv struct {
	dir        string
	dbDir      string
	configPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:        dir,
		dbDir:      filepath.Join(dir, "db"),
		configPath: filepath.Join(dir, "config.yaml"),
	}
	if err := os.WriteFile(env.configPath, []byte("sites: {}\n"), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return env
}

// execute runs the root command with args against env and returns what it
// wrote to standard output and standard error.
func (e *testEnv) execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--db-dir", e.dbDir, "--config", e.configPath))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// mustExecute is execute that fails the test on error.
func (e *testEnv) mustExecute(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, err := e.execute(t, "", args...)
	if err != nil {
		t.Fatalf("%v failed: %v\nstderr: %s", args, err, stderr)
	}
	return stdout
}

// writeFile writes content under the env directory and returns its path.
func (e *testEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// newsPage returns a page with a grid of n cards. The card at target is
// about Elon; pass -1 for none.
func newsPage(n, target int) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><title>News</title></head><body><main><section class="grid" id="feed">`)
	for i := 0; i < n; i++ {
		title := fmt.Sprintf("Story number %d", i)
		if i == target {
			title = "Elon buys another thing"
		}
		fmt.Fprintf(&b, `<div class="card" id="card-%d"><a href="/s/%d"><img src="/i/%d.jpg"></a><h3>%s</h3><p>Summary %d</p></div>`,
			i, i, i, title, i)
	}
	b.WriteString(`</section></main></body></html>`)
	return b.String()
}
