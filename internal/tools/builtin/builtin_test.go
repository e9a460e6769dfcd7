package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/haasonsaas/strand/internal/tools"
)

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestRegisterBuiltinsHonorsDisabled(t *testing.T) {
	r := tools.NewRegistry()
	err := RegisterBuiltins(r, tools.DefaultSandboxPolicy(), []string{"execute_shell", "write_file"})
	if err != nil {
		t.Fatal(err)
	}
	if r.Contains("execute_shell") || r.Contains("write_file") {
		t.Fatal("disabled tools were registered")
	}
	for _, name := range []string{"read_file", "list_directory", "search_files", "http_request", "get_system_info"} {
		if !r.Contains(name) {
			t.Fatalf("%s missing", name)
		}
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.txt")
	if err := os.WriteFile(path, []byte("line1\nline2\nline3\nline4"), 0o644); err != nil {
		t.Fatal(err)
	}
	rf := NewReadFile(tools.DefaultSandboxPolicy())

	out, err := rf.Execute(context.Background(), mustJSON(t, map[string]any{"path": path}))
	if err != nil || out.IsError {
		t.Fatalf("read: %v %+v", err, out)
	}
	if out.Content != "line1\nline2\nline3\nline4" {
		t.Fatalf("content = %q", out.Content)
	}

	out, err = rf.Execute(context.Background(), mustJSON(t, map[string]any{"path": path, "offset": 1, "limit": 2}))
	if err != nil {
		t.Fatal(err)
	}
	if out.Content != "line2\nline3" {
		t.Fatalf("windowed content = %q", out.Content)
	}

	missing := filepath.Join(dir, "nope.txt")
	out, err = rf.Execute(context.Background(), mustJSON(t, map[string]any{"path": missing}))
	if err != nil {
		t.Fatal(err)
	}
	if !out.IsError || out.Content != fmt.Sprintf("File not found: %s", missing) {
		t.Fatalf("out = %+v", out)
	}
}

func TestWriteFileCreatesParents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "out.txt")
	wf := NewWriteFile(tools.DefaultSandboxPolicy())

	out, err := wf.Execute(context.Background(), mustJSON(t, map[string]any{"path": path, "content": "first"}))
	if err != nil || out.IsError {
		t.Fatalf("write: %v %+v", err, out)
	}
	if !strings.Contains(out.Content, "Successfully wrote") {
		t.Fatalf("out = %q", out.Content)
	}

	out, err = wf.Execute(context.Background(), mustJSON(t, map[string]any{"path": path, "content": " second", "append": true}))
	if err != nil || out.IsError {
		t.Fatalf("append: %v %+v", err, out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "first second" {
		t.Fatalf("file = %q", data)
	}
}

func TestWriteFileBlockedPath(t *testing.T) {
	dir := t.TempDir()
	policy := tools.DefaultSandboxPolicy()
	policy.BlockedPaths = []string{dir}
	wf := NewWriteFile(policy)

	_, err := wf.Execute(context.Background(), mustJSON(t, map[string]any{
		"path": filepath.Join(dir, "x.txt"), "content": "nope",
	}))
	if tools.KindOf(err) != tools.KindPermissionDenied {
		t.Fatalf("err = %v", err)
	}
}

func TestListDirectorySorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"zeta.txt", "alpha.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	ld := NewListDirectory(tools.DefaultSandboxPolicy())
	out, err := ld.Execute(context.Background(), mustJSON(t, map[string]any{"path": dir}))
	if err != nil || out.IsError {
		t.Fatalf("list: %v %+v", err, out)
	}

	var entries []struct {
		Name  string `json:"name"`
		IsDir bool   `json:"is_dir"`
	}
	if err := json.Unmarshal([]byte(out.Content), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d", len(entries))
	}
	want := []string{"alpha.txt", "sub", "zeta.txt"}
	for i, e := range entries {
		if e.Name != want[i] {
			t.Fatalf("entries[%d] = %s, want %s", i, e.Name, want[i])
		}
	}
	if !entries[1].IsDir {
		t.Fatal("sub should be a directory")
	}
}

func TestSearchFilesGlob(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{
		filepath.Join(dir, "main.go"),
		filepath.Join(sub, "util.go"),
		filepath.Join(dir, "readme.md"),
	} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	sf := NewSearchFiles(tools.DefaultSandboxPolicy())
	out, err := sf.Execute(context.Background(), mustJSON(t, map[string]any{"path": dir, "pattern": "*.go"}))
	if err != nil || out.IsError {
		t.Fatalf("search: %v %+v", err, out)
	}
	var matches []string
	if err := json.Unmarshal([]byte(out.Content), &matches); err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %v", matches)
	}
}

func TestHTTPRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.Error(w, "not here", http.StatusNotFound)
			return
		}
		w.Header().Set("X-Probe", "yes")
		fmt.Fprint(w, "pong")
	}))
	defer srv.Close()

	hr := NewHTTPRequest(tools.DefaultSandboxPolicy())
	out, err := hr.Execute(context.Background(), mustJSON(t, map[string]any{"url": srv.URL + "/ping"}))
	if err != nil || out.IsError {
		t.Fatalf("request: %v %+v", err, out)
	}
	var result struct {
		Status  int               `json:"status"`
		Headers map[string]string `json:"headers"`
		Body    string            `json:"body"`
	}
	if err := json.Unmarshal([]byte(out.Content), &result); err != nil {
		t.Fatal(err)
	}
	if result.Status != 200 || result.Body != "pong" || result.Headers["X-Probe"] != "yes" {
		t.Fatalf("result = %+v", result)
	}

	out, err = hr.Execute(context.Background(), mustJSON(t, map[string]any{"url": srv.URL + "/missing"}))
	if err != nil {
		t.Fatal(err)
	}
	if !out.IsError {
		t.Fatal("status >= 400 should be an error output")
	}
}

func TestHTTPRequestDeniedByPolicy(t *testing.T) {
	policy := tools.DefaultSandboxPolicy()
	policy.AllowNetwork = false
	hr := NewHTTPRequest(policy)

	_, err := hr.Execute(context.Background(), mustJSON(t, map[string]any{"url": "http://example.com"}))
	if tools.KindOf(err) != tools.KindPermissionDenied {
		t.Fatalf("err = %v", err)
	}
}

func TestHTTPRequestBlockedHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("blocked host must not be reached")
	}))
	defer srv.Close()

	policy := tools.DefaultSandboxPolicy()
	policy.BlockedHosts = []string{"127.0.0.1"}
	hr := NewHTTPRequest(policy)

	_, err := hr.Execute(context.Background(), mustJSON(t, map[string]any{"url": srv.URL}))
	if tools.KindOf(err) != tools.KindPermissionDenied {
		t.Fatalf("err = %v", err)
	}
}

func TestHTTPRequestHostAllowList(t *testing.T) {
	policy := tools.DefaultSandboxPolicy()
	policy.AllowedHosts = []string{"api.example.com"}
	hr := NewHTTPRequest(policy)

	_, err := hr.Execute(context.Background(), mustJSON(t, map[string]any{"url": "http://other.example.com/"}))
	if tools.KindOf(err) != tools.KindPermissionDenied {
		t.Fatalf("err = %v", err)
	}
}

func TestExecuteShell(t *testing.T) {
	policy := tools.DefaultSandboxPolicy()

	es := NewExecuteShell(policy)
	_, err := es.Execute(context.Background(), mustJSON(t, map[string]any{"command": "echo hi"}))
	if tools.KindOf(err) != tools.KindPermissionDenied {
		t.Fatalf("shell should be denied by default: %v", err)
	}

	policy.AllowShell = true
	es = NewExecuteShell(policy)
	out, err := es.Execute(context.Background(), mustJSON(t, map[string]any{"command": "echo hi"}))
	if err != nil || out.IsError {
		t.Fatalf("shell: %v %+v", err, out)
	}
	var result struct {
		ExitCode int    `json:"exit_code"`
		Stdout   string `json:"stdout"`
		Success  bool   `json:"success"`
	}
	if err := json.Unmarshal([]byte(out.Content), &result); err != nil {
		t.Fatal(err)
	}
	if result.ExitCode != 0 || !result.Success || strings.TrimSpace(result.Stdout) != "hi" {
		t.Fatalf("result = %+v", result)
	}

	out, err = es.Execute(context.Background(), mustJSON(t, map[string]any{"command": "exit 3"}))
	if err != nil {
		t.Fatal(err)
	}
	if !out.IsError {
		t.Fatal("non-zero exit should be an error output")
	}

	out, err = es.Execute(context.Background(), mustJSON(t, map[string]any{"command": "sleep 5", "timeout_ms": 50}))
	if err != nil {
		t.Fatal(err)
	}
	if !out.IsError || !strings.Contains(out.Content, "timed out after 50ms") {
		t.Fatalf("out = %+v", out)
	}
}

func TestSystemInfo(t *testing.T) {
	si := NewSystemInfo()
	out, err := si.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil || out.IsError {
		t.Fatalf("sysinfo: %v %+v", err, out)
	}
	var info struct {
		OS struct {
			Name   string `json:"name"`
			NumCPU int    `json:"num_cpu"`
		} `json:"os"`
		Process struct {
			PID int `json:"pid"`
		} `json:"process"`
	}
	if err := json.Unmarshal([]byte(out.Content), &info); err != nil {
		t.Fatal(err)
	}
	if info.OS.Name == "" || info.OS.NumCPU < 1 || info.Process.PID <= 0 {
		t.Fatalf("info = %+v", info)
	}
}
