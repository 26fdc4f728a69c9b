package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ghsbrowse/ghsbrowse/pkg/retry"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	c, err := New(Config{
		BaseURL: ts.URL,
		RetryPolicy: retry.Policy{
			Attempts: 3,
			Base:     time.Millisecond,
			Max:      time.Millisecond,
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, ts
}

func TestNew_RejectsBadScheme(t *testing.T) {
	if _, err := New(Config{BaseURL: "ftp://example.com"}); err == nil {
		t.Fatal("expected error for ftp scheme")
	}
}

func TestURL_EscapesAndCollapses(t *testing.T) {
	c, err := New(Config{BaseURL: "http://example.com:8000/"})
	if err != nil {
		t.Fatal(err)
	}
	if got := c.URL("//docs/my file.txt"); got != "http://example.com:8000/docs/my%20file.txt" {
		t.Errorf("URL = %q", got)
	}
	if got := c.Origin(); got != "http://example.com:8000" {
		t.Errorf("Origin = %q", got)
	}
}

func TestList_Success(t *testing.T) {
	c, ts := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/-/json/docs" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Cache-Control") != "no-cache" {
			t.Errorf("expected no-cache request")
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"files": []map[string]interface{}{
				{"name": "a.txt", "path": "docs/a.txt", "size": 3, "mtime": 1000, "type": "file"},
				{"name": "img", "path": "docs/img", "size": 0, "mtime": 2000, "type": "dir"},
			},
			"auth": map[string]interface{}{"upload": true, "delete": false},
		})
	}))
	defer ts.Close()

	resp, err := c.List(context.Background(), "/docs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(resp.Files))
	}
	if !resp.Files[1].IsDir() || resp.Files[0].ModTime != 1000 {
		t.Errorf("unexpected files: %+v", resp.Files)
	}
	if !resp.Auth.CanUpload() || resp.Auth.CanDelete() || resp.Auth.CanMkdir() {
		t.Errorf("unexpected auth: %v", resp.Auth)
	}
}

func TestList_RetriesServerError(t *testing.T) {
	var attempts atomic.Int32
	c, ts := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			http.Error(w, "busy", http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"files":null,"auth":{}}`))
	}))
	defer ts.Close()

	resp, err := c.List(context.Background(), "/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Files == nil {
		t.Error("expected non-nil empty file slice")
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestList_ClientErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32
	c, ts := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "open /srv/nope: no such file or directory", http.StatusBadRequest)
	}))
	defer ts.Close()

	_, err := c.List(context.Background(), "/nope")
	ae, ok := AsAPIError(err)
	if !ok {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if ae.Status != http.StatusBadRequest {
		t.Errorf("status = %d", ae.Status)
	}
	if attempts.Load() != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts.Load())
	}
}

func TestUser_Anonymous(t *testing.T) {
	c, ts := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("null"))
	}))
	defer ts.Close()

	u, err := c.User(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !u.Anonymous() {
		t.Errorf("expected anonymous user, got %+v", u)
	}
}

func TestInfoAndRaw(t *testing.T) {
	c, ts := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/-/info/notes/todo.txt":
			w.Write([]byte(`{"name":"todo.txt","path":"notes/todo.txt","type":"text","size":5}`))
		case "/notes/todo.txt":
			w.Write([]byte("hello"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	info, err := c.Info(context.Background(), "/notes/todo.txt")
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Name != "todo.txt" || info.Size != 5 || info.Type != "text" {
		t.Errorf("unexpected info: %+v", info)
	}

	data, err := c.Raw(context.Background(), "/"+info.Path)
	if err != nil {
		t.Fatalf("Raw: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("Raw = %q", data)
	}
}

func TestMkdir_SendsFolderName(t *testing.T) {
	var gotName, gotPath, gotMethod string
	c, ts := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotName = r.FormValue("folderName")
		w.Write([]byte("Success"))
	}))
	defer ts.Close()

	if err := c.Mkdir(context.Background(), "/docs/", "new dir"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/-/mkdir/docs/" || gotName != "new dir" {
		t.Errorf("got %s %s folderName=%q", gotMethod, gotPath, gotName)
	}
}

func TestMutation_ServerMessageAndNoRetry(t *testing.T) {
	var attempts atomic.Int32
	c, ts := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "Mkdir forbidden: directory already exists", http.StatusInternalServerError)
	}))
	defer ts.Close()

	err := c.Mkdir(context.Background(), "/", "dup")
	ae, ok := AsAPIError(err)
	if !ok {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if ae.Error() != "Mkdir forbidden: directory already exists" {
		t.Errorf("message = %q", ae.Error())
	}
	if attempts.Load() != 1 {
		t.Errorf("mutations must not retry, got %d attempts", attempts.Load())
	}
}

func TestEdit_RoundTripPreservesBytes(t *testing.T) {
	var stored string
	c, ts := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			stored = r.FormValue("content")
			w.Write([]byte("Success"))
		case http.MethodGet:
			w.Write([]byte(stored))
		}
	}))
	defer ts.Close()

	content := "key: value & more\n  - list+item %20\r\nunicode: 中文\n"
	if err := c.Edit(context.Background(), "/conf/app.yml", content); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	got, err := c.Raw(context.Background(), "/conf/app.yml")
	if err != nil {
		t.Fatalf("Raw: %v", err)
	}
	if string(got) != content {
		t.Errorf("round trip mismatch:\n got %q\nwant %q", got, content)
	}
}

func TestDelete(t *testing.T) {
	var gotMethod, gotPath string
	c, ts := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.Write([]byte("Success"))
	}))
	defer ts.Close()

	if err := c.Delete(context.Background(), "/tmp/old.log"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/tmp/old.log" {
		t.Errorf("got %s %s", gotMethod, gotPath)
	}
}

func TestUpload_Multipart(t *testing.T) {
	var gotName, gotBody string
	c, ts := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/incoming" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		gotName, gotBody = hdr.Filename, string(data)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true, "destination": "/srv/incoming/" + hdr.Filename,
		})
	}))
	defer ts.Close()

	resp, err := c.Upload(context.Background(), "/incoming", "hello.txt", strings.NewReader("hello"), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Success || resp.Destination != "/srv/incoming/hello.txt" {
		t.Errorf("unexpected response %+v", resp)
	}
	if gotName != "hello.txt" || gotBody != "hello" {
		t.Errorf("server got %q = %q", gotName, gotBody)
	}
}

func TestUpload_TooLargeSkipsRequest(t *testing.T) {
	var attempts atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
	}))
	defer ts.Close()

	c, err := New(Config{BaseURL: ts.URL, MaxUploadSize: 4})
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Upload(context.Background(), "/", "big.bin", strings.NewReader("12345"), 5)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if attempts.Load() != 0 {
		t.Errorf("expected no request, got %d", attempts.Load())
	}
}

func TestBasicAuthForwarded(t *testing.T) {
	var user, pass string
	var ok bool
	c, ts := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok = r.BasicAuth()
		w.Write([]byte(`{"version":"1.2.0"}`))
	}))
	defer ts.Close()

	c.SetBasicAuth("alice", "s3cret")
	info, err := c.SysInfo(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Version != "1.2.0" {
		t.Errorf("version = %q", info.Version)
	}
	if !ok || user != "alice" || pass != "s3cret" {
		t.Errorf("basic auth = %q/%q (%v)", user, pass, ok)
	}
}

func TestOnlineTracking(t *testing.T) {
	c, ts := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	c.retryPolicy = retry.Once()
	if _, err := c.SysInfo(context.Background()); err == nil {
		t.Fatal("expected error from closed server")
	}
	if c.Online() {
		t.Error("client should be offline after a transport error")
	}
}
