package viewmodel

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ghsbrowse/ghsbrowse/pkg/client"
	"github.com/ghsbrowse/ghsbrowse/pkg/models"
	"github.com/ghsbrowse/ghsbrowse/pkg/pathutil"
	"github.com/ghsbrowse/ghsbrowse/pkg/retry"
)

// fakeServer is a small in-memory file server speaking the listing API.
type fakeServer struct {
	mu       sync.Mutex
	dirs     map[string][]models.FileEntry
	files    map[string]string
	deny     map[string]string
	block    map[string]chan struct{}
	started  chan string
	failList bool

	requests int
	listHits int
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		dirs:    map[string][]models.FileEntry{"/": {}},
		files:   map[string]string{},
		deny:    map[string]string{},
		block:   map[string]chan struct{}{},
		started: make(chan string, 4),
	}
}

func (f *fakeServer) addFile(p, content string, mtime int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p = pathutil.Clean(p)
	dir := path.Dir(p)
	f.files[p] = content
	f.dirs[dir] = append(f.dirs[dir], models.FileEntry{
		Name:    path.Base(p),
		Path:    strings.TrimPrefix(p, "/"),
		Size:    int64(len(content)),
		ModTime: mtime,
		Type:    models.TypeFile,
	})
}

func (f *fakeServer) addDir(p string, mtime int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p = pathutil.Clean(p)
	parent := path.Dir(p)
	if _, ok := f.dirs[p]; !ok {
		f.dirs[p] = []models.FileEntry{}
	}
	f.dirs[parent] = append(f.dirs[parent], models.FileEntry{
		Name:    path.Base(p),
		Path:    strings.TrimPrefix(p, "/"),
		ModTime: mtime,
		Type:    models.TypeDir,
	})
}

func (f *fakeServer) counts() (requests, lists int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests, f.listHits
}

func dirKey(p string) string {
	p = pathutil.Clean(p)
	if p != "/" {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests++
	f.mu.Unlock()

	p := r.URL.Path
	switch {
	case p == "/-/user":
		writeJSON(w, map[string]string{"email": "alice@example.com", "name": "alice"})
	case p == "/-/sysinfo":
		writeJSON(w, map[string]string{"version": "1.2.0"})
	case strings.HasPrefix(p, "/-/json"):
		f.serveList(w, dirKey(strings.TrimPrefix(p, "/-/json")))
	case strings.HasPrefix(p, "/-/info"):
		f.serveInfo(w, pathutil.Clean(strings.TrimPrefix(p, "/-/info")))
	case strings.HasPrefix(p, "/-/mkdir"):
		f.serveMkdir(w, r, dirKey(strings.TrimPrefix(p, "/-/mkdir")))
	default:
		f.serveFile(w, r, pathutil.Clean(p))
	}
}

func (f *fakeServer) serveList(w http.ResponseWriter, dir string) {
	f.mu.Lock()
	f.listHits++
	fail := f.failList
	ch := f.block[dir]
	f.mu.Unlock()

	if ch != nil {
		f.started <- dir
		<-ch
	}
	if fail {
		http.Error(w, "listing unavailable", http.StatusBadGateway)
		return
	}

	f.mu.Lock()
	files, ok := f.dirs[dir]
	files = append([]models.FileEntry(nil), files...)
	f.mu.Unlock()
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{
		"files": files,
		"auth":  map[string]bool{"upload": true, "delete": true, "mkdir": true},
	})
}

func (f *fakeServer) serveInfo(w http.ResponseWriter, p string) {
	f.mu.Lock()
	content, ok := f.files[p]
	f.mu.Unlock()
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{
		"name":  path.Base(p),
		"path":  strings.TrimPrefix(p, "/"),
		"type":  "text",
		"size":  len(content),
		"mtime": 1700000000000,
	})
}

func (f *fakeServer) serveMkdir(w http.ResponseWriter, r *http.Request, dir string) {
	r.ParseForm()
	name := r.PostForm.Get("folderName")
	f.mu.Lock()
	msg, denied := f.deny[name]
	f.mu.Unlock()
	if denied {
		http.Error(w, msg, http.StatusForbidden)
		return
	}
	f.addDir(pathutil.JoinURL(dir, name), time.Now().UnixMilli())
	io.WriteString(w, "Success")
}

func (f *fakeServer) serveFile(w http.ResponseWriter, r *http.Request, p string) {
	switch r.Method {
	case http.MethodGet:
		f.mu.Lock()
		content, ok := f.files[p]
		f.mu.Unlock()
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		io.WriteString(w, content)
	case http.MethodPut:
		r.ParseForm()
		f.mu.Lock()
		f.files[p] = r.PostForm.Get("content")
		f.mu.Unlock()
		io.WriteString(w, "Success")
	case http.MethodDelete:
		f.mu.Lock()
		defer f.mu.Unlock()
		if msg, denied := f.deny[path.Base(p)]; denied {
			http.Error(w, msg, http.StatusForbidden)
			return
		}
		delete(f.files, p)
		dir := path.Dir(p)
		kept := f.dirs[dir][:0]
		for _, e := range f.dirs[dir] {
			if e.Name != path.Base(p) {
				kept = append(kept, e)
			}
		}
		f.dirs[dir] = kept
	case http.MethodPost:
		file, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		f.mu.Lock()
		msg, denied := f.deny[hdr.Filename]
		f.mu.Unlock()
		if denied {
			http.Error(w, msg, http.StatusForbidden)
			return
		}
		data, _ := io.ReadAll(file)
		dest := pathutil.JoinURL(dirKey(p), hdr.Filename)
		f.addFile(dest, string(data), time.Now().UnixMilli())
		writeJSON(w, map[string]any{"success": true, "destination": dest})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

var testNow = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

// newTestStore starts srv and returns a store positioned at ref.
func newTestStore(t *testing.T, srv *fakeServer, ref string, opts Options) *Store {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	c, err := client.New(client.Config{
		BaseURL:     ts.URL,
		RetryPolicy: retry.Policy{Attempts: 1},
	})
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	return New(c, ref, opts)
}
