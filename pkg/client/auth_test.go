package client

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
)

func TestLogin_Success(t *testing.T) {
	c, ts := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "pass123" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"email":"alice@example.com","name":"Alice"}`))
	}))
	defer ts.Close()

	u, err := c.Login(context.Background(), "alice", "pass123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Name != "Alice" || u.Email != "alice@example.com" {
		t.Errorf("unexpected user %+v", u)
	}
	if c.username != "alice" {
		t.Errorf("credentials not kept on client")
	}
}

func TestLogin_RejectedRestoresPrevious(t *testing.T) {
	c, ts := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}))
	defer ts.Close()

	c.SetBasicAuth("old", "pw")
	_, err := c.Login(context.Background(), "mallory", "guess")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if c.username != "old" || c.password != "pw" {
		t.Errorf("previous credentials not restored: %q/%q", c.username, c.password)
	}
}

func TestLogout(t *testing.T) {
	c, err := New(Config{BaseURL: "http://localhost:8000", Username: "a", Password: "b"})
	if err != nil {
		t.Fatal(err)
	}
	c.Logout()
	if c.username != "" || c.password != "" {
		t.Error("expected credentials cleared")
	}
}

func TestCredentialsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")

	creds := &Credentials{Server: "http://files.local:8000", Username: "bob", Password: "hunter2"}
	if err := SaveCredentials(path, creds); err != nil {
		t.Fatalf("SaveCredentials: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	loaded, err := LoadCredentials(path)
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if loaded.Server != creds.Server || loaded.Username != "bob" || loaded.Password != "hunter2" {
		t.Errorf("unexpected credentials %+v", loaded)
	}
	if loaded.SavedAt.IsZero() {
		t.Error("expected SavedAt to be stamped")
	}

	if err := DeleteCredentials(path); err != nil {
		t.Fatalf("DeleteCredentials: %v", err)
	}
	if err := DeleteCredentials(path); err != nil {
		t.Errorf("second delete should be a no-op, got %v", err)
	}
	if _, err := LoadCredentials(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
