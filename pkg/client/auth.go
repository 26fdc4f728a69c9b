package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/ghsbrowse/ghsbrowse/internal/logging"
	"github.com/ghsbrowse/ghsbrowse/pkg/models"
)

// Credentials are saved HTTP basic-auth credentials for one server.
type Credentials struct {
	Server   string    `json:"server"`
	Username string    `json:"username"`
	Password string    `json:"password"`
	SavedAt  time.Time `json:"saved_at"`
}

// ErrUnauthorized is returned by Login when the server rejects the
// credentials.
var ErrUnauthorized = errors.New("server rejected the credentials")

// Login checks username/password against the server and keeps them on the
// client when accepted. The server decides what "accepted" means; any
// non-401 answer from the identity endpoint counts.
func (c *Client) Login(ctx context.Context, username, password string) (models.User, error) {
	c.mu.RLock()
	prevUser, prevPass := c.username, c.password
	c.mu.RUnlock()

	c.SetBasicAuth(username, password)
	user, err := c.User(ctx)
	if err != nil {
		c.SetBasicAuth(prevUser, prevPass)
		if ae, ok := AsAPIError(err); ok && ae.Status == http.StatusUnauthorized {
			return models.User{}, ErrUnauthorized
		}
		return models.User{}, fmt.Errorf("login: %w", err)
	}
	logging.Info("logged in", logging.String("server", c.Origin()), logging.String("user", username))
	return user, nil
}

// Logout forgets the credentials held by the client.
func (c *Client) Logout() {
	c.SetBasicAuth("", "")
}

// CredentialsPath returns the default path for the credentials file.
func CredentialsPath() string {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, _ := os.UserHomeDir()
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "ghsbrowse", "credentials.json")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "ghsbrowse", "credentials.json")
}

// SaveCredentials writes creds to path with owner-only permissions.
func SaveCredentials(path string, creds *Credentials) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	if creds.SavedAt.IsZero() {
		creds.SavedAt = time.Now()
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// LoadCredentials reads a credentials file.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &creds, nil
}

// DeleteCredentials removes the credentials file. A missing file is not
// an error.
func DeleteCredentials(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
