// Package models contains the data types shared by the client, the
// view-model and the renderers.
package models

import (
	"strings"
	"time"
)

// Entry types reported by the listing endpoint.
const (
	TypeFile = "file"
	TypeDir  = "dir"
)

// FileEntry is one row of a directory listing. ModTime is unix milliseconds.
type FileEntry struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	ModTime int64  `json:"mtime"`
	Type    string `json:"type"`
}

// IsDir reports whether the entry is a directory.
func (f FileEntry) IsDir() bool {
	return f.Type == TypeDir
}

// Time returns the modification time.
func (f FileEntry) Time() time.Time {
	return time.UnixMilli(f.ModTime)
}

// Hidden reports whether the entry is a dotfile.
func (f FileEntry) Hidden() bool {
	return strings.HasPrefix(f.Name, ".")
}

// Breadcrumb is one clickable segment of the current path.
type Breadcrumb struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Preview holds the rendered content of a single file.
type Preview struct {
	Filename    string `json:"filename"`
	Filetype    string `json:"filetype"`
	Filesize    int64  `json:"filesize"`
	ContentHTML string `json:"content_html"`
	// Source is the text ContentHTML was rendered from.
	Source string `json:"source,omitempty"`
}

// User is the identity reported by the server. Both fields are empty for
// anonymous sessions.
type User struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Anonymous reports whether no identity is known.
func (u User) Anonymous() bool {
	return u.Email == "" && u.Name == ""
}

// Auth is the server's permission record for the current directory. Its
// shape belongs to the server; only the three well-known flags are read.
type Auth map[string]any

func (a Auth) flag(key string) bool {
	if a == nil {
		return false
	}
	b, _ := a[key].(bool)
	return b
}

// CanUpload reports the "upload" flag.
func (a Auth) CanUpload() bool { return a.flag("upload") }

// CanDelete reports the "delete" flag.
func (a Auth) CanDelete() bool { return a.flag("delete") }

// CanMkdir reports the "mkdir" flag.
func (a Auth) CanMkdir() bool { return a.flag("mkdir") }
