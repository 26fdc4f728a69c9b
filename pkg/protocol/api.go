// Package protocol defines the file server's API request/response types.
package protocol

import (
	"encoding/json"

	"github.com/ghsbrowse/ghsbrowse/pkg/models"
)

// Endpoint prefixes served under the reserved "/-/" namespace.
const (
	PathUser    = "/-/user"
	PathSysInfo = "/-/sysinfo"
	PathJSON    = "/-/json"
	PathInfo    = "/-/info"
	PathMkdir   = "/-/mkdir"
	PathIpaLink = "/-/ipa/link"
)

// Form fields used by the mutating endpoints.
const (
	FieldFolderName = "folderName"
	FieldContent    = "content"
	FieldFile       = "file"
)

// ListResponse is returned by GET /-/json/{path}
type ListResponse struct {
	Files []models.FileEntry `json:"files"`
	Auth  models.Auth        `json:"auth"`
}

// InfoResponse is returned by GET /-/info/{path}
type InfoResponse struct {
	Name    string          `json:"name"`
	Path    string          `json:"path"`
	Type    string          `json:"type"`
	Size    int64           `json:"size"`
	ModTime int64           `json:"mtime"`
	Extra   json.RawMessage `json:"extra,omitempty"`
}

// UserResponse is returned by GET /-/user. The server answers "null" for
// anonymous sessions.
type UserResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// SysInfoResponse is returned by GET /-/sysinfo
type SysInfoResponse struct {
	Version string `json:"version"`
}

// UploadResponse is returned by a multipart POST to a directory.
type UploadResponse struct {
	Success     bool   `json:"success"`
	Destination string `json:"destination"`
}

// ApkInfo is the "extra" payload the info endpoint attaches to .apk files.
type ApkInfo struct {
	PackageName  string `json:"packageName"`
	MainActivity string `json:"mainActivity"`
	Version      struct {
		Code int    `json:"code"`
		Name string `json:"name"`
	} `json:"version"`
}
