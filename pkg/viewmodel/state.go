package viewmodel

import (
	"maps"
	"slices"
	"time"

	"github.com/ghsbrowse/ghsbrowse/pkg/models"
	"github.com/ghsbrowse/ghsbrowse/pkg/pathutil"
)

// InitialVersion is shown until the server reports its version.
const InitialVersion = "loading"

// BannerTTL is how long an inline banner stays up.
const BannerTTL = 3 * time.Second

// Banner kinds.
const (
	BannerError = "error"
	BannerInfo  = "info"
)

// Banner is the transient inline message under a dialog.
type Banner struct {
	Message string
	Kind    string
	Expiry  time.Time
}

// Active reports whether the banner should be shown at now.
func (b Banner) Active(now time.Time) bool {
	return b.Message != "" && now.Before(b.Expiry)
}

// EditBuffer is the content of the edit dialog.
type EditBuffer struct {
	Title   string
	Content string
}

// QRTarget is what the QR dialog shows.
type QRTarget struct {
	Title      string
	InstallURL string
	FileURL    string
}

// UploadProgress tracks the running upload batch.
type UploadProgress struct {
	Total  int
	Done   int
	Failed int
	Bytes  int64
	Active bool
}

// State is everything a renderer needs to draw the page.
type State struct {
	Location   pathutil.Location
	Files      []models.FileEntry
	Auth       models.Auth
	Breadcrumb []models.Breadcrumb
	Preview    models.Preview

	ShowHidden   bool
	PreviewMode  bool
	MtimeFromNow bool
	// Search mirrors the "search" query parameter. It is kept for renderers
	// and is not applied to Files.
	Search string

	User    models.User
	Version string

	MkdirOpen  bool
	MkdirInput string
	EditOpen   bool
	Edit       EditBuffer
	InfoOpen   bool
	InfoTitle  string
	InfoText   string
	QROpen     bool
	QR         QRTarget

	Banner Banner
	Upload UploadProgress
}

// loadingPlaceholder fills the listing until the first fetch lands.
var loadingPlaceholder = models.FileEntry{Name: "loading ...", Type: models.TypeDir, Size: -1}

// clone returns a copy that shares no mutable memory with s.
func (s State) clone() State {
	s.Files = slices.Clone(s.Files)
	s.Breadcrumb = slices.Clone(s.Breadcrumb)
	s.Auth = maps.Clone(s.Auth)
	return s
}

// VisibleFiles is Files without dotfiles unless ShowHidden is set.
func (s State) VisibleFiles() []models.FileEntry {
	if s.ShowHidden {
		return slices.Clone(s.Files)
	}
	out := make([]models.FileEntry, 0, len(s.Files))
	for _, f := range s.Files {
		if !f.Hidden() {
			out = append(out, f)
		}
	}
	return out
}

// HasReadme reports whether the listing contains a README.md.
func (s State) HasReadme() bool {
	return slices.ContainsFunc(s.Files, func(f models.FileEntry) bool {
		return f.Name == ReadmeName
	})
}

// sortFiles orders directories before files and, within each group, newer
// entries first. Equal keys keep their server order.
func sortFiles(files []models.FileEntry) {
	slices.SortStableFunc(files, func(a, b models.FileEntry) int {
		if a.IsDir() != b.IsDir() {
			if a.IsDir() {
				return -1
			}
			return 1
		}
		switch {
		case a.ModTime > b.ModTime:
			return -1
		case a.ModTime < b.ModTime:
			return 1
		}
		return 0
	})
}
