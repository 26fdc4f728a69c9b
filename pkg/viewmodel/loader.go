package viewmodel

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/ghsbrowse/ghsbrowse/internal/logging"
	"github.com/ghsbrowse/ghsbrowse/internal/metrics"
	"github.com/ghsbrowse/ghsbrowse/pkg/markdown"
	"github.com/ghsbrowse/ghsbrowse/pkg/models"
	"github.com/ghsbrowse/ghsbrowse/pkg/pathutil"
	"github.com/ghsbrowse/ghsbrowse/pkg/present"
)

// ErrStale is returned by a load whose response arrived after a newer load
// had started. The response is dropped.
var ErrStale = errors.New("response superseded by a newer load")

// begin recomputes the location-derived state and hands out a new request
// token.
func (s *Store) begin() (pathutil.Location, uint64, bool) {
	s.mu.Lock()
	loc := s.state.Location
	s.state.Breadcrumb = pathutil.Breadcrumbs(loc.Path)
	raw, _ := loc.Query("raw")
	s.state.PreviewMode = raw == "false"
	previewMode := s.state.PreviewMode
	s.token++
	token := s.token
	s.mu.Unlock()
	s.publish(ChangeLocation)
	return loc, token, previewMode
}

// current reports whether token belongs to the most recent load. Callers
// hold s.mu.
func (s *Store) current(token uint64) bool {
	return token == s.token
}

// Load refreshes the state for the current location. Fetch failures are
// logged and leave the previous listing in place.
func (s *Store) Load(ctx context.Context) error {
	loc, token, previewMode := s.begin()
	ctx = logging.NewContext(ctx, logging.String("location", loc.String()))
	if previewMode {
		return s.loadPreview(ctx, loc, token)
	}
	return s.loadList(ctx, loc, token)
}

func (s *Store) loadList(ctx context.Context, loc pathutil.Location, token uint64) error {
	log := logging.FromContext(ctx)
	resp, err := s.api.List(ctx, loc.Path)
	if err != nil {
		log.Warn("list directory failed", logging.Err(err))
		return fmt.Errorf("list %s: %w", loc.Path, err)
	}

	files := resp.Files
	sortFiles(files)
	auth := resp.Auth
	if auth == nil {
		auth = models.Auth{}
	}

	s.mu.Lock()
	if !s.current(token) {
		s.mu.Unlock()
		metrics.RecordStaleList()
		log.Debug("dropped stale listing")
		return ErrStale
	}
	s.state.Files = files
	s.state.Auth = auth
	hasReadme := s.state.HasReadme()
	if hasReadme {
		s.state.Preview = models.Preview{Filename: ReadmeName}
	} else {
		s.state.Preview = models.Preview{}
	}
	s.mu.Unlock()
	metrics.SetListEntries(len(files))
	s.publish(ChangeFiles)

	if hasReadme {
		s.loadReadme(ctx, loc, token)
	}
	return nil
}

// loadReadme renders the directory's README under the listing. Failures
// are logged only.
func (s *Store) loadReadme(ctx context.Context, loc pathutil.Location, token uint64) {
	log := logging.FromContext(ctx)
	p := pathutil.JoinURL(loc.Path, ReadmeName)
	data, err := s.api.Raw(ctx, p)
	if err != nil {
		log.Warn("load readme failed", logging.String("path", p), logging.Err(err))
		return
	}
	html, err := markdown.Render(data)
	if err != nil {
		log.Warn("render readme failed", logging.String("path", p), logging.Err(err))
		return
	}

	s.mu.Lock()
	if !s.current(token) {
		s.mu.Unlock()
		return
	}
	s.state.Preview = models.Preview{
		Filename:    ReadmeName,
		Filetype:    "markdown",
		Filesize:    int64(len(data)),
		ContentHTML: html,
		Source:      string(data),
	}
	s.mu.Unlock()
	s.publish(ChangePreview)
}

// LoadPreview fetches the current file's metadata and then its content,
// and shows it as preformatted text. Nothing is set unless both succeed.
func (s *Store) LoadPreview(ctx context.Context) error {
	s.mu.Lock()
	loc := s.state.Location
	s.token++
	token := s.token
	s.mu.Unlock()
	return s.loadPreview(ctx, loc, token)
}

func (s *Store) loadPreview(ctx context.Context, loc pathutil.Location, token uint64) error {
	log := logging.FromContext(ctx)
	info, err := s.api.Info(ctx, loc.Path)
	if err != nil {
		log.Warn("load file info failed", logging.Err(err))
		return fmt.Errorf("info %s: %w", loc.Path, err)
	}
	data, err := s.api.Raw(ctx, pathutil.JoinURL("/", info.Path))
	if err != nil {
		log.Warn("load file content failed", logging.String("path", info.Path), logging.Err(err))
		return fmt.Errorf("read %s: %w", info.Path, err)
	}

	s.mu.Lock()
	if !s.current(token) {
		s.mu.Unlock()
		return ErrStale
	}
	s.state.Preview = models.Preview{
		Filename:    info.Name,
		Filetype:    info.Type,
		Filesize:    info.Size,
		ContentHTML: markdown.Pre(string(data)),
		Source:      string(data),
	}
	s.mu.Unlock()
	s.publish(ChangePreview)
	return nil
}

// LoadUser fetches the signed-in identity. An anonymous answer leaves the
// user empty.
func (s *Store) LoadUser(ctx context.Context) error {
	u, err := s.api.User(ctx)
	if err != nil {
		logging.Warn("load user failed", logging.Err(err))
		return err
	}
	s.update(ChangeUser, func(st *State) { st.User = u })
	return nil
}

// LoadVersion fetches the server version.
func (s *Store) LoadVersion(ctx context.Context) error {
	info, err := s.api.SysInfo(ctx)
	if err != nil {
		logging.Warn("load server version failed", logging.Err(err))
		return err
	}
	s.update(ChangeVersion, func(st *State) { st.Version = info.Version })
	return nil
}

// LoadAll runs the start-up loads: identity, version and the listing.
func (s *Store) LoadAll(ctx context.Context) error {
	_ = s.LoadUser(ctx)
	_ = s.LoadVersion(ctx)
	return s.Load(ctx)
}

func (s *Store) setLocation(loc pathutil.Location) {
	s.state.Location = loc
	s.state.Search, _ = loc.Query("search")
}

// Navigate pushes ref ("path?query", as in a browser URL) onto the history
// and loads it.
func (s *Store) Navigate(ctx context.Context, ref string) error {
	return s.navigate(ctx, pathutil.ParseLocation(ref))
}

func (s *Store) navigate(ctx context.Context, loc pathutil.Location) error {
	s.mu.Lock()
	s.history = append(s.history[:s.cursor+1], loc)
	s.cursor = len(s.history) - 1
	s.setLocation(loc)
	s.mu.Unlock()
	return s.Load(ctx)
}

// Back moves one step back in history and reloads. It reports false, and
// does nothing, at the start of history.
func (s *Store) Back(ctx context.Context) (bool, error) {
	return s.step(ctx, -1)
}

// Forward moves one step forward in history and reloads.
func (s *Store) Forward(ctx context.Context) (bool, error) {
	return s.step(ctx, 1)
}

func (s *Store) step(ctx context.Context, delta int) (bool, error) {
	s.mu.Lock()
	next := s.cursor + delta
	if next < 0 || next >= len(s.history) {
		s.mu.Unlock()
		return false, nil
	}
	s.cursor = next
	s.setLocation(s.history[next])
	s.mu.Unlock()
	return true, s.Load(ctx)
}

// Up navigates to the parent directory. It is a no-op at the root.
func (s *Store) Up(ctx context.Context) (bool, error) {
	s.mu.Lock()
	p := s.state.Location.Path
	s.mu.Unlock()
	parent := path.Dir(path.Clean(p))
	if parent == path.Clean(p) {
		return false, nil
	}
	return true, s.navigate(ctx, pathutil.Location{Path: parent})
}

// Open activates an entry. Directories are navigated into and return an
// empty URL; files return their download URL.
func (s *Store) Open(ctx context.Context, f models.FileEntry) (string, error) {
	if f.IsDir() {
		return "", s.navigate(ctx, s.child(f.Name))
	}
	return present.DownloadURL(s.api.Origin(), f), nil
}

// OpenPreview navigates to a file of the current directory in preview mode.
func (s *Store) OpenPreview(ctx context.Context, f models.FileEntry) error {
	loc := s.child(f.Name)
	loc.RawQuery = "raw=false"
	return s.navigate(ctx, loc)
}

func (s *Store) child(name string) pathutil.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Location.Child(name)
}
