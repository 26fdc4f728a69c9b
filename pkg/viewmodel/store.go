// Package viewmodel holds the directory browser's state and every operation
// that changes it. Renderers read copies through Snapshot and redraw when a
// Change arrives on their subscription.
package viewmodel

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/ghsbrowse/ghsbrowse/internal/metrics"
	"github.com/ghsbrowse/ghsbrowse/pkg/models"
	"github.com/ghsbrowse/ghsbrowse/pkg/pathutil"
	"github.com/ghsbrowse/ghsbrowse/pkg/protocol"
)

// ReadmeName is the listing entry that gets rendered under the file table.
const ReadmeName = "README.md"

// EmptyFolderNameMessage is the banner shown for a blank mkdir name.
const EmptyFolderNameMessage = "Folder Name can't be empty!"

// ErrEmptyFolderName is returned by Mkdir for a blank name.
var ErrEmptyFolderName = errors.New("folder name is empty")

// API is the subset of the server client the store drives.
type API interface {
	Origin() string
	User(ctx context.Context) (models.User, error)
	SysInfo(ctx context.Context) (*protocol.SysInfoResponse, error)
	List(ctx context.Context, dir string) (*protocol.ListResponse, error)
	Info(ctx context.Context, p string) (*protocol.InfoResponse, error)
	Raw(ctx context.Context, p string) ([]byte, error)
	Mkdir(ctx context.Context, dir, name string) error
	Edit(ctx context.Context, p, content string) error
	Delete(ctx context.Context, p string) error
	Upload(ctx context.Context, dir, name string, content io.Reader, size int64) (*protocol.UploadResponse, error)
}

// Confirmer asks the user a yes/no question and blocks for the answer.
type Confirmer interface {
	Confirm(ctx context.Context, message string) bool
}

// Alerter shows a blocking message.
type Alerter interface {
	Alert(ctx context.Context, message string)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, message string) bool

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, message string) bool { return f(ctx, message) }

// AlertFunc adapts a function to Alerter.
type AlertFunc func(ctx context.Context, message string)

// Alert calls f.
func (f AlertFunc) Alert(ctx context.Context, message string) { f(ctx, message) }

// Options configures a Store.
type Options struct {
	Confirmer    Confirmer
	Alerter      Alerter
	Now          func() time.Time
	ShowHidden   bool
	MtimeFromNow bool
}

// Store owns the browser state. It is safe for concurrent use.
type Store struct {
	api       API
	confirmer Confirmer
	alerter   Alerter
	now       func() time.Time
	events    *broadcaster

	mu      sync.Mutex
	state   State
	token   uint64
	history []pathutil.Location
	cursor  int
}

// New creates a store positioned at ref ("path?query").
func New(api API, ref string, opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Confirmer == nil {
		opts.Confirmer = ConfirmFunc(func(context.Context, string) bool { return false })
	}
	if opts.Alerter == nil {
		opts.Alerter = AlertFunc(func(context.Context, string) {})
	}

	loc := pathutil.ParseLocation(ref)
	s := &Store{
		api:       api,
		confirmer: opts.Confirmer,
		alerter:   opts.Alerter,
		now:       opts.Now,
		events:    newBroadcaster(),
		history:   []pathutil.Location{loc},
	}
	s.state = State{
		Location:     loc,
		Files:        []models.FileEntry{loadingPlaceholder},
		Auth:         models.Auth{},
		ShowHidden:   opts.ShowHidden,
		MtimeFromNow: opts.MtimeFromNow,
		Version:      InitialVersion,
	}
	s.state.Search, _ = loc.Query("search")
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe returns a channel of changes. Call Unsubscribe when done.
func (s *Store) Subscribe() chan Change {
	return s.events.subscribe()
}

// Unsubscribe stops delivery and closes ch.
func (s *Store) Unsubscribe(ch chan Change) {
	s.events.unsubscribe(ch)
}

// Subscribers returns the number of active subscriptions.
func (s *Store) Subscribers() int {
	return s.events.count()
}

// Origin is the server origin used for links.
func (s *Store) Origin() string {
	return s.api.Origin()
}

// update applies fn under the lock and publishes kind.
func (s *Store) update(kind string, fn func(st *State)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
	s.publish(kind)
}

func (s *Store) publish(kind string) {
	s.events.publish(Change{Kind: kind, Time: s.now()})
}

// ToggleHidden flips whether dotfiles are listed.
func (s *Store) ToggleHidden() {
	s.update(ChangeToggle, func(st *State) { st.ShowHidden = !st.ShowHidden })
}

// ToggleMtimeMode flips between relative and absolute times.
func (s *Store) ToggleMtimeMode() {
	s.update(ChangeToggle, func(st *State) { st.MtimeFromNow = !st.MtimeFromNow })
}

// SetSearch stores the search text.
func (s *Store) SetSearch(q string) {
	s.update(ChangeToggle, func(st *State) { st.Search = q })
}

// VisibleFiles is the listing as it should be drawn.
func (s *Store) VisibleFiles() []models.FileEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.VisibleFiles()
}

// showBanner must be called with s.mu held.
func (s *Store) showBanner(st *State, action, message string) {
	st.Banner = Banner{
		Message: message,
		Kind:    BannerError,
		Expiry:  s.now().Add(BannerTTL),
	}
	metrics.RecordBanner(action)
}

// DismissBanner hides the banner immediately.
func (s *Store) DismissBanner() {
	s.update(ChangeBanner, func(st *State) { st.Banner = Banner{} })
}

// Tick clears the banner once it has expired. It reports whether anything
// changed.
func (s *Store) Tick(now time.Time) bool {
	s.mu.Lock()
	expired := s.state.Banner.Message != "" && !now.Before(s.state.Banner.Expiry)
	if expired {
		s.state.Banner = Banner{}
	}
	s.mu.Unlock()
	if expired {
		s.publish(ChangeBanner)
	}
	return expired
}

// OpenMkdir shows the new-folder dialog.
func (s *Store) OpenMkdir() {
	s.update(ChangeDialog, func(st *State) { st.MkdirOpen = true })
}

// SetMkdirInput stores the folder name being typed.
func (s *Store) SetMkdirInput(name string) {
	s.update(ChangeDialog, func(st *State) { st.MkdirInput = name })
}

// CloseDialogs hides every dialog. The mkdir input is kept.
func (s *Store) CloseDialogs() {
	s.update(ChangeDialog, func(st *State) {
		st.MkdirOpen = false
		st.EditOpen = false
		st.InfoOpen = false
		st.QROpen = false
	})
}
