package viewmodel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ghsbrowse/ghsbrowse/internal/logging"
	"github.com/ghsbrowse/ghsbrowse/pkg/models"
	"github.com/ghsbrowse/ghsbrowse/pkg/pathutil"
	"github.com/ghsbrowse/ghsbrowse/pkg/present"
)

// ErrCanceled is returned when the user declines a confirmation.
var ErrCanceled = errors.New("canceled")

// ErrNoEdit is returned by SaveEdit when no file was loaded for editing.
var ErrNoEdit = errors.New("no file loaded for editing")

// Banner actions, also used as metric labels.
const (
	ActionMkdir = "mkdir"
	ActionEdit  = "edit"
)

func (s *Store) location() pathutil.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Location
}

func (s *Store) fail(action string, err error) {
	s.update(ChangeBanner, func(st *State) { s.showBanner(st, action, err.Error()) })
}

// reload refreshes the listing after a successful mutation. Its failure is
// already logged by Load and does not fail the mutation.
func (s *Store) reload(ctx context.Context) {
	_ = s.Load(ctx)
}

// Mkdir creates a folder in the current directory. A blank name shows the
// validation banner without contacting the server.
func (s *Store) Mkdir(ctx context.Context, name string) error {
	if name == "" {
		s.update(ChangeBanner, func(st *State) { s.showBanner(st, ActionMkdir, EmptyFolderNameMessage) })
		return ErrEmptyFolderName
	}

	loc := s.location()
	if err := s.api.Mkdir(ctx, loc.Path, name); err != nil {
		logging.Warn("mkdir failed", logging.String("dir", loc.Path), logging.String("name", name), logging.Err(err))
		s.fail(ActionMkdir, err)
		return err
	}
	logging.Info("created folder", logging.String("dir", loc.Path), logging.String("name", name))

	s.update(ChangeDialog, func(st *State) {
		st.MkdirOpen = false
		st.MkdirInput = ""
	})
	s.reload(ctx)
	return nil
}

// LoadForEdit fetches a file of the current directory into the edit
// dialog and opens it.
func (s *Store) LoadForEdit(ctx context.Context, f models.FileEntry) error {
	p := pathutil.JoinURL(s.location().Path, f.Name)
	data, err := s.api.Raw(ctx, p)
	if err != nil {
		logging.Warn("load file for edit failed", logging.String("path", p), logging.Err(err))
		s.fail(ActionEdit, err)
		return err
	}
	s.update(ChangeDialog, func(st *State) {
		st.Edit = EditBuffer{Title: f.Name, Content: string(data)}
		st.EditOpen = true
	})
	return nil
}

// SaveEdit writes content to the file named by the edit dialog's title.
func (s *Store) SaveEdit(ctx context.Context, content string) error {
	s.mu.Lock()
	title := s.state.Edit.Title
	loc := s.state.Location
	s.mu.Unlock()
	if title == "" {
		return ErrNoEdit
	}

	p := pathutil.JoinURL(loc.Path, title)
	if err := s.api.Edit(ctx, p, content); err != nil {
		logging.Warn("save file failed", logging.String("path", p), logging.Err(err))
		s.fail(ActionEdit, err)
		return err
	}
	s.update(ChangeDialog, func(st *State) {
		st.Edit.Content = content
		st.EditOpen = false
	})
	s.reload(ctx)
	return nil
}

// DeletePrompt is the question asked before deleting name.
func DeletePrompt(name string) string {
	return fmt.Sprintf("Delete %s?", name)
}

// Delete removes an entry of the current directory after the Confirmer
// agrees. A server refusal is shown through the Alerter.
func (s *Store) Delete(ctx context.Context, f models.FileEntry) error {
	if !s.confirmer.Confirm(ctx, DeletePrompt(f.Name)) {
		return ErrCanceled
	}
	p := pathutil.JoinURL(s.location().Path, f.Name)
	if err := s.api.Delete(ctx, p); err != nil {
		logging.Warn("delete failed", logging.String("path", p), logging.Err(err))
		s.alerter.Alert(ctx, err.Error())
		return err
	}
	s.reload(ctx)
	return nil
}

// UploadItem is one file of an upload batch.
type UploadItem struct {
	Name string
	Size int64
	Body io.Reader
}

// UploadResult is the outcome for one UploadItem.
type UploadResult struct {
	Name        string
	Destination string
	Err         error
}

// Upload sends items to the current directory one request at a time and
// reloads the listing once the whole batch is done. Per-file failures are
// reported in the results.
func (s *Store) Upload(ctx context.Context, items []UploadItem) []UploadResult {
	loc := s.location()
	s.update(ChangeUpload, func(st *State) {
		st.Upload = UploadProgress{Total: len(items), Active: true}
	})

	results := make([]UploadResult, 0, len(items))
	for _, it := range items {
		res := UploadResult{Name: it.Name}
		resp, err := s.api.Upload(ctx, loc.Path, it.Name, it.Body, it.Size)
		if err != nil {
			logging.Warn("upload failed", logging.String("dir", loc.Path), logging.String("name", it.Name), logging.Err(err))
			res.Err = err
		} else {
			res.Destination = resp.Destination
		}
		results = append(results, res)

		s.update(ChangeUpload, func(st *State) {
			if res.Err != nil {
				st.Upload.Failed++
				return
			}
			st.Upload.Done++
			st.Upload.Bytes += it.Size
		})
	}

	s.update(ChangeUpload, func(st *State) { st.Upload.Active = false })
	s.reload(ctx)
	return results
}

// infoIndent matches the page's JSON.stringify(res, null, 4).
const infoIndent = "    "

// ShowInfo opens the info dialog with the server's metadata for an entry
// of the current directory. Failures are logged only.
func (s *Store) ShowInfo(ctx context.Context, f models.FileEntry) error {
	p := pathutil.JoinURL(s.location().Path, f.Name)
	info, err := s.api.Info(ctx, p)
	if err != nil {
		logging.Warn("load file info failed", logging.String("path", p), logging.Err(err))
		return err
	}
	text, err := json.MarshalIndent(info, "", infoIndent)
	if err != nil {
		return fmt.Errorf("format info: %w", err)
	}
	s.update(ChangeDialog, func(st *State) {
		st.InfoTitle = f.Name
		st.InfoText = string(text)
		st.InfoOpen = true
	})
	return nil
}

// ShowQR opens the QR dialog for a file of the current directory.
func (s *Store) ShowQR(f models.FileEntry) {
	origin := s.api.Origin()
	dir := s.location().Path
	s.update(ChangeDialog, func(st *State) {
		st.QR = QRTarget{
			Title:      f.Name,
			InstallURL: present.InstallURL(origin, dir, f.Name),
			FileURL:    present.FileURL(origin, dir, f.Name),
		}
		st.QROpen = true
	})
}
