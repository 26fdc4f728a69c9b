// Package tui is the terminal directory browser. It renders a
// viewmodel.Store and turns keys into store operations.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ghsbrowse/ghsbrowse/internal/logging"
	"github.com/ghsbrowse/ghsbrowse/pkg/format"
	"github.com/ghsbrowse/ghsbrowse/pkg/models"
	"github.com/ghsbrowse/ghsbrowse/pkg/present"
	"github.com/ghsbrowse/ghsbrowse/pkg/viewmodel"
)

// tickInterval drives banner expiry.
const tickInterval = 250 * time.Millisecond

type changeMsg viewmodel.Change

type tickMsg time.Time

type doneMsg struct {
	op   string
	note string
	err  error
}

// approvals answers the store's delete confirmation with what the user
// already accepted in the confirm dialog.
type approvals struct {
	mu      sync.Mutex
	prompts map[string]bool
}

func (a *approvals) approve(prompt string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prompts[prompt] = true
}

func (a *approvals) Confirm(_ context.Context, prompt string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	ok := a.prompts[prompt]
	delete(a.prompts, prompt)
	return ok
}

// alertBox holds the last alert raised by the store until the UI shows it.
type alertBox struct {
	mu  sync.Mutex
	msg string
}

func (b *alertBox) Alert(_ context.Context, msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msg = msg
}

func (b *alertBox) take() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	msg := b.msg
	b.msg = ""
	return msg
}

// Model is the bubbletea model of the browser.
type Model struct {
	ctx       context.Context
	store     *viewmodel.Store
	sub       chan viewmodel.Change
	approvals *approvals
	alerts    *alertBox
	copyText  func(string) error
	now       func() time.Time

	keys   KeyMap
	table  table.Model
	mkdir  textinput.Model
	editor textarea.Model
	help   help.Model

	state      viewmodel.State
	files      []models.FileEntry
	confirming *models.FileEntry
	alert      string
	status     string
	qrCode     string
	rendered   string // terminal text of state.Preview
	mdStyle    string // glamour standard style
	width      int
	height     int
}

// New creates a browser over api positioned at ref.
func New(ctx context.Context, api viewmodel.API, ref string, opts viewmodel.Options) *Model {
	ap := &approvals{prompts: make(map[string]bool)}
	alerts := &alertBox{}
	opts.Confirmer = ap
	opts.Alerter = alerts
	if opts.Now == nil {
		opts.Now = time.Now
	}
	store := viewmodel.New(api, ref, opts)

	t := table.New(
		table.WithColumns(columns(80)),
		table.WithHeight(16),
		table.WithFocused(true),
		table.WithStyles(tableStyles()),
	)

	ti := textinput.New()
	ti.Placeholder = "folder name"
	ti.CharLimit = 255

	ta := textarea.New()
	ta.ShowLineNumbers = true
	ta.SetWidth(76)
	ta.SetHeight(16)

	m := &Model{
		ctx:       ctx,
		store:     store,
		sub:       store.Subscribe(),
		approvals: ap,
		alerts:    alerts,
		copyText:  clipboard.WriteAll,
		now:       opts.Now,
		keys:      DefaultKeyMap(),
		table:     t,
		mkdir:     ti,
		editor:    ta,
		help:      help.New(),
		mdStyle:   "dark",
		width:     80,
		height:    24,
	}
	m.refresh()
	return m
}

// Store exposes the underlying state container.
func (m *Model) Store() *viewmodel.Store {
	return m.store
}

// Close releases the store subscription.
func (m *Model) Close() {
	m.store.Unsubscribe(m.sub)
}

// Run starts the full-screen browser and blocks until the user quits.
func Run(ctx context.Context, api viewmodel.API, ref string, opts viewmodel.Options) error {
	m := New(ctx, api, ref, opts)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

func waitForChange(ch chan viewmodel.Change) tea.Cmd {
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return nil
		}
		return changeMsg(c)
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// run executes a store operation off the UI goroutine.
func (m *Model) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return doneMsg{op: op, err: fn(m.ctx)}
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		waitForChange(m.sub),
		tick(),
		m.run("load", m.store.LoadAll),
	)
}

// refresh pulls a new snapshot and syncs the widgets with it.
func (m *Model) refresh() {
	prev := m.state
	st := m.store.Snapshot()
	m.state = st

	if st.MkdirOpen && !prev.MkdirOpen {
		m.mkdir.SetValue(st.MkdirInput)
		m.mkdir.Focus()
	}
	if !st.MkdirOpen {
		m.mkdir.Blur()
		if st.MkdirInput == "" {
			m.mkdir.SetValue("")
		}
	}
	if st.EditOpen && !prev.EditOpen {
		m.editor.SetValue(st.Edit.Content)
		m.editor.Focus()
	}
	if !st.EditOpen {
		m.editor.Blur()
	}
	if st.QROpen && (!prev.QROpen || st.QR != prev.QR) {
		code, err := present.QRTerminal(st.QR.InstallURL)
		if err != nil {
			logging.Warn("render qr code failed", logging.Err(err))
		}
		m.qrCode = code
	}
	if st.Preview != prev.Preview {
		m.rendered = previewText(st.Preview, m.width, m.mdStyle)
	}

	m.files = st.VisibleFiles()
	cursor := m.table.Cursor()
	m.table.SetRows(m.rows())
	if cursor >= len(m.files) {
		cursor = max(len(m.files)-1, 0)
	}
	m.table.SetCursor(cursor)
}

func (m *Model) rows() []table.Row {
	now := m.now()
	rows := make([]table.Row, 0, len(m.files))
	for _, f := range m.files {
		size := "-"
		if !f.IsDir() {
			size = format.Size(f.Size)
		}
		mtime := ""
		if f.ModTime > 0 {
			mtime = format.Time(f.ModTime, m.state.MtimeFromNow, now)
		}
		rows = append(rows, table.Row{present.Glyph(f) + " " + f.Name, size, mtime})
	}
	return rows
}

// selected returns the entry under the cursor.
func (m *Model) selected() (models.FileEntry, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.files) {
		return models.FileEntry{}, false
	}
	return m.files[i], true
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case changeMsg:
		m.refresh()
		return m, waitForChange(m.sub)

	case tickMsg:
		m.store.Tick(time.Time(msg))
		return m, tick()

	case doneMsg:
		m.finish(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	switch {
	case m.state.MkdirOpen:
		m.mkdir, cmd = m.mkdir.Update(msg)
	case m.state.EditOpen:
		m.editor, cmd = m.editor.Update(msg)
	}
	return m, cmd
}

// finish reports the outcome of a background operation. Mutation
// failures already show as a banner; loader failures go to the status line.
func (m *Model) finish(msg doneMsg) {
	if a := m.alerts.take(); a != "" {
		m.alert = a
	}
	switch {
	case msg.err == nil:
		m.status = msg.note
	case errors.Is(msg.err, viewmodel.ErrStale), errors.Is(msg.err, viewmodel.ErrCanceled):
	case msg.op == viewmodel.ActionMkdir, msg.op == viewmodel.ActionEdit, errors.Is(msg.err, viewmodel.ErrEmptyFolderName):
	case msg.op == "delete":
	default:
		m.status = fmt.Sprintf("%s: %v", msg.op, msg.err)
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.alert != "" {
		m.alert = ""
		return m, nil
	}
	if m.confirming != nil {
		return m.handleConfirm(msg)
	}

	switch {
	case m.state.MkdirOpen:
		return m.handleMkdir(msg)
	case m.state.EditOpen:
		return m.handleEdit(msg)
	case m.state.InfoOpen || m.state.QROpen:
		if key.Matches(msg, m.keys.Cancel) || key.Matches(msg, m.keys.Submit) || key.Matches(msg, m.keys.QR) {
			m.store.CloseDialogs()
		}
		return m, nil
	}
	return m.handleBrowse(msg)
}

func (m *Model) handleConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := *m.confirming
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.confirming = nil
		m.approvals.approve(viewmodel.DeletePrompt(f.Name))
		m.status = fmt.Sprintf("deleting %s...", f.Name)
		return m, m.run("delete", func(ctx context.Context) error {
			return m.store.Delete(ctx, f)
		})
	case key.Matches(msg, m.keys.Cancel):
		m.confirming = nil
	}
	return m, nil
}

func (m *Model) handleMkdir(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		name := m.mkdir.Value()
		m.store.SetMkdirInput(name)
		return m, m.run(viewmodel.ActionMkdir, func(ctx context.Context) error {
			return m.store.Mkdir(ctx, name)
		})
	case msg.Type == tea.KeyEsc:
		m.store.CloseDialogs()
		return m, nil
	}
	var cmd tea.Cmd
	m.mkdir, cmd = m.mkdir.Update(msg)
	return m, cmd
}

func (m *Model) handleEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Save):
		content := m.editor.Value()
		return m, m.run(viewmodel.ActionEdit, func(ctx context.Context) error {
			return m.store.SaveEdit(ctx, content)
		})
	case msg.Type == tea.KeyEsc:
		m.store.CloseDialogs()
		return m, nil
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m *Model) handleBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	st := m.state

	switch {
	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keys.Open):
		f, ok := m.selected()
		if !ok || st.PreviewMode {
			return m, nil
		}
		if f.IsDir() {
			m.table.SetCursor(0)
		}
		return m, m.runNote("open", func(ctx context.Context) (string, error) {
			u, err := m.store.Open(ctx, f)
			if u != "" {
				return "download: " + u, err
			}
			return "", err
		})

	case key.Matches(msg, m.keys.Parent):
		if st.PreviewMode {
			return m, m.run("back", func(ctx context.Context) error {
				_, err := m.store.Back(ctx)
				return err
			})
		}
		return m, m.run("parent", func(ctx context.Context) error {
			_, err := m.store.Up(ctx)
			return err
		})

	case key.Matches(msg, m.keys.Back):
		return m, m.run("back", func(ctx context.Context) error {
			_, err := m.store.Back(ctx)
			return err
		})

	case key.Matches(msg, m.keys.Forward):
		return m, m.run("forward", func(ctx context.Context) error {
			_, err := m.store.Forward(ctx)
			return err
		})

	case key.Matches(msg, m.keys.Reload):
		return m, m.run("reload", m.store.Load)

	case key.Matches(msg, m.keys.Hidden):
		m.store.ToggleHidden()

	case key.Matches(msg, m.keys.TimeMode):
		m.store.ToggleMtimeMode()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Mkdir):
		if !st.Auth.CanMkdir() {
			m.status = "creating folders is not allowed here"
			return m, nil
		}
		m.store.OpenMkdir()
	}

	if st.PreviewMode {
		return m, nil
	}
	f, ok := m.selected()
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Preview):
		if f.IsDir() {
			return m, nil
		}
		return m, m.run("preview", func(ctx context.Context) error {
			return m.store.OpenPreview(ctx, f)
		})

	case key.Matches(msg, m.keys.Edit):
		if f.IsDir() || !present.IsEditable(f.Name) {
			m.status = f.Name + " is not editable"
			return m, nil
		}
		return m, m.run(viewmodel.ActionEdit, func(ctx context.Context) error {
			return m.store.LoadForEdit(ctx, f)
		})

	case key.Matches(msg, m.keys.Delete):
		if !st.Auth.CanDelete() {
			m.status = "deleting is not allowed here"
			return m, nil
		}
		m.confirming = &f

	case key.Matches(msg, m.keys.Info):
		return m, m.run("info", func(ctx context.Context) error {
			return m.store.ShowInfo(ctx, f)
		})

	case key.Matches(msg, m.keys.QR):
		if f.IsDir() || !present.QREligible(f.Name) {
			m.status = "qr codes are offered for apk and ipa files"
			return m, nil
		}
		m.store.ShowQR(f)

	case key.Matches(msg, m.keys.QRSave):
		if f.IsDir() {
			return m, nil
		}
		target := present.InstallURL(m.store.Origin(), st.Location.Path, f.Name)
		return m, m.runNote("qr", func(context.Context) (string, error) {
			png, err := present.QRCode(target)
			if err != nil {
				return "", err
			}
			out := f.Name + ".qr.png"
			if err := os.WriteFile(out, png, 0644); err != nil {
				return "", err
			}
			return "saved " + out, nil
		})

	case key.Matches(msg, m.keys.Copy):
		link := present.DownloadURL(m.store.Origin(), f)
		if err := m.copyText(link); err != nil {
			m.status = "copy failed: " + err.Error()
			return m, nil
		}
		m.status = "copied " + link
	}
	return m, nil
}

// runNote is run for operations that report a status line on success.
func (m *Model) runNote(op string, fn func(ctx context.Context) (string, error)) tea.Cmd {
	return func() tea.Msg {
		note, err := fn(m.ctx)
		return doneMsg{op: op, note: note, err: err}
	}
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetColumns(columns(width))
	m.table.SetHeight(max(height-12, 5))
	m.editor.SetWidth(max(width-6, 20))
	m.editor.SetHeight(max(height-10, 5))
	m.help.Width = width
	m.rendered = previewText(m.state.Preview, width, m.mdStyle)
}
