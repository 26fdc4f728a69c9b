package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/ghsbrowse/ghsbrowse/internal/logging"
	"github.com/ghsbrowse/ghsbrowse/pkg/format"
	"github.com/ghsbrowse/ghsbrowse/pkg/models"
)

var titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FF80"))

var crumbStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FFFF"))

var dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

var statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFEB3B"))

var bannerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FFFFFF")).
	Background(lipgloss.Color("#C0392B")).
	Padding(0, 1)

var dialogStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#4A90E2")).
	Padding(1, 2)

var alertStyle = dialogStyle.BorderForeground(lipgloss.Color("#C0392B"))

var previewStyle = lipgloss.NewStyle().
	Border(lipgloss.NormalBorder(), true, false, false, false).
	BorderForeground(lipgloss.Color("#555555"))

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#4A90E2")).
		Bold(true)
	return s
}

const (
	sizeWidth = 10
	timeWidth = 20
)

func columns(width int) []table.Column {
	name := max(width-sizeWidth-timeWidth-8, 16)
	return []table.Column{
		{Title: "Name", Width: name},
		{Title: "Size", Width: sizeWidth},
		{Title: "Modified", Width: timeWidth},
	}
}

// renderMarkdown renders source for a terminal of the given width. On a
// renderer failure the source is returned unchanged.
func renderMarkdown(source string, width int, style string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(max(24, width-4)),
		glamour.WithEmoji(),
	)
	if err != nil {
		logging.Warn("create markdown renderer failed", logging.Err(err))
		return source
	}
	out, err := r.Render(source)
	if err != nil {
		logging.Warn("render markdown failed", logging.Err(err))
		return source
	}
	return strings.Trim(out, "\n")
}

// previewText is the terminal rendering of p: markdown goes through
// glamour, everything else is shown as it is.
func previewText(p models.Preview, width int, style string) string {
	if p.Source == "" {
		return ""
	}
	if p.Filetype == "markdown" {
		return renderMarkdown(p.Source, width, style)
	}
	return strings.TrimRight(p.Source, "\n")
}

// clip keeps at most n lines of s.
func clip(s string, n int) string {
	if n <= 0 {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "\n") + "\n" + dimStyle.Render("…")
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	b.WriteString(m.breadcrumb())
	b.WriteString("\n\n")

	switch {
	case m.alert != "":
		b.WriteString(alertStyle.Render("⚠ " + m.alert + "\n\n" + dimStyle.Render("press any key")))
	case m.confirming != nil:
		b.WriteString(dialogStyle.Render(fmt.Sprintf("Delete %s?\n\n%s", m.confirming.Name, dimStyle.Render("y: delete   n/esc: cancel"))))
	case m.state.MkdirOpen:
		b.WriteString(dialogStyle.Render("New folder\n\n" + m.mkdir.View() + "\n\n" + dimStyle.Render("enter: create   esc: cancel")))
	case m.state.EditOpen:
		b.WriteString(titleStyle.Render("Editing "+m.state.Edit.Title) + "\n")
		b.WriteString(m.editor.View())
		b.WriteString("\n" + dimStyle.Render("ctrl+s: save   esc: cancel"))
	case m.state.InfoOpen:
		b.WriteString(dialogStyle.Render(titleStyle.Render(m.state.InfoTitle) + "\n\n" + m.state.InfoText))
	case m.state.QROpen:
		b.WriteString(m.qrView())
	case m.state.PreviewMode:
		b.WriteString(m.previewView())
	default:
		b.WriteString(m.table.View())
		if m.rendered != "" {
			b.WriteString("\n")
			readme := titleStyle.Render(m.state.Preview.Filename) + "\n" + m.rendered
			b.WriteString(previewStyle.Render(clip(readme, max(m.height-m.table.Height()-12, 3))))
		}
	}
	b.WriteString("\n")

	if banner := m.state.Banner; banner.Active(m.now()) {
		b.WriteString(bannerStyle.Render(banner.Message))
		b.WriteString("\n")
	}
	if up := m.state.Upload; up.Active || up.Total > 0 {
		line := fmt.Sprintf("upload: %d/%d done, %d failed, %s", up.Done, up.Total, up.Failed, format.Size(up.Bytes))
		b.WriteString(dimStyle.Render(line))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) header() string {
	st := m.state
	user := "anonymous"
	if !st.User.Anonymous() {
		user = st.User.Name
		if user == "" {
			user = st.User.Email
		}
	}
	flags := ""
	if st.ShowHidden {
		flags += " [hidden]"
	}
	if st.MtimeFromNow {
		flags += " [relative]"
	}
	return titleStyle.Render("ghsbrowse") + " " +
		dimStyle.Render(fmt.Sprintf("%s  %s  %s%s", m.store.Origin(), st.Version, user, flags))
}

func (m *Model) breadcrumb() string {
	parts := []string{crumbStyle.Render("/")}
	for _, c := range m.state.Breadcrumb {
		parts = append(parts, crumbStyle.Render(c.Name))
	}
	return strings.Join(parts, " ")
}

func (m *Model) previewView() string {
	p := m.state.Preview
	if p.Filename == "" {
		return dimStyle.Render("loading preview ...")
	}
	head := titleStyle.Render(p.Filename) + " " + dimStyle.Render(fmt.Sprintf("%s  %s", p.Filetype, format.Size(p.Filesize)))
	return head + "\n" + clip(m.rendered, max(m.height-10, 5))
}

func (m *Model) qrView() string {
	qr := m.state.QR
	body := titleStyle.Render(qr.Title) + "\n\n" + m.qrCode + "\n" +
		"install: " + qr.InstallURL + "\n" +
		"file:    " + qr.FileURL
	return dialogStyle.Render(body)
}
