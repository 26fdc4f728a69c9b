package present

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ghsbrowse/ghsbrowse/pkg/models"
)

func TestIcon(t *testing.T) {
	tests := []struct {
		entry models.FileEntry
		want  string
	}{
		{models.FileEntry{Name: ".git", Type: models.TypeDir}, IconGit},
		{models.FileEntry{Name: "src", Type: models.TypeDir}, IconFolder},
		{models.FileEntry{Name: "main.go", Type: models.TypeFile}, IconCode},
		{models.FileEntry{Name: "paper.pdf", Type: models.TypeFile}, IconPDF},
		{models.FileEntry{Name: "app.apk", Type: models.TypeFile}, IconAndroid},
		{models.FileEntry{Name: "app.ipa", Type: models.TypeFile}, IconApple},
		{models.FileEntry{Name: "setup.exe", Type: models.TypeFile}, IconWindows},
		{models.FileEntry{Name: "song.mp3", Type: models.TypeFile}, IconAudio},
		{models.FileEntry{Name: "photo.jpeg", Type: models.TypeFile}, IconPicture},
		{models.FileEntry{Name: "notes.txt", Type: models.TypeFile}, IconText},
		{models.FileEntry{Name: "Makefile", Type: models.TypeFile}, IconText},
	}
	for _, tt := range tests {
		if got := Icon(tt.entry); got != tt.want {
			t.Errorf("Icon(%s) = %s, want %s", tt.entry.Name, got, tt.want)
		}
		if Glyph(tt.entry) == "" {
			t.Errorf("Glyph(%s) is empty", tt.entry.Name)
		}
	}
}

func TestIsEditable(t *testing.T) {
	for name, want := range map[string]bool{
		"config.yml":  true,
		"config.yaml": true,
		"yml":         false,
		"readme.md":   false,
		"main.go":     false,
	} {
		if got := IsEditable(name); got != want {
			t.Errorf("IsEditable(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestQREligible(t *testing.T) {
	for name, want := range map[string]bool{
		"app.apk": true,
		"app.ipa": true,
		"apk":     false,
		"app.zip": false,
	} {
		if got := QREligible(name); got != want {
			t.Errorf("QREligible(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestInstallURL(t *testing.T) {
	got := InstallURL("http://host:8000", "/apps/", "demo.ipa")
	if got != "http://host:8000/-/ipa/link/apps/demo.ipa" {
		t.Errorf("ipa install url = %s", got)
	}

	got = InstallURL("http://host:8000/", "/apps", "my app.apk")
	if got != "http://host:8000/apps/my%20app.apk" {
		t.Errorf("apk install url = %s", got)
	}
}

func TestDownloadURL(t *testing.T) {
	f := models.FileEntry{Name: "a.txt", Path: "docs/a.txt", Type: models.TypeFile}
	if got := DownloadURL("http://h", f); got != "http://h/docs/a.txt" {
		t.Errorf("DownloadURL = %s", got)
	}
	if got := FileURL("http://h", "/docs", "a.txt"); got != "http://h/docs/a.txt" {
		t.Errorf("FileURL = %s", got)
	}
}

func TestQRCode(t *testing.T) {
	png, err := QRCode("http://host:8000/apps/demo.apk")
	if err != nil {
		t.Fatalf("QRCode: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("expected PNG signature")
	}

	s, err := QRTerminal("http://host:8000/apps/demo.apk")
	if err != nil {
		t.Fatalf("QRTerminal: %v", err)
	}
	if strings.Count(s, "\n") < 20 {
		t.Errorf("terminal code looks too small: %d lines", strings.Count(s, "\n"))
	}
}
