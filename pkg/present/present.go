// Package present holds the pure presentation rules for directory entries:
// icons, which files are editable, which get a QR code, and the URLs
// handed to the user.
package present

import (
	"strings"

	"github.com/ghsbrowse/ghsbrowse/pkg/models"
	"github.com/ghsbrowse/ghsbrowse/pkg/pathutil"
	"github.com/ghsbrowse/ghsbrowse/pkg/protocol"
)

// Icon names (font-awesome 4 classes, as the web page uses).
const (
	IconFolder  = "fa-folder-open"
	IconGit     = "fa-git-square"
	IconCode    = "fa-file-code-o"
	IconPDF     = "fa-file-pdf-o"
	IconZip     = "fa-file-zip-o"
	IconAudio   = "fa-file-audio-o"
	IconPicture = "fa-file-picture-o"
	IconApple   = "fa-apple"
	IconAndroid = "fa-android"
	IconWindows = "fa-windows"
	IconText    = "fa-file-text-o"
)

var extIcons = map[string]string{
	"go": IconCode, "py": IconCode, "js": IconCode, "java": IconCode,
	"c": IconCode, "cpp": IconCode, "h": IconCode,
	"pdf": IconPDF,
	"zip": IconZip,
	"mp3": IconAudio, "wav": IconAudio,
	"jpg": IconPicture, "png": IconPicture, "gif": IconPicture,
	"jpeg": IconPicture, "tiff": IconPicture,
	"ipa": IconApple, "dmg": IconApple,
	"apk": IconAndroid,
	"exe": IconWindows,
}

var glyphs = map[string]string{
	IconFolder:  "📁",
	IconGit:     "🔀",
	IconCode:    "📜",
	IconPDF:     "📕",
	IconZip:     "📦",
	IconAudio:   "🎵",
	IconPicture: "🖼",
	IconApple:   "🍎",
	IconAndroid: "🤖",
	IconWindows: "🪟",
	IconText:    "📄",
}

// EditableExtensions are the file types that can be edited in place.
var EditableExtensions = map[string]bool{
	"yml":  true,
	"yaml": true,
}

// QRExtensions are the mobile package types offered as QR codes.
var QRExtensions = map[string]bool{
	"apk": true,
	"ipa": true,
}

// Icon returns the icon class for an entry.
func Icon(f models.FileEntry) string {
	if f.IsDir() {
		if f.Name == ".git" {
			return IconGit
		}
		return IconFolder
	}
	if icon, ok := extIcons[pathutil.Extension(f.Name)]; ok {
		return icon
	}
	return IconText
}

// Glyph returns a terminal-friendly symbol for an entry.
func Glyph(f models.FileEntry) string {
	return glyphs[Icon(f)]
}

// IsEditable reports whether name may be edited in place.
func IsEditable(name string) bool {
	if !strings.Contains(name, ".") {
		return false
	}
	return EditableExtensions[pathutil.Extension(name)]
}

// QREligible reports whether name gets a QR code.
func QREligible(name string) bool {
	if !strings.Contains(name, ".") {
		return false
	}
	return QRExtensions[pathutil.Extension(name)]
}

// InstallURL builds the URL a phone should open for a file in dir. iOS
// packages go through the server's install-link endpoint; everything else
// is linked directly.
func InstallURL(origin, dir, name string) string {
	var p string
	if pathutil.Extension(name) == "ipa" {
		p = pathutil.JoinURL("/", protocol.PathIpaLink, dir, name)
	} else {
		p = pathutil.JoinURL("/", dir, name)
	}
	return pathutil.EncodeURI(strings.TrimSuffix(origin, "/") + p)
}

// FileURL is the direct link to a file in dir.
func FileURL(origin, dir, name string) string {
	return pathutil.EncodeURI(strings.TrimSuffix(origin, "/") + pathutil.JoinURL("/", dir, name))
}

// DownloadURL is the direct link to an entry by its server path.
func DownloadURL(origin string, f models.FileEntry) string {
	return pathutil.EncodeURI(strings.TrimSuffix(origin, "/") + pathutil.JoinURL("/", f.Path))
}
