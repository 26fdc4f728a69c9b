// Package pathutil provides the small path and query helpers the view-model
// uses to build request URLs from the current location.
package pathutil

import (
	"net/url"
	"strings"

	"github.com/ghsbrowse/ghsbrowse/pkg/models"
)

// BreadcrumbMarker is appended to the display name of the last breadcrumb.
const BreadcrumbMarker = " /"

// Extension returns the text after the last "." in name, or name itself
// when it has no dot.
func Extension(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return name
	}
	return name[i+1:]
}

// Join concatenates parts with sep and collapses every run of sep into a
// single one. An empty sep means "/".
func Join(parts []string, sep string) string {
	if sep == "" {
		sep = "/"
	}
	joined := strings.Join(parts, sep)
	double := sep + sep
	for strings.Contains(joined, double) {
		joined = strings.ReplaceAll(joined, double, sep)
	}
	return joined
}

// JoinURL is Join with "/".
func JoinURL(parts ...string) string {
	return Join(parts, "/")
}

// QueryParam returns the decoded value of name in rawQuery. A leading "?"
// is tolerated and "+" decodes to a space.
func QueryParam(rawQuery, name string) (string, bool) {
	rawQuery = strings.TrimPrefix(rawQuery, "?")
	// ParseQuery keeps every well-formed pair even when it reports an error.
	values, _ := url.ParseQuery(rawQuery)
	v, ok := values[name]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[0], true
}

// Breadcrumbs derives the breadcrumb trail for a decoded path. Empty
// segments are dropped and each crumb's Path is the cumulative sub-path
// without a leading slash.
func Breadcrumbs(path string) []models.Breadcrumb {
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}

	crumbs := make([]models.Breadcrumb, 0, len(segments))
	for i, s := range segments {
		name := s
		if i == len(segments)-1 {
			name += BreadcrumbMarker
		}
		crumbs = append(crumbs, models.Breadcrumb{
			Name: name,
			Path: strings.Join(segments[:i+1], "/"),
		})
	}
	return crumbs
}

// Location is the navigation state: the path being browsed plus its query
// string. It plays the role of the browser URL. Path is decoded; the
// client escapes it when building request URLs.
type Location struct {
	Path     string
	RawQuery string
}

// ParseLocation splits a "path?query" reference as found in a browser URL
// and percent-decodes the path. A path that is not valid escaping is kept
// as written. The path always starts with "/".
func ParseLocation(ref string) Location {
	path, query, _ := strings.Cut(ref, "?")
	if decoded, err := url.PathUnescape(path); err == nil {
		path = decoded
	}
	return Location{Path: Clean(path), RawQuery: query}
}

// Query returns the value of a query parameter of the location.
func (l Location) Query(name string) (string, bool) {
	return QueryParam(l.RawQuery, name)
}

// String renders the location back as "path?query".
func (l Location) String() string {
	if l.RawQuery == "" {
		return l.Path
	}
	return l.Path + "?" + l.RawQuery
}

// Child returns the location of name inside l, without a query.
func (l Location) Child(name string) Location {
	return Location{Path: Clean(JoinURL(l.Path, name))}
}

// Clean makes p absolute and collapses duplicate slashes. A trailing slash
// is kept.
func Clean(p string) string {
	return JoinURL("/", p)
}

// EscapePath percent-encodes each segment of p, keeping the slashes.
func EscapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// uriSafe are the characters encodeURI leaves alone besides alphanumerics.
const uriSafe = ";,/?:@&=+$-_.!~*'()#"

// EncodeURI percent-encodes s the way a browser's encodeURI does: reserved
// URL characters survive, everything else outside ASCII alphanumerics is
// escaped byte by byte.
func EncodeURI(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') ||
			strings.IndexByte(uriSafe, c) >= 0 {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}
