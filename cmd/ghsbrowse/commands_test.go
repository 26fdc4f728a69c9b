package main

import "testing"

func TestSplitPath(t *testing.T) {
	tests := []struct {
		in       string
		dir      string
		name     string
		filePath string
	}{
		{"/releases/app.apk", "/releases", "app.apk", "releases/app.apk"},
		{"releases/app.apk", "/releases", "app.apk", "releases/app.apk"},
		{"notes.yml", "/", "notes.yml", "notes.yml"},
		{"/docs/", "/", "docs", "docs"},
	}
	for _, tt := range tests {
		dir, f := splitPath(tt.in)
		if dir != tt.dir || f.Name != tt.name || f.Path != tt.filePath {
			t.Errorf("splitPath(%q) = %q, {%q %q}; want %q, {%q %q}",
				tt.in, dir, f.Name, f.Path, tt.dir, tt.name, tt.filePath)
		}
	}
}
