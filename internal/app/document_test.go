package app

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestOpenDocument(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "a.html")
	writeFile(t, existing, "<p>a</p>")

	tests := []struct {
		name     string
		path     string
		readOnly bool
		title    string
		content  string
	}{
		{"scratch", "", false, "Untitled", ""},
		{"missing", filepath.Join(dir, "new.html"), false, "new.html", ""},
		{"existing", existing, true, "a.html [RO]", "<p>a</p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, content, err := OpenDocument(tt.path, tt.readOnly)
			if err != nil {
				t.Fatal(err)
			}
			if doc.Title() != tt.title || content != tt.content {
				t.Errorf("title = %q content = %q", doc.Title(), content)
			}
			doc.SetModified(true)
			if doc.Title() != tt.title+" *" {
				t.Errorf("modified title = %q", doc.Title())
			}
		})
	}

	_, _, err := OpenDocument(dir, false)
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Op != "open" {
		t.Errorf("open directory = %v", err)
	}
}
