package app

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/dshills/inkstorm/internal/engine/markup"
	"github.com/dshills/inkstorm/internal/engine/model"
)

// Document is the file being edited. Content is stored as HTML.
type Document struct {
	// Path is the absolute file path, empty for scratch documents.
	Path string

	// Name is the display name.
	Name string

	ReadOnly bool

	modified atomic.Bool
}

// OpenDocument reads path. A missing file yields an empty document that
// is created on first save.
func OpenDocument(path string, readOnly bool) (*Document, string, error) {
	if path == "" {
		return &Document{Name: "Untitled", ReadOnly: readOnly}, "", nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", &OperationError{Op: "open", Target: path, Err: err}
	}
	doc := &Document{Path: abs, Name: filepath.Base(abs), ReadOnly: readOnly}
	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, "", nil
	}
	if err != nil {
		return nil, "", &OperationError{Op: "open", Target: path, Err: err}
	}
	return doc, string(data), nil
}

// Modified reports unsaved changes.
func (d *Document) Modified() bool { return d.modified.Load() }

// SetModified marks the document as changed or saved.
func (d *Document) SetModified(m bool) { d.modified.Store(m) }

// Save writes content as HTML.
func (d *Document) Save(content *model.Node) error {
	if d.ReadOnly {
		return &OperationError{Op: "save", Target: d.Name, Err: ErrReadOnly}
	}
	if d.Path == "" {
		return &OperationError{Op: "save", Target: d.Name, Err: ErrNoPath}
	}
	if err := os.WriteFile(d.Path, []byte(markup.Serialize(content)+"\n"), 0o644); err != nil {
		return &OperationError{Op: "save", Target: d.Path, Err: err}
	}
	d.SetModified(false)
	return nil
}

// Title is the status line label.
func (d *Document) Title() string {
	title := d.Name
	if d.ReadOnly {
		title += " [RO]"
	}
	if d.Modified() {
		title += " *"
	}
	return title
}
