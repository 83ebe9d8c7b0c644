package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/KaramelBytes/docassist/internal/parser"
	"github.com/KaramelBytes/docassist/internal/utils"
	"github.com/google/uuid"
)

var (
	// ErrUnsupportedType is returned for uploads other than CSV, Excel or JSON.
	ErrUnsupportedType = errors.New("file type not supported; upload CSV, Excel, or JSON files")
	// ErrTooLarge is returned when an upload exceeds the configured limit.
	ErrTooLarge = errors.New("file exceeds upload size limit")
	// ErrNotFound is returned for unknown file ids.
	ErrNotFound = errors.New("file not found")
)

// UploadedFile is one file held by the session.
type UploadedFile struct {
	ID         string
	Name       string
	Ext        string
	Size       int64
	SizeLabel  string
	Icon       string
	Content    []byte
	UploadedAt time.Time
}

// Files is the ordered upload registry. Safe for concurrent use.
type Files struct {
	mu       sync.RWMutex
	maxBytes int64
	order    []string
	byID     map[string]*UploadedFile
}

// NewFiles creates an empty registry. maxBytes <= 0 disables the size check.
func NewFiles(maxBytes int64) *Files {
	return &Files{maxBytes: maxBytes, byID: make(map[string]*UploadedFile)}
}

// Add validates and registers an upload. The content slice is retained, not copied.
func (f *Files) Add(name string, content []byte) (UploadedFile, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if !parser.Supported(name) {
		return UploadedFile{}, fmt.Errorf("%w: %s", ErrUnsupportedType, name)
	}
	size := int64(len(content))
	if f.maxBytes > 0 && size > f.maxBytes {
		return UploadedFile{}, fmt.Errorf("%w: %s is %s (limit %s)", ErrTooLarge, name, utils.FormatFileSize(size), utils.FormatFileSize(f.maxBytes))
	}
	ext := strings.ToLower(filepath.Ext(name))
	uf := &UploadedFile{
		ID:         uuid.NewString(),
		Name:       name,
		Ext:        ext,
		Size:       size,
		SizeLabel:  utils.FormatFileSize(size),
		Icon:       Icon(ext),
		Content:    content,
		UploadedAt: time.Now(),
	}
	f.mu.Lock()
	f.byID[uf.ID] = uf
	f.order = append(f.order, uf.ID)
	f.mu.Unlock()
	return *uf, nil
}

// Get returns the file with the given id.
func (f *Files) Get(id string) (UploadedFile, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	uf, ok := f.byID[id]
	if !ok {
		return UploadedFile{}, false
	}
	return *uf, true
}

// Remove drops a file from the registry and reports whether it existed.
func (f *Files) Remove(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return false
	}
	delete(f.byID, id)
	for i, v := range f.order {
		if v == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns uploads in upload order.
func (f *Files) List() []UploadedFile {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]UploadedFile, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, *f.byID[id])
	}
	return out
}

// Len returns the number of uploads.
func (f *Files) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.order)
}

// Latest returns the most recent upload.
func (f *Files) Latest() (UploadedFile, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.order) == 0 {
		return UploadedFile{}, false
	}
	return *f.byID[f.order[len(f.order)-1]], true
}

// Mentioned returns the first upload, in upload order, whose lowercased
// name occurs in the lowercased message.
func (f *Files) Mentioned(message string) (UploadedFile, bool) {
	msg := strings.ToLower(message)
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, id := range f.order {
		uf := f.byID[id]
		if strings.Contains(msg, strings.ToLower(uf.Name)) {
			return *uf, true
		}
	}
	return UploadedFile{}, false
}

// Resolve finds a file by id, id prefix or case-insensitive name.
func (f *Files) Resolve(ref string) (UploadedFile, error) {
	ref = strings.TrimSpace(ref)
	f.mu.RLock()
	defer f.mu.RUnlock()
	if uf, ok := f.byID[ref]; ok {
		return *uf, nil
	}
	var match *UploadedFile
	for _, id := range f.order {
		uf := f.byID[id]
		if strings.EqualFold(uf.Name, ref) || (len(ref) >= 4 && strings.HasPrefix(uf.ID, ref)) {
			match = uf
		}
	}
	if match == nil {
		return UploadedFile{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return *match, nil
}

// Icon returns the display glyph for a lowercase extension like ".csv".
func Icon(ext string) string {
	switch ext {
	case ".csv":
		return "📊"
	case ".xlsx", ".xls":
		return "📈"
	case ".json":
		return "📋"
	default:
		return "📄"
	}
}
