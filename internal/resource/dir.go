package resource

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Dir resolves chart resource paths below a base directory. Charts name
// files with either separator and in any letter case, and often refer to a
// .wav that ships as .ogg or .mp3; Dir hides all of that. Directory listings
// are read once and cached, so Dir is cheap to share between loaders.
type Dir struct {
	base string

	mu      sync.Mutex
	entries map[string][]os.DirEntry
}

func NewDir(base string) *Dir {
	return &Dir{base: base, entries: make(map[string][]os.DirEntry)}
}

func (d *Dir) Base() string { return d.base }

func (d *Dir) list(dir string) []os.DirEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.entries[dir]; ok {
		return e
	}
	e, _ := os.ReadDir(dir)
	d.entries[dir] = e
	return e
}

// Resolve returns the file matching rel. When no file matches and the
// name has an extension, files with the same stem and one of exts match
// instead.
func (d *Dir) Resolve(rel string, exts []string) (string, bool) {
	parts := strings.FieldsFunc(rel, func(r rune) bool { return r == '/' || r == '\\' })
	if len(parts) == 0 {
		return "", false
	}
	cur := d.base
	last := parts[len(parts)-1]
	for _, part := range parts[:len(parts)-1] {
		next, ok := d.match(cur, func(e os.DirEntry) bool {
			return e.IsDir() && strings.EqualFold(e.Name(), part)
		})
		if !ok {
			return "", false
		}
		cur = next
	}

	if p, ok := d.match(cur, func(e os.DirEntry) bool {
		return !e.IsDir() && strings.EqualFold(e.Name(), last)
	}); ok {
		return p, true
	}
	dot := strings.LastIndexByte(last, '.')
	if dot < 0 {
		return "", false
	}
	stem := last[:dot]
	return d.match(cur, func(e os.DirEntry) bool {
		if e.IsDir() {
			return false
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if !strings.EqualFold(strings.TrimSuffix(name, ext), stem) {
			return false
		}
		for _, alt := range exts {
			if strings.EqualFold(ext, alt) {
				return true
			}
		}
		return false
	})
}

func (d *Dir) match(dir string, pred func(os.DirEntry) bool) (string, bool) {
	for _, e := range d.list(dir) {
		if pred(e) {
			return filepath.Join(dir, e.Name()), true
		}
	}
	return "", false
}
