package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// pendingFile is an export staged in a temp file beside its target. The
// target keeps its previous content until finish renames a complete file
// over it.
type pendingFile struct {
	path    string
	file    *os.File
	written bool
	failed  bool
}

func newPendingFile(path string) (*pendingFile, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create file for %q: %w", path, err)
	}
	return &pendingFile{path: path, file: f}, nil
}

// finish closes the temp file and renames it onto the target when at least
// one write succeeded and none failed. Otherwise the temp file is removed.
func (p *pendingFile) finish() error {
	if p.file == nil {
		return nil
	}
	name := p.file.Name()
	err := p.file.Close()
	p.file = nil

	if err == nil && (!p.written || p.failed) {
		err = fmt.Errorf("export incomplete, %s left unchanged", p.path)
	}
	if err == nil {
		err = os.Chmod(name, 0644)
	}
	if err == nil {
		err = os.Rename(name, p.path)
	}
	if err != nil {
		_ = os.Remove(name)
	}
	return err
}

func (p *pendingFile) discard() {
	if p.file == nil {
		return
	}
	_ = p.file.Close()
	_ = os.Remove(p.file.Name())
	p.file = nil
}
