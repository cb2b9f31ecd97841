package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nalsan/peka/internal/vault"
)

// Extension is the suffix every vault file carries.
const Extension = ".peka"

const fallbackFileName = "vault"

// Paths locates vault artifacts on disk.
type Paths struct {
	Dir string
}

// VaultPath returns where a vault called name is stored.
func (p Paths) VaultPath(name string) string {
	return filepath.Join(p.Dir, FileName(name))
}

func (p Paths) ensureDir() error {
	if p.Dir == "" {
		return errors.New("vault directory not specified")
	}
	if err := os.MkdirAll(p.Dir, 0o700); err != nil {
		return fmt.Errorf("create vault directory: %w", err)
	}
	return nil
}

// FileName turns a display name into a filesystem-safe file name. Anything
// outside [A-Za-z0-9_-] becomes an underscore, runs of underscores collapse,
// and leading or trailing underscores are dropped.
func FileName(name string) string {
	return slug(name) + Extension
}

func slug(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(name) {
		ok := r == '-' || r == '_' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			r = '_'
		}
		if r == '_' {
			if lastUnderscore {
				continue
			}
			lastUnderscore = true
		} else {
			lastUnderscore = false
		}
		b.WriteRune(r)
	}
	s := strings.Trim(b.String(), "_")
	if s == "" {
		return fallbackFileName
	}
	return s
}

// ReadEnvelope loads and parses the envelope at path without decrypting it.
func ReadEnvelope(path string) (vault.Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return vault.Envelope{}, vault.NewError(vault.ErrNotFound, "vault file not found", err)
		}
		return vault.Envelope{}, vault.NewError(vault.ErrFormat, "unable to read vault file from disk", err)
	}
	return vault.DecodeEnvelope(data)
}

// WriteEnvelope persists env at path. The previous file, if any, is replaced
// in a single rename so readers never observe a partial write.
func WriteEnvelope(path string, env vault.Envelope) error {
	data, err := vault.EncodeEnvelope(env)
	if err != nil {
		return vault.IOFailure("unable to encode vault file", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return vault.IOFailure("unable to create vault directory", err)
	}
	if err := atomicWriteFile(path, data, 0o600); err != nil {
		return vault.IOFailure("unable to write vault file", err)
	}
	return nil
}

// List reports every vault file in the directory. Files that do not parse as
// an envelope are skipped; a missing directory is an empty listing.
func (p Paths) List() ([]vault.Summary, error) {
	out := []vault.Summary{}
	entries, err := os.ReadDir(p.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return out, nil
		}
		return nil, vault.IOFailure("unable to read vault directory", err)
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() || filepath.Ext(entry.Name()) != Extension {
			continue
		}
		path := filepath.Join(p.Dir, entry.Name())
		env, err := ReadEnvelope(path)
		if err != nil {
			continue
		}
		out = append(out, vault.Summary{Path: path, VaultName: env.VaultName})
	}
	return out, nil
}

// Resolve is the path-safety gate for destructive or exporting operations.
// It returns the canonical form of target after checking that it lives
// inside the vault directory, carries the vault extension, and exists.
func (p Paths) Resolve(target string) (string, error) {
	if strings.TrimSpace(target) == "" {
		return "", vault.Validation("vault path is required")
	}
	if p.Dir == "" {
		return "", vault.IOFailure("vault directory not specified", nil)
	}

	dir, err := canonical(p.Dir)
	if err != nil {
		return "", vault.IOFailure("unable to resolve vault directory", err)
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", vault.NewError(vault.ErrPathSafety, "vault path is invalid", err)
	}
	resolved, err := canonical(abs)
	if err != nil {
		return "", vault.NewError(vault.ErrPathSafety, "vault path is invalid", err)
	}

	if !within(dir, resolved) {
		return "", vault.NewError(vault.ErrPathSafety, "vault path is invalid", nil)
	}
	if filepath.Ext(resolved) != Extension {
		return "", vault.NewError(vault.ErrPathSafety, "invalid vault file", nil)
	}

	info, err := os.Lstat(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", vault.NewError(vault.ErrNotFound, "vault file not found", err)
		}
		return "", vault.IOFailure("unable to read vault file", err)
	}
	if !info.Mode().IsRegular() {
		return "", vault.NewError(vault.ErrPathSafety, "invalid vault file", nil)
	}
	return resolved, nil
}

// Remove deletes a vault file after it passes Resolve.
func (p Paths) Remove(target string) error {
	resolved, err := p.Resolve(target)
	if err != nil {
		return err
	}
	if err := os.Remove(resolved); err != nil {
		return vault.IOFailure("unable to delete vault file", err)
	}
	_ = syncDir(filepath.Dir(resolved))
	return nil
}

// Export copies a vault file that passes Resolve to destination, creating
// destination's parent directories as needed.
func (p Paths) Export(source, destination string) error {
	if strings.TrimSpace(destination) == "" {
		return vault.Validation("destination path is required")
	}
	resolved, err := p.Resolve(source)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return vault.IOFailure("unable to read vault file", err)
	}
	if err := os.MkdirAll(filepath.Dir(destination), 0o700); err != nil {
		return vault.IOFailure("unable to create destination directory", err)
	}
	if err := atomicWriteFile(destination, data, 0o600); err != nil {
		return vault.IOFailure("unable to export vault file", err)
	}
	return nil
}

// Import copies an external vault file into the directory after checking
// that it parses as an envelope. The file is stored under its vault name,
// suffixed -2, -3, ... when that name is taken. Callers serialize imports.
func (p Paths) Import(source string) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", vault.Validation("source path is required")
	}
	data, err := os.ReadFile(source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", vault.NewError(vault.ErrNotFound, "vault file not found", err)
		}
		return "", vault.NewError(vault.ErrFormat, "unable to read vault file from disk", err)
	}
	env, err := vault.DecodeEnvelope(data)
	if err != nil {
		return "", err
	}

	if err := p.ensureDir(); err != nil {
		return "", vault.IOFailure("unable to create vault directory", err)
	}

	base := slug(env.VaultName)
	target := filepath.Join(p.Dir, base+Extension)
	for n := 2; ; n++ {
		if _, err := os.Lstat(target); errors.Is(err, fs.ErrNotExist) {
			break
		} else if err != nil {
			return "", vault.IOFailure("unable to inspect vault directory", err)
		}
		target = filepath.Join(p.Dir, fmt.Sprintf("%s-%d%s", base, n, Extension))
	}

	if err := atomicWriteFile(target, data, 0o600); err != nil {
		return "", vault.IOFailure("unable to import vault file", err)
	}
	return target, nil
}

// Exists reports whether path names an existing file.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// canonical resolves symlinks in path. When path does not exist, the nearest
// existing ancestor is resolved and the remainder appended unchanged.
func canonical(path string) (string, error) {
	path = filepath.Clean(path)
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	parent := filepath.Dir(path)
	if parent == path {
		return path, nil
	}
	base, err := canonical(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(base, filepath.Base(path)), nil
}

func within(dir, target string) bool {
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == "." || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".peka-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}
	committed = true

	_ = syncDir(dir)
	return nil
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
