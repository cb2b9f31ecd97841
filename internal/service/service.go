package service

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nalsan/peka/internal/db"
	"github.com/nalsan/peka/internal/vault"
	"github.com/nalsan/peka/krypto"
	"github.com/nalsan/peka/store"
)

// Operation names, used in logs and the journal.
const (
	OpCreateVault      = "create_vault"
	OpOpenVault        = "open_vault"
	OpListVaults       = "list_vaults"
	OpDeleteVault      = "delete_vault"
	OpExportVault      = "export_vault"
	OpImportVault      = "import_vault"
	OpCreateFolder     = "create_folder"
	OpDeleteFolder     = "delete_folder"
	OpAddCredential    = "add_credential"
	OpDeleteCredential = "delete_credential"
	OpVerifyFolderPin  = "verify_folder_pin"
)

// Recorder receives one event per finished operation.
type Recorder interface {
	Record(db.Event) error
	Recent(limit int) ([]db.Event, error)
}

// Service exposes vault operations for the CLI. Every mutation of a vault file
// runs under that file's lock, so callers may use one Service from many
// goroutines. Other processes writing the same files are not coordinated with.
type Service struct {
	paths   store.Paths
	kdf     krypto.KDFParams
	log     zerolog.Logger
	journal Recorder
	now     func() time.Time

	mu    sync.Mutex
	locks map[string]*pathLock

	// names serializes file-name allocation between create and import.
	names sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithJournal records every operation outcome in r.
func WithJournal(r Recorder) Option {
	return func(s *Service) { s.journal = r }
}

// WithKDFParams sets the cost profile written into new vaults. Existing
// vaults keep the profile stored in their file.
func WithKDFParams(p krypto.KDFParams) Option {
	return func(s *Service) { s.kdf = p }
}

// WithClock overrides time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New returns a service bound to the vault directory dir. The directory is
// created lazily on the first write.
func New(dir string, opts ...Option) (*Service, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("vault directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve vault directory: %w", err)
	}

	s := &Service{
		paths: store.Paths{Dir: abs},
		kdf:   krypto.DefaultKDFParams(),
		log:   zerolog.Nop(),
		now:   time.Now,
		locks: make(map[string]*pathLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.kdf.Validate(); err != nil {
		return nil, fmt.Errorf("kdf params: %w", err)
	}
	return s, nil
}

// Dir reports the vault directory.
func (s *Service) Dir() string { return s.paths.Dir }

type pathLock struct {
	mu   sync.Mutex
	refs int
}

// lock takes the single-writer lock for path and returns its release func.
// Entries are dropped from the table once nobody holds or waits on them.
func (s *Service) lock(path string) func() {
	key := lockKey(path)

	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &pathLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

// lockKey resolves symlinks so every alias of a file shares one lock. A file
// that does not exist yet is keyed by its resolved parent directory.
func lockKey(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		return filepath.Join(dir, filepath.Base(abs))
	}
	return abs
}

// finish logs and journals the outcome of op, then hands err back.
func (s *Service) finish(op, path string, started time.Time, err error) error {
	kind := vault.KindName(err)

	var ev *zerolog.Event
	switch {
	case err == nil:
		ev = s.log.Debug()
	case kind == "io" || kind == "internal":
		ev = s.log.Error()
	default:
		ev = s.log.Warn()
	}
	ev = ev.Str("op", op).Dur("took", time.Since(started))
	if path != "" {
		ev = ev.Str("vault", path)
	}
	if err != nil {
		ev = ev.Str("kind", kind)
		var verr *vault.Error
		if errors.As(err, &verr) && verr.Err != nil {
			ev = ev.AnErr("cause", verr.Err)
		}
		ev.Msg(err.Error())
	} else {
		ev.Msg("ok")
	}

	if s.journal != nil {
		rec := db.Event{
			At:        s.now().UTC(),
			Op:        op,
			VaultPath: path,
			Success:   err == nil,
			ErrorKind: kind,
		}
		if jerr := s.journal.Record(rec); jerr != nil {
			s.log.Warn().Err(jerr).Str("op", op).Msg("journal write failed")
		}
	}
	return err
}

// History returns the newest journal events, or none when no journal is set.
func (s *Service) History(limit int) ([]db.Event, error) {
	if s.journal == nil {
		return []db.Event{}, nil
	}
	events, err := s.journal.Recent(limit)
	if err != nil {
		return nil, vault.IOFailure("unable to read operation history", err)
	}
	return events, nil
}
