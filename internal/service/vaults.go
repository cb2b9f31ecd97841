package service

import (
	"strings"
	"time"

	"github.com/nalsan/peka/internal/vault"
	"github.com/nalsan/peka/krypto"
	"github.com/nalsan/peka/store"
)

// CreateResult names the file a new or imported vault was written to.
type CreateResult struct {
	Path string `json:"path"`
}

// CreateVault writes a new, empty vault named name, encrypted under master
// with the service's cost profile.
func (s *Service) CreateVault(name, master string) (res CreateResult, err error) {
	started := time.Now()
	name = strings.TrimSpace(name)
	defer func() { err = s.finish(OpCreateVault, res.Path, started, err) }()

	if name == "" {
		return res, vault.Validation("Vault name cannot be empty")
	}
	if strings.TrimSpace(master) == "" {
		return res, vault.Validation("Master password cannot be empty")
	}

	s.names.Lock()
	defer s.names.Unlock()

	path := s.paths.VaultPath(name)
	unlock := s.lock(path)
	defer unlock()

	if store.Exists(path) {
		return res, vault.Validation("a vault with this name already exists")
	}

	pw := []byte(master)
	defer krypto.Wipe(pw)

	payload := vault.Payload{VaultName: name, Folders: []vault.Folder{}}
	env, err := vault.Seal(payload, pw, vault.NewKDFConfig(s.kdf))
	if err != nil {
		return res, err
	}
	if err := store.WriteEnvelope(path, env); err != nil {
		return res, err
	}
	return CreateResult{Path: path}, nil
}

// OpenVault decrypts the vault at path and returns its redacted contents.
func (s *Service) OpenVault(path, master string) (out vault.Contents, err error) {
	started := time.Now()
	defer func() { err = s.finish(OpOpenVault, path, started, err) }()

	if strings.TrimSpace(path) == "" {
		return out, vault.Validation("vault path is required")
	}

	unlock := s.lock(path)
	defer unlock()

	_, payload, err := s.unseal(path, master)
	if err != nil {
		return out, err
	}
	return payload.Public(), nil
}

// ListVaults reports every parseable vault file in the directory.
func (s *Service) ListVaults() (out []vault.Summary, err error) {
	started := time.Now()
	defer func() { err = s.finish(OpListVaults, "", started, err) }()
	return s.paths.List()
}

// DeleteVault removes the vault file at path after the path-safety check.
func (s *Service) DeleteVault(path string) (err error) {
	started := time.Now()
	defer func() { err = s.finish(OpDeleteVault, path, started, err) }()

	unlock := s.lock(path)
	defer unlock()
	return s.paths.Remove(path)
}

// ExportVaultFile copies the vault at source to destination after the
// path-safety check on source.
func (s *Service) ExportVaultFile(source, destination string) (err error) {
	started := time.Now()
	defer func() { err = s.finish(OpExportVault, source, started, err) }()

	unlock := s.lock(source)
	defer unlock()
	return s.paths.Export(source, destination)
}

// ImportVault copies an external vault file into the vault directory. The
// file is checked to be an envelope but is not decrypted.
func (s *Service) ImportVault(source string) (res CreateResult, err error) {
	started := time.Now()
	defer func() { err = s.finish(OpImportVault, res.Path, started, err) }()

	s.names.Lock()
	defer s.names.Unlock()

	path, err := s.paths.Import(source)
	if err != nil {
		return res, err
	}
	return CreateResult{Path: path}, nil
}

// unseal reads and decrypts path. Callers hold the path lock.
func (s *Service) unseal(path, master string) (vault.Envelope, vault.Payload, error) {
	env, err := store.ReadEnvelope(path)
	if err != nil {
		return vault.Envelope{}, vault.Payload{}, err
	}

	pw := []byte(master)
	defer krypto.Wipe(pw)

	payload, err := vault.Unseal(env, pw)
	if err != nil {
		return vault.Envelope{}, vault.Payload{}, err
	}
	return env, payload, nil
}

// mutate is the read-modify-write cycle shared by folder and credential
// edits. The envelope's KDF block is reused as-is; salt and nonce are fresh.
// Nothing is written unless apply and sealing both succeed.
func (s *Service) mutate(path, master string, apply func(p *vault.Payload, now time.Time) error) (vault.Contents, error) {
	if strings.TrimSpace(path) == "" {
		return vault.Contents{}, vault.Validation("vault path is required")
	}

	unlock := s.lock(path)
	defer unlock()

	env, err := store.ReadEnvelope(path)
	if err != nil {
		return vault.Contents{}, err
	}

	pw := []byte(master)
	defer krypto.Wipe(pw)

	payload, err := vault.Unseal(env, pw)
	if err != nil {
		return vault.Contents{}, err
	}

	if err := apply(&payload, s.now().UTC()); err != nil {
		return vault.Contents{}, err
	}

	sealed, err := vault.Seal(payload, pw, env.KDF)
	if err != nil {
		return vault.Contents{}, err
	}
	if err := store.WriteEnvelope(path, sealed); err != nil {
		return vault.Contents{}, err
	}
	return payload.Public(), nil
}
