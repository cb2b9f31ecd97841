package service

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nalsan/peka/auth"
	"github.com/nalsan/peka/internal/vault"
)

// NewCredential is the caller input for AddCredential.
type NewCredential struct {
	Title    string
	Username string
	Password string
	Notes    string
}

// CreateFolder appends a folder named name. A secure folder needs a four
// digit PIN, stored only as a hash; pin is ignored for other folders.
func (s *Service) CreateFolder(path, master, name string, secure bool, pin string) (out vault.Contents, err error) {
	started := time.Now()
	defer func() { err = s.finish(OpCreateFolder, path, started, err) }()

	name = strings.TrimSpace(name)
	if name == "" {
		return out, vault.Validation("Folder name is required.")
	}
	if secure {
		if err := auth.ValidatePIN(pin); err != nil {
			return out, vault.NewError(vault.ErrValidation, err.Error()+".", err)
		}
	}

	return s.mutate(path, master, func(p *vault.Payload, now time.Time) error {
		folder := vault.Folder{
			ID:          uuid.NewString(),
			Name:        name,
			Secure:      secure,
			Credentials: []vault.Credential{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if secure {
			hash, err := auth.HashPIN(pin)
			if err != nil {
				return vault.NewError(vault.ErrKDF, "unable to hash folder PIN", err)
			}
			folder.PINHash = hash
		}
		p.Folders = append(p.Folders, folder)
		return nil
	})
}

// DeleteFolder removes the folder folderID and everything in it.
func (s *Service) DeleteFolder(path, master, folderID string) (out vault.Contents, err error) {
	started := time.Now()
	defer func() { err = s.finish(OpDeleteFolder, path, started, err) }()

	return s.mutate(path, master, func(p *vault.Payload, _ time.Time) error {
		if !p.RemoveFolder(folderID) {
			return vault.NotFound("Folder not found")
		}
		return nil
	})
}

// AddCredential appends a credential to folderID.
func (s *Service) AddCredential(path, master, folderID string, in NewCredential) (out vault.Contents, err error) {
	started := time.Now()
	defer func() { err = s.finish(OpAddCredential, path, started, err) }()

	if strings.TrimSpace(in.Title) == "" {
		return out, vault.Validation("Username or email is required.")
	}
	if in.Password == "" {
		return out, vault.Validation("Password is required.")
	}

	return s.mutate(path, master, func(p *vault.Payload, now time.Time) error {
		folder := p.FindFolder(folderID)
		if folder == nil {
			return vault.NotFound("Folder not found")
		}
		folder.Credentials = append(folder.Credentials, vault.Credential{
			ID:        uuid.NewString(),
			Title:     in.Title,
			Username:  in.Username,
			Password:  in.Password,
			Notes:     in.Notes,
			CreatedAt: now,
			UpdatedAt: now,
		})
		folder.UpdatedAt = now
		return nil
	})
}

// DeleteCredential removes credentialID from folderID.
func (s *Service) DeleteCredential(path, master, folderID, credentialID string) (out vault.Contents, err error) {
	started := time.Now()
	defer func() { err = s.finish(OpDeleteCredential, path, started, err) }()

	return s.mutate(path, master, func(p *vault.Payload, now time.Time) error {
		folder := p.FindFolder(folderID)
		if folder == nil {
			return vault.NotFound("Folder not found")
		}
		if !folder.RemoveCredential(credentialID) {
			return vault.NotFound("Credential not found")
		}
		folder.UpdatedAt = now
		return nil
	})
}

// VerifyFolderPin checks pin against folderID's stored hash. Folders that are
// not secure always verify. A wrong PIN is (false, nil).
func (s *Service) VerifyFolderPin(path, master, folderID, pin string) (ok bool, err error) {
	started := time.Now()
	defer func() { err = s.finish(OpVerifyFolderPin, path, started, err) }()

	if strings.TrimSpace(path) == "" {
		return false, vault.Validation("vault path is required")
	}

	unlock := s.lock(path)
	defer unlock()

	_, payload, err := s.unseal(path, master)
	if err != nil {
		return false, err
	}

	folder := payload.FindFolder(folderID)
	if folder == nil {
		return false, vault.NotFound("Folder not found")
	}
	if !folder.Secure {
		return true, nil
	}

	ok, err = auth.VerifyPIN(pin, folder.PINHash)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidPINHash) {
			return false, vault.NewError(vault.ErrPayload, "Folder PIN hash is invalid", err)
		}
		return false, vault.NewError(vault.ErrKDF, "unable to verify folder PIN", err)
	}
	return ok, nil
}
