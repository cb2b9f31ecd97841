package vault

import "time"

// Credential is one stored login. The password sits in cleartext inside the
// already-encrypted payload.
type Credential struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Folder groups credentials. Secure folders carry a PIN hash; others never do.
type Folder struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Secure      bool         `json:"secure"`
	PINHash     string       `json:"pinHash,omitempty"`
	Credentials []Credential `json:"credentials"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Payload is the decrypted vault. It only ever lives for one operation.
type Payload struct {
	VaultName string   `json:"vaultName"`
	Folders   []Folder `json:"folders"`
}

// FindFolder returns the folder with id, or nil.
func (p *Payload) FindFolder(id string) *Folder {
	for i := range p.Folders {
		if p.Folders[i].ID == id {
			return &p.Folders[i]
		}
	}
	return nil
}

// RemoveFolder deletes the folder with id and reports whether it existed.
func (p *Payload) RemoveFolder(id string) bool {
	for i := range p.Folders {
		if p.Folders[i].ID == id {
			p.Folders = append(p.Folders[:i], p.Folders[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveCredential deletes the credential with id and reports whether it existed.
func (f *Folder) RemoveCredential(id string) bool {
	for i := range f.Credentials {
		if f.Credentials[i].ID == id {
			f.Credentials = append(f.Credentials[:i], f.Credentials[i+1:]...)
			return true
		}
	}
	return false
}

// PublicCredential is a credential as returned to callers.
type PublicCredential struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PublicFolder is a folder as returned to callers. It has no PIN hash field.
type PublicFolder struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Secure      bool               `json:"secure"`
	Credentials []PublicCredential `json:"credentials"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// Contents is the redacted view of a payload.
type Contents struct {
	VaultName string         `json:"vaultName"`
	Folders   []PublicFolder `json:"folders"`
}

// Public builds the redacted view of p.
func (p *Payload) Public() Contents {
	out := Contents{
		VaultName: p.VaultName,
		Folders:   make([]PublicFolder, 0, len(p.Folders)),
	}
	for _, f := range p.Folders {
		pf := PublicFolder{
			ID:          f.ID,
			Name:        f.Name,
			Secure:      f.Secure,
			Credentials: make([]PublicCredential, 0, len(f.Credentials)),
			CreatedAt:   f.CreatedAt,
			UpdatedAt:   f.UpdatedAt,
		}
		for _, c := range f.Credentials {
			pf.Credentials = append(pf.Credentials, PublicCredential(c))
		}
		out.Folders = append(out.Folders, pf)
	}
	return out
}

// Summary identifies a vault file without decrypting it.
type Summary struct {
	Path      string `json:"path"`
	VaultName string `json:"vaultName"`
}
