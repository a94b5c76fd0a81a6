package credentials

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"

	"sdcli/internal/bridge"
	"sdcli/internal/config"
	"sdcli/internal/model"
)

// AgeStore implements bridge.CredentialStore with one age-encrypted file per
// credential ref, under a per-user directory with owner-only permissions.
// Entries are encrypted to an X25519 recipient; the matching identity lives
// on the same machine (mode 0600) because bridge operations must run without
// prompting. The keys are generated once by `sdcli config init`.
type AgeStore struct {
	dir           string
	recipientPath string
	identityPath  string
}

var _ bridge.CredentialStore = (*AgeStore)(nil)

// NewAgeStore creates a new AgeStore from configuration.
func NewAgeStore(cfg config.CredentialsConfig) *AgeStore {
	return &AgeStore{
		dir:           cfg.Dir,
		recipientPath: cfg.RecipientPath,
		identityPath:  cfg.IdentityPath,
	}
}

// Setup generates a new X25519 key pair and writes the recipient and
// identity files. It refuses to overwrite an existing key pair.
func (s *AgeStore) Setup() error {
	if s.IsConfigured() {
		return fmt.Errorf("credential keys already exist at %s", filepath.Dir(s.identityPath))
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating key pair: %w", err)
	}

	for _, p := range []string{s.recipientPath, s.identityPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
			return fmt.Errorf("creating key directory: %w", err)
		}
	}

	if err := os.WriteFile(s.recipientPath, []byte(identity.Recipient().String()+"\n"), 0644); err != nil {
		return fmt.Errorf("writing recipient: %w", err)
	}
	if err := os.WriteFile(s.identityPath, []byte(identity.String()+"\n"), 0600); err != nil {
		return fmt.Errorf("writing identity: %w", err)
	}

	return nil
}

// IsConfigured returns true if both key files exist.
func (s *AgeStore) IsConfigured() bool {
	if _, err := os.Stat(s.recipientPath); err != nil {
		return false
	}
	if _, err := os.Stat(s.identityPath); err != nil {
		return false
	}
	return true
}

// entry is the on-disk payload, marshaled before encryption.
type entry struct {
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
}

func (s *AgeStore) Put(ref string, creds *model.Credentials) error {
	recipient, err := s.loadRecipient()
	if err != nil {
		return &bridge.StorageError{Store: "credentials", Op: "put", Err: err}
	}

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return &bridge.StorageError{Store: "credentials", Op: "put", Err: err}
	}

	plaintext, err := json.Marshal(entry{
		AccessKeyID:     creds.AccessKeyID,
		SecretAccessKey: creds.SecretAccessKey,
	})
	if err != nil {
		return &bridge.StorageError{Store: "credentials", Op: "put", Err: err}
	}

	var ciphertext bytes.Buffer
	w, err := age.Encrypt(&ciphertext, recipient)
	if err != nil {
		return &bridge.StorageError{Store: "credentials", Op: "put", Err: err}
	}
	if _, err := w.Write(plaintext); err != nil {
		return &bridge.StorageError{Store: "credentials", Op: "put", Err: err}
	}
	if err := w.Close(); err != nil {
		return &bridge.StorageError{Store: "credentials", Op: "put", Err: err}
	}

	if err := os.WriteFile(s.entryPath(ref), ciphertext.Bytes(), 0600); err != nil {
		return &bridge.StorageError{Store: "credentials", Op: "put", Err: err}
	}
	return nil
}

func (s *AgeStore) Get(ref string) (*model.Credentials, error) {
	data, err := os.ReadFile(s.entryPath(ref))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // Not found
		}
		return nil, &bridge.StorageError{Store: "credentials", Op: "get", Err: err}
	}

	identity, err := s.loadIdentity()
	if err != nil {
		return nil, &bridge.StorageError{Store: "credentials", Op: "get", Err: err}
	}

	r, err := age.Decrypt(bytes.NewReader(data), identity)
	if err != nil {
		return nil, &bridge.StorageError{Store: "credentials", Op: "get", Err: err}
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, &bridge.StorageError{Store: "credentials", Op: "get", Err: err}
	}

	var e entry
	if err := json.Unmarshal(plaintext, &e); err != nil {
		return nil, &bridge.StorageError{Store: "credentials", Op: "get", Err: err}
	}

	return &model.Credentials{
		AccessKeyID:     e.AccessKeyID,
		SecretAccessKey: e.SecretAccessKey,
	}, nil
}

func (s *AgeStore) Delete(ref string) error {
	if err := os.Remove(s.entryPath(ref)); err != nil && !os.IsNotExist(err) {
		return &bridge.StorageError{Store: "credentials", Op: "delete", Err: err}
	}
	return nil
}

func (s *AgeStore) entryPath(ref string) string {
	return filepath.Join(s.dir, ref+".age")
}

// loadRecipient reads the public recipient from disk and parses it.
func (s *AgeStore) loadRecipient() (age.Recipient, error) {
	data, err := os.ReadFile(s.recipientPath)
	if err != nil {
		return nil, fmt.Errorf("reading recipient (run `sdcli config init` first): %w", err)
	}

	recipients, err := age.ParseRecipients(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing recipient: %w", err)
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no recipients found in %s", s.recipientPath)
	}
	return recipients[0], nil
}

// loadIdentity reads the private identity from disk and parses it.
func (s *AgeStore) loadIdentity() (age.Identity, error) {
	data, err := os.ReadFile(s.identityPath)
	if err != nil {
		return nil, fmt.Errorf("reading identity (run `sdcli config init` first): %w", err)
	}

	identities, err := age.ParseIdentities(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("no identities found in %s", s.identityPath)
	}
	return identities[0], nil
}
