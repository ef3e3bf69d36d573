package credential

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const fileStoreVersion = 1

// scrypt cost; lowered in tests.
var scryptN = 1 << 15

// FileStore persists secrets in a single JSON document on disk, each value
// sealed with XChaCha20-Poly1305 under a key derived from a passphrase. The
// namespaced key is bound as additional data so entries cannot be swapped.
type FileStore struct {
	mu        sync.Mutex
	path      string
	namespace string
	aead      cipherAEAD
	salt      []byte
	entries   map[string]string
}

type cipherAEAD interface {
	NonceSize() int
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
}

type fileStoreDoc struct {
	Version int               `json:"version"`
	Salt    string            `json:"salt"`
	Entries map[string]string `json:"entries"`
}

// ErrBadPassphrase is returned when an existing file cannot be decrypted.
var ErrBadPassphrase = errors.New("credential: passphrase does not match secret file")

// NewFileStore opens (or creates on first write) an encrypted secret file.
func NewFileStore(path, passphrase, namespace string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("credential: file store path is required")
	}
	if passphrase == "" {
		return nil, fmt.Errorf("credential: file store passphrase is required")
	}
	fs := &FileStore{path: path, namespace: namespace, entries: make(map[string]string)}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var doc fileStoreDoc
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("credential: parse %s: %w", path, err)
		}
		salt, err := base64.StdEncoding.DecodeString(doc.Salt)
		if err != nil || len(salt) == 0 {
			return nil, fmt.Errorf("credential: invalid salt in %s", path)
		}
		fs.salt = salt
		if doc.Entries != nil {
			fs.entries = doc.Entries
		}
	case os.IsNotExist(err):
		fs.salt = make([]byte, 16)
		if _, err := rand.Read(fs.salt); err != nil {
			return nil, fmt.Errorf("credential: generate salt: %w", err)
		}
	default:
		return nil, fmt.Errorf("credential: read %s: %w", path, err)
	}

	key, err := scrypt.Key([]byte(passphrase), fs.salt, scryptN, 8, 1, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("credential: derive key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("credential: init cipher: %w", err)
	}
	fs.aead = aead

	// Fail early on a wrong passphrase rather than on the first camera capture.
	for k, v := range fs.entries {
		if _, err := fs.open(k, v); err != nil {
			return nil, ErrBadPassphrase
		}
	}

	log.WithFields(log.Fields{"path": path, "entries": len(fs.entries)}).Debug("secret file opened")
	return fs, nil
}

func (f *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	k, err := namespacedKey(f.namespace, key)
	if err != nil {
		return "", false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	sealed, ok := f.entries[k]
	if !ok {
		return "", false, nil
	}
	plain, err := f.open(k, sealed)
	if err != nil {
		return "", false, err
	}
	return plain, true, nil
}

func (f *FileStore) Set(_ context.Context, key, secret string) error {
	k, err := namespacedKey(f.namespace, key)
	if err != nil {
		return err
	}
	nonce := make([]byte, f.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("credential: nonce: %w", err)
	}
	sealed := f.aead.Seal(nonce, nonce, []byte(secret), []byte(k))

	f.mu.Lock()
	defer f.mu.Unlock()
	prev, had := f.entries[k]
	f.entries[k] = base64.StdEncoding.EncodeToString(sealed)
	if err := f.flushLocked(); err != nil {
		if had {
			f.entries[k] = prev
		} else {
			delete(f.entries, k)
		}
		return err
	}
	return nil
}

func (f *FileStore) Delete(_ context.Context, key string) error {
	k, err := namespacedKey(f.namespace, key)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, had := f.entries[k]
	if !had {
		return nil
	}
	delete(f.entries, k)
	if err := f.flushLocked(); err != nil {
		f.entries[k] = prev
		return err
	}
	return nil
}

func (f *FileStore) open(k, sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("credential: decode %s: %w", k, err)
	}
	ns := f.aead.NonceSize()
	if len(raw) < ns {
		return "", fmt.Errorf("credential: sealed value for %s too short", k)
	}
	plain, err := f.aead.Open(nil, raw[:ns], raw[ns:], []byte(k))
	if err != nil {
		return "", fmt.Errorf("credential: open %s: %w", k, err)
	}
	return string(plain), nil
}

// flushLocked writes the document atomically via rename.
func (f *FileStore) flushLocked() error {
	doc := fileStoreDoc{
		Version: fileStoreVersion,
		Salt:    base64.StdEncoding.EncodeToString(f.salt),
		Entries: f.entries,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("credential: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("credential: create dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("credential: write: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("credential: rename: %w", err)
	}
	return nil
}
