package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 100000
	saltSize         = 32
	keySize          = 32 // AES-256
)

// FallbackBackend keeps passwords in an AES-GCM encrypted file, grouped
// by namespace, for hosts without a usable OS credential store
type FallbackBackend struct {
	filepath   string
	key        []byte
	namespaces map[string]map[string]string
	mu         sync.RWMutex
}

type encryptedData struct {
	Salt   []byte `json:"salt"`
	Nonce  []byte `json:"nonce"`
	Cipher []byte `json:"cipher"`
}

// NewFallbackBackend creates a new fallback backend with encrypted file storage
func NewFallbackBackend() Backend {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return NewFallbackBackendWithPath(filepath.Join(homeDir, "."+serviceName, "secrets.enc"))
}

// NewFallbackBackendWithPath creates a new fallback backend with a custom storage path
func NewFallbackBackendWithPath(storagePath string) Backend {
	_ = os.MkdirAll(filepath.Dir(storagePath), 0700)

	backend := &FallbackBackend{
		filepath:   storagePath,
		key:        deriveKey(),
		namespaces: make(map[string]map[string]string),
	}

	// an unreadable store behaves as empty until the next Store rewrites it
	_ = backend.load()

	return backend
}

// Store saves the password of ref and rewrites the file
func (f *FallbackBackend) Store(ref Reference, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	ns, ok := f.namespaces[ref.Namespace]
	if !ok {
		ns = make(map[string]string)
		f.namespaces[ref.Namespace] = ns
	}
	ns[ref.Key] = password
	return f.save()
}

// Lookup returns the password of ref
func (f *FallbackBackend) Lookup(ref Reference) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	value, ok := f.namespaces[ref.Namespace][ref.Key]
	if !ok {
		return "", ErrSecretNotFound
	}
	return value, nil
}

// Remove deletes ref; the file is only rewritten when something changed
func (f *FallbackBackend) Remove(ref Reference) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	ns, ok := f.namespaces[ref.Namespace]
	if !ok {
		return nil
	}
	if _, ok := ns[ref.Key]; !ok {
		return nil
	}
	delete(ns, ref.Key)
	if len(ns) == 0 {
		delete(f.namespaces, ref.Namespace)
	}
	return f.save()
}

// References returns every stored reference
func (f *FallbackBackend) References() ([]Reference, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var refs []Reference
	for namespace, keys := range f.namespaces {
		for key := range keys {
			refs = append(refs, Reference{Namespace: namespace, Key: key})
		}
	}
	return refs, nil
}

func (f *FallbackBackend) save() error {
	data, err := json.Marshal(f.namespaces)
	if err != nil {
		return err
	}

	sealed, err := f.seal(data)
	if err != nil {
		return err
	}

	return os.WriteFile(f.filepath, sealed, 0600)
}

func (f *FallbackBackend) load() error {
	data, err := os.ReadFile(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	plaintext, err := f.open(data)
	if err != nil {
		return err
	}

	return json.Unmarshal(plaintext, &f.namespaces)
}

// aead derives the file key for salt; every save draws a fresh salt
func (f *FallbackBackend) aead(salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(pbkdf2.Key(f.key, salt, pbkdf2Iterations, keySize, sha256.New))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (f *FallbackBackend) seal(plaintext []byte) ([]byte, error) {
	envelope := encryptedData{Salt: make([]byte, saltSize)}
	if _, err := io.ReadFull(rand.Reader, envelope.Salt); err != nil {
		return nil, err
	}

	gcm, err := f.aead(envelope.Salt)
	if err != nil {
		return nil, err
	}

	envelope.Nonce = make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, envelope.Nonce); err != nil {
		return nil, err
	}
	envelope.Cipher = gcm.Seal(nil, envelope.Nonce, plaintext, nil)

	return json.Marshal(envelope)
}

func (f *FallbackBackend) open(data []byte) ([]byte, error) {
	var envelope encryptedData
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}

	gcm, err := f.aead(envelope.Salt)
	if err != nil {
		return nil, err
	}
	if len(envelope.Nonce) != gcm.NonceSize() {
		return nil, errors.New("invalid nonce size")
	}

	return gcm.Open(nil, envelope.Nonce, envelope.Cipher, nil)
}

// deriveKey creates a deterministic key from machine-specific data.
// CHOICES_SECRETS_PASSPHRASE, when set, replaces the machine seed.
func deriveKey() []byte {
	seed := os.Getenv("CHOICES_SECRETS_PASSPHRASE")
	if seed == "" {
		homeDir, _ := os.UserHomeDir()
		hostname, _ := os.Hostname()
		seed = homeDir + ":" + hostname + ":" + serviceName + "-secrets"
	}
	return pbkdf2.Key([]byte(seed), []byte(serviceName+"-salt"), pbkdf2Iterations, keySize, sha256.New)
}
