package kvstore

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
)

const sealedPrefix = "sb1:"

// ErrSealed is returned when a sealed value is read without the right secret.
var ErrSealed = errors.New("kvstore: value is sealed with a different or missing secret")

// File persists values as a JSON object in a single file (mode 0600).
// When a secret is configured, values are sealed with NaCl secretbox.
type File struct {
	mu   sync.Mutex
	path string
	key  *[32]byte
}

// NewFile creates a file store at path. An empty secret stores values unsealed.
func NewFile(path, secret string) *File {
	f := &File{path: path}
	if secret != "" {
		k := sha256.Sum256([]byte(secret))
		f.key = &k
	}
	return f
}

func (f *File) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.read()
	if err != nil {
		return "", false, err
	}
	raw, ok := items[key]
	if !ok {
		return "", false, nil
	}
	v, err := f.open(raw)
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (f *File) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.read()
	if err != nil {
		return err
	}
	sealed, err := f.seal(value)
	if err != nil {
		return err
	}
	items[key] = sealed
	return f.write(items)
}

func (f *File) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := items[key]; !ok {
		return nil
	}
	delete(items, key)
	return f.write(items)
}

func (f *File) read() (map[string]string, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	items := map[string]string{}
	if len(strings.TrimSpace(string(b))) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return items, nil
}

// write replaces the file atomically via a temp file in the same directory.
func (f *File) write(items map[string]string) error {
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".kv-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

func (f *File) seal(value string) (string, error) {
	if f.key == nil {
		return value, nil
	}
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(value), &nonce, f.key)
	return sealedPrefix + base64.StdEncoding.EncodeToString(box), nil
}

func (f *File) open(raw string) (string, error) {
	if !strings.HasPrefix(raw, sealedPrefix) {
		return raw, nil
	}
	if f.key == nil {
		return "", ErrSealed
	}
	box, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(raw, sealedPrefix))
	if err != nil || len(box) < 24 {
		return "", ErrSealed
	}
	var nonce [24]byte
	copy(nonce[:], box[:24])
	out, ok := secretbox.Open(nil, box[24:], &nonce, f.key)
	if !ok {
		return "", ErrSealed
	}
	return string(out), nil
}
