// Package filerepo stores session tokens in a single passphrase-encrypted file.
//
// Layout: magic (4 bytes) | argon2id salt (16) | XChaCha20-Poly1305 nonce (24) | sealed JSON map.
// Every batch rewrites the file through a temp file and rename, so readers
// only ever observe a complete batch.
package filerepo

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/brainbox-app/brainbox/token"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrPassphraseRequired = errors.New("token store passphrase is required")
	ErrDecrypt            = errors.New("token store could not be decrypted")
	ErrCorrupt            = errors.New("token store file is corrupt")
)

var fileMagic = []byte("BBX1")

const (
	saltLength   = 16
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

var _ token.Repo = (*FileRepo)(nil)

type FileRepo struct {
	path   string
	key    []byte
	salt   []byte
	values map[string]string
	lock   sync.RWMutex
}

// Open loads the store at path, creating an empty one in memory when the file does not exist yet.
// The file is only written on the first Apply.
func Open(path, passphrase string) (*FileRepo, error) {
	if passphrase == "" {
		return nil, ErrPassphraseRequired
	}

	fr := &FileRepo{
		path:   path,
		values: make(map[string]string),
	}

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fr.salt = make([]byte, saltLength)
		if _, err := rand.Read(fr.salt); err != nil {
			return nil, fmt.Errorf("[filerepo.Open] rand.Read: %w", err)
		}
		fr.key = deriveKey(passphrase, fr.salt)
		return fr, nil
	case err != nil:
		return nil, fmt.Errorf("[filerepo.Open] read %s: %w", path, err)
	}

	if err := fr.decode(content, passphrase); err != nil {
		return nil, err
	}
	return fr, nil
}

func (fr *FileRepo) Get(_ context.Context, key string) (string, bool, error) {
	fr.lock.RLock()
	defer fr.lock.RUnlock()
	value, ok := fr.values[key]
	return value, ok, nil
}

func (fr *FileRepo) Apply(_ context.Context, batch token.Batch) error {
	fr.lock.Lock()
	defer fr.lock.Unlock()

	next := maps.Clone(fr.values)
	for k, v := range batch.Set {
		next[k] = v
	}
	for _, k := range batch.Delete {
		delete(next, k)
	}

	if err := fr.write(next); err != nil {
		return err
	}
	fr.values = next
	return nil
}

func (fr *FileRepo) Path() string {
	return fr.path
}

func (fr *FileRepo) decode(content []byte, passphrase string) error {
	headerLength := len(fileMagic) + saltLength + chacha20poly1305.NonceSizeX
	if len(content) < headerLength || !bytes.Equal(content[:len(fileMagic)], fileMagic) {
		return ErrCorrupt
	}

	fr.salt = bytes.Clone(content[len(fileMagic) : len(fileMagic)+saltLength])
	nonce := content[len(fileMagic)+saltLength : headerLength]
	fr.key = deriveKey(passphrase, fr.salt)

	aead, err := chacha20poly1305.NewX(fr.key)
	if err != nil {
		return fmt.Errorf("[filerepo.decode] NewX: %w", err)
	}
	plain, err := aead.Open(nil, nonce, content[headerLength:], fileMagic)
	if err != nil {
		return ErrDecrypt
	}
	if err := json.Unmarshal(plain, &fr.values); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if fr.values == nil {
		fr.values = make(map[string]string)
	}
	return nil
}

func (fr *FileRepo) write(values map[string]string) error {
	plain, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("[filerepo.write] marshal: %w", err)
	}

	aead, err := chacha20poly1305.NewX(fr.key)
	if err != nil {
		return fmt.Errorf("[filerepo.write] NewX: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("[filerepo.write] rand.Read: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(fileMagic)
	buf.Write(fr.salt)
	buf.Write(nonce)
	buf.Write(aead.Seal(nil, nonce, plain, fileMagic))

	dir := filepath.Dir(fr.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("[filerepo.write] mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("[filerepo.write] create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("[filerepo.write] chmod: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("[filerepo.write] write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("[filerepo.write] sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[filerepo.write] close: %w", err)
	}
	if err := os.Rename(tmpName, fr.path); err != nil {
		return fmt.Errorf("[filerepo.write] rename: %w", err)
	}
	return nil
}

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
}
