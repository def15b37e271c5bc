// Package crypto seals secrets kept on disk: the service token in the local
// store, and password-protected export archives. Both use AES-256-GCM.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"os"

	"golang.org/x/crypto/pbkdf2"

	"github.com/kimhsiao/feedbacksync/internal/errors"
)

const (
	// PasswordMinLength is the minimum archive password length.
	PasswordMinLength = 8
	// SaltLength is the salt size for password key derivation.
	SaltLength = 32
	// KDFIterations is the PBKDF2-SHA256 iteration count.
	KDFIterations = 100000

	archiveMagic   = "FBSARC"
	archiveVersion = 1
)

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInternal, "failed to create cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInternal, "failed to create GCM", err)
	}
	return gcm, nil
}

// Encrypt encrypts plaintext under key, which is hashed to 32 bytes. The
// result is base64 of nonce followed by ciphertext.
func Encrypt(plaintext, key []byte) (string, error) {
	derived := sha256.Sum256(key)
	gcm, err := newGCM(derived[:])
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Wrap(errors.ErrInternal, "failed to generate nonce", err)
	}
	return base64.StdEncoding.EncodeToString(gcm.Seal(nonce, nonce, plaintext, nil)), nil
}

// Decrypt reverses Encrypt. A wrong key or tampered input is ErrInvalid.
func Decrypt(ciphertext string, key []byte) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, errors.New(errors.ErrInvalid, "invalid ciphertext")
	}
	derived := sha256.Sum256(key)
	gcm, err := newGCM(derived[:])
	if err != nil {
		return nil, err
	}

	if len(data) < gcm.NonceSize() {
		return nil, errors.New(errors.ErrInvalid, "invalid ciphertext")
	}
	nonce, body := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, errors.New(errors.ErrInvalid, "invalid ciphertext")
	}
	return plaintext, nil
}

// MachineKey derives a key bound to this host and scope, such as the data
// directory. It keeps a copied store from exposing its token elsewhere; it
// is not a substitute for an OS key store.
func MachineKey(scope string) []byte {
	host, _ := os.Hostname()
	if host == "" {
		host = "feedbacksync-default-host"
	}
	sum := sha256.Sum256([]byte("feedbacksync:" + host + ":" + scope))
	return sum[:]
}

// SealString encrypts s under key. Empty input stays empty.
func SealString(s string, key []byte) (string, error) {
	if s == "" {
		return "", nil
	}
	return Encrypt([]byte(s), key)
}

// OpenString reverses SealString.
func OpenString(sealed string, key []byte) (string, error) {
	if sealed == "" {
		return "", nil
	}
	b, err := Decrypt(sealed, key)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// =====================================================
// Password-protected archives
// =====================================================

func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, KDFIterations, 32, sha256.New)
}

// EncryptArchive encrypts data with a key derived from password. The output
// is magic, version, salt, nonce, ciphertext. The password is never stored.
func EncryptArchive(data []byte, password string) ([]byte, error) {
	if len(password) < PasswordMinLength {
		return nil, errors.Newf(errors.ErrValidation, "password must be at least %d characters", PasswordMinLength)
	}

	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(errors.ErrInternal, "failed to generate salt", err)
	}
	gcm, err := newGCM(deriveKey(password, salt))
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(errors.ErrInternal, "failed to generate nonce", err)
	}

	var buf bytes.Buffer
	buf.WriteString(archiveMagic)
	buf.WriteByte(archiveVersion)
	buf.Write(salt)
	buf.Write(nonce)
	buf.Write(gcm.Seal(nil, nonce, data, nil))
	return buf.Bytes(), nil
}

// IsEncryptedArchive reports whether data starts with the archive header.
func IsEncryptedArchive(data []byte) bool {
	return bytes.HasPrefix(data, []byte(archiveMagic))
}

// DecryptArchive reverses EncryptArchive. A wrong password is
// ErrUnauthorized; a malformed header is ErrInvalid.
func DecryptArchive(data []byte, password string) ([]byte, error) {
	if !IsEncryptedArchive(data) {
		return nil, errors.New(errors.ErrInvalid, "not an encrypted archive")
	}
	rest := data[len(archiveMagic):]
	if len(rest) < 1 || rest[0] != archiveVersion {
		return nil, errors.New(errors.ErrInvalid, "unsupported archive version")
	}
	rest = rest[1:]
	if len(rest) < SaltLength {
		return nil, errors.New(errors.ErrInvalid, "truncated archive header")
	}
	salt, rest := rest[:SaltLength], rest[SaltLength:]

	gcm, err := newGCM(deriveKey(password, salt))
	if err != nil {
		return nil, err
	}
	if len(rest) < gcm.NonceSize() {
		return nil, errors.New(errors.ErrInvalid, "truncated archive header")
	}
	nonce, body := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, errors.New(errors.ErrUnauthorized, "wrong password or corrupted archive")
	}
	return plaintext, nil
}
