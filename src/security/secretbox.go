// Package security keeps the venue API secret encrypted at rest.
package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

var (
	ErrMissingKey = errors.New("credentials key is not set")
	ErrInvalidKey = errors.New("credentials key must be 32 bytes, base64 encoded")
	ErrCorrupted  = errors.New("encrypted value is corrupted or was sealed with another key")
)

// GenerateKey returns a fresh random key in the form ParseKey expects.
func GenerateKey() (string, error) {
	var k [keySize]byte
	if _, err := io.ReadFull(rand.Reader, k[:]); err != nil {
		return "", fmt.Errorf("read random key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(k[:]), nil
}

func ParseKey(encoded string) (*[keySize]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, ErrMissingKey
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(raw) != keySize {
		return nil, ErrInvalidKey
	}
	var k [keySize]byte
	copy(k[:], raw)
	return &k, nil
}

// EncryptString seals plain with the key. Output is base64(nonce || box).
func EncryptString(key, plain string) (string, error) {
	k, err := ParseKey(key)
	if err != nil {
		return "", err
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(plain), &nonce, k)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func DecryptString(key, encoded string) (string, error) {
	k, err := ParseKey(key)
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrCorrupted
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])

	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, k)
	if !ok {
		return "", ErrCorrupted
	}
	return string(plain), nil
}
