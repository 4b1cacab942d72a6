package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	nonceSizeGCM      = 12  // AES-GCM nonce size recomendado (96 bits)
	requiredKeyLength = 32  // 32 bytes => AES-256
	sep               = "|" // nonce|ciphertext (ambos en base64)
)

// ErrMalformed: el texto sellado no tiene el formato esperado.
var ErrMalformed = errors.New("secretbox: malformed sealed value")

// Box sella secretos con AES-256-GCM. Cada "scope" (ej: el id de la app)
// deriva su propia subclave vía HKDF y se usa como AAD, así un valor sellado
// para una app no abre con el scope de otra.
type Box struct {
	master []byte
}

// New crea un Box a partir de la clave maestra (base64, base64 sin padding o hex).
func New(key string) (*Box, error) {
	k, err := parseKey(key)
	if err != nil {
		return nil, err
	}
	return &Box{master: k}, nil
}

// GenerateKey devuelve una clave maestra nueva en base64.
func GenerateKey() (string, error) {
	k := make([]byte, requiredKeyLength)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(k), nil
}

func parseKey(key string) ([]byte, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("secretbox: master key not set; generate one with: openssl rand -base64 32")
	}
	if b, err := base64.StdEncoding.DecodeString(key); err == nil && len(b) == requiredKeyLength {
		return b, nil
	}
	if b, err := base64.RawStdEncoding.DecodeString(key); err == nil && len(b) == requiredKeyLength {
		return b, nil
	}
	if len(key) == 2*requiredKeyLength {
		if b, err := hex.DecodeString(key); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("secretbox: master key must decode to %d bytes", requiredKeyLength)
}

func (b *Box) aead(scope string) (cipher.AEAD, error) {
	sub := make([]byte, requiredKeyLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, b.master, nil, []byte("hellobroker/secretbox/"+scope)), sub); err != nil {
		return nil, fmt.Errorf("secretbox: derive key: %w", err)
	}
	block, err := aes.NewCipher(sub)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Seal cifra plainText para scope y devuelve base64(nonce)|base64(ciphertext).
func (b *Box) Seal(scope, plainText string) (string, error) {
	g, err := b.aead(scope)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, nonceSizeGCM)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce random: %w", err)
	}
	ct := g.Seal(nil, nonce, []byte(plainText), []byte(scope))
	return base64.StdEncoding.EncodeToString(nonce) + sep + base64.StdEncoding.EncodeToString(ct), nil
}

// Open descifra un valor producido por Seal con el mismo scope.
func (b *Box) Open(scope, sealed string) (string, error) {
	nonceB64, ctB64, ok := strings.Cut(sealed, sep)
	if !ok {
		return "", ErrMalformed
	}
	nonce, err := base64.StdEncoding.DecodeString(nonceB64)
	if err != nil || len(nonce) != nonceSizeGCM {
		return "", ErrMalformed
	}
	ct, err := base64.StdEncoding.DecodeString(ctB64)
	if err != nil {
		return "", ErrMalformed
	}
	g, err := b.aead(scope)
	if err != nil {
		return "", err
	}
	pt, err := g.Open(nil, nonce, ct, []byte(scope))
	if err != nil {
		return "", fmt.Errorf("gcm auth/decrypt: %w", err)
	}
	return string(pt), nil
}
