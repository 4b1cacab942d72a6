package jwt

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// GenerateEd25519PEM genera un par nuevo para una app: PKCS#8 (privada) y PKIX (pública).
func GenerateEd25519PEM() (privPEM, pubPEM string, err error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", err
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", "", err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", "", err
	}
	privPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}))
	pubPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}))
	return privPEM, pubPEM, nil
}

// ParsePrivateKeyPEM acepta PKCS#8 (Ed25519/RSA) o PKCS#1 (RSA).
func ParsePrivateKeyPEM(s string) (crypto.Signer, error) {
	block, _ := pem.Decode([]byte(s))
	if block == nil {
		return nil, errors.New("jwt: private key: no PEM block")
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwt: private key: %w", err)
		}
		switch k := k.(type) {
		case ed25519.PrivateKey:
			return k, nil
		case *rsa.PrivateKey:
			return k, nil
		}
		return nil, fmt.Errorf("jwt: private key: unsupported type %T", k)
	}
	return nil, fmt.Errorf("jwt: private key: unsupported PEM type %q", block.Type)
}

// ParsePublicKeyPEM acepta PKIX (Ed25519/RSA) o PKCS#1 (RSA).
func ParsePublicKeyPEM(s string) (crypto.PublicKey, error) {
	block, _ := pem.Decode([]byte(s))
	if block == nil {
		return nil, errors.New("jwt: public key: no PEM block")
	}
	switch block.Type {
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	case "PUBLIC KEY":
		k, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwt: public key: %w", err)
		}
		switch k := k.(type) {
		case ed25519.PublicKey:
			return k, nil
		case *rsa.PublicKey:
			return k, nil
		}
		return nil, fmt.Errorf("jwt: public key: unsupported type %T", k)
	}
	return nil, fmt.Errorf("jwt: public key: unsupported PEM type %q", block.Type)
}

// methodFor elige el algoritmo según el tipo de clave (pública o privada).
func methodFor(key any) (jwtv5.SigningMethod, error) {
	switch key.(type) {
	case ed25519.PublicKey, ed25519.PrivateKey:
		return jwtv5.SigningMethodEdDSA, nil
	case *rsa.PublicKey, *rsa.PrivateKey:
		return jwtv5.SigningMethodRS256, nil
	}
	return nil, fmt.Errorf("jwt: unsupported key type %T", key)
}
