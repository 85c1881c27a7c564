package security

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
)

// KeyMaterial holds the payment relay's RSA key. The private half is only
// present for tools and tests that produce signatures.
type KeyMaterial struct {
	RSAPub *rsa.PublicKey
	RSAPri *rsa.PrivateKey
}

// LoadKeyMaterial accepts inline PEM or a path to a PEM file for either key.
func LoadKeyMaterial(pub, pri string) (*KeyMaterial, error) {
	if pub == "" {
		return nil, errors.New("missing rsa public key pem")
	}
	block, err := pemBlock(pub)
	if err != nil {
		return nil, fmt.Errorf("webhook public key: %w", err)
	}
	km := &KeyMaterial{}
	if km.RSAPub, err = publicKey(block); err != nil {
		return nil, fmt.Errorf("webhook public key: %w", err)
	}

	if pri != "" {
		if block, err = pemBlock(pri); err != nil {
			return nil, fmt.Errorf("webhook private key: %w", err)
		}
		if km.RSAPri, err = privateKey(block); err != nil {
			return nil, fmt.Errorf("webhook private key: %w", err)
		}
	}
	return km, nil
}

func pemBlock(src string) (*pem.Block, error) {
	raw := []byte(src)
	if !strings.Contains(src, "-----BEGIN") {
		b, err := os.ReadFile(src)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("no pem block")
	}
	return block, nil
}

func publicKey(block *pem.Block) (*rsa.PublicKey, error) {
	if block.Type == "RSA PUBLIC KEY" {
		return x509.ParsePKCS1PublicKey(block.Bytes)
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	if rk, ok := key.(*rsa.PublicKey); ok {
		return rk, nil
	}
	return nil, fmt.Errorf("%T is not an rsa key", key)
}

func privateKey(block *pem.Block) (*rsa.PrivateKey, error) {
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		if rk, ok := key.(*rsa.PrivateKey); ok {
			return rk, nil
		}
		return nil, fmt.Errorf("%T is not an rsa key", key)
	}
	return nil, fmt.Errorf("unsupported private key block %q", block.Type)
}
