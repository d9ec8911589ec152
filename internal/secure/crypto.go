package secure

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// Crypter seals/opens byte payloads with AES-GCM, nonce prepended to the
// ciphertext.
type Crypter struct {
	key []byte
}

func NewCrypter(key string) (*Crypter, error) {
	k := []byte(key)
	if len(k) < 32 {
		return nil, fmt.Errorf("key length must be >= 32 bytes, got %d", len(k))
	}
	return &Crypter{key: k[:32]}, nil
}

func (c *Crypter) Encrypt(data []byte) ([]byte, error) {
	aesgcm, err := c.gcm()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return aesgcm.Seal(nonce, nonce, data, nil), nil
}

func (c *Crypter) Decrypt(data []byte) ([]byte, error) {
	aesgcm, err := c.gcm()
	if err != nil {
		return nil, err
	}
	ns := aesgcm.NonceSize()
	if len(data) < ns {
		return nil, fmt.Errorf("ciphertext too short")
	}
	return aesgcm.Open(nil, data[:ns], data[ns:], nil)
}

func (c *Crypter) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
