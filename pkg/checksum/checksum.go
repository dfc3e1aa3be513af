// Package checksum implements the gateway's request signature scheme:
// a salted SHA-256 digest encrypted with AES-128-CBC under the merchant key.
package checksum

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

const saltLength = 4

var (
	iv = []byte("@@@@&&&&####$$$$")

	// ErrInvalidKey is returned when the merchant key is not a valid AES-128 key.
	ErrInvalidKey = errors.New("checksum: merchant key must be 16 bytes")

	randReader io.Reader = rand.Reader
)

// Verifier signs and verifies bodies with a single merchant key.
type Verifier struct {
	key []byte
}

func NewVerifier(merchantKey string) (*Verifier, error) {
	if len(merchantKey) != aes.BlockSize {
		return nil, ErrInvalidKey
	}
	return &Verifier{key: []byte(merchantKey)}, nil
}

func (v *Verifier) Sign(body string) (string, error) {
	return Sign(body, string(v.key))
}

func (v *Verifier) Verify(body, signature string) bool {
	return Verify(body, string(v.key), signature)
}

// Sign produces a fresh signature for body. Two calls with the same input
// return different signatures because the salt is random.
func Sign(body, merchantKey string) (string, error) {
	salt, err := newSalt()
	if err != nil {
		return "", err
	}
	return encrypt(digest(body, salt), merchantKey)
}

// Verify reports whether signature was produced by Sign for body under merchantKey.
func Verify(body, merchantKey, signature string) bool {
	if signature == "" {
		return false
	}
	plain, err := decrypt(signature, merchantKey)
	if err != nil || len(plain) <= saltLength {
		return false
	}
	salt := plain[len(plain)-saltLength:]
	expected := digest(body, salt)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(plain)) == 1
}

func digest(body, salt string) string {
	sum := sha256.Sum256([]byte(body + "|" + salt))
	return hex.EncodeToString(sum[:]) + salt
}

func newSalt() (string, error) {
	buf := make([]byte, 3)
	if _, err := io.ReadFull(randReader, buf); err != nil {
		return "", fmt.Errorf("checksum: generate salt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

func encrypt(plain, merchantKey string) (string, error) {
	block, err := newBlock(merchantKey)
	if err != nil {
		return "", err
	}
	padded := pkcs7Pad([]byte(plain), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return base64.StdEncoding.EncodeToString(out), nil
}

func decrypt(encoded, merchantKey string) (string, error) {
	block, err := newBlock(merchantKey)
	if err != nil {
		return "", err
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("checksum: decode signature: %w", err)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", errors.New("checksum: signature is not block aligned")
	}
	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, raw)
	unpadded, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

func newBlock(merchantKey string) (cipher.Block, error) {
	if len(merchantKey) != aes.BlockSize {
		return nil, ErrInvalidKey
	}
	return aes.NewCipher([]byte(merchantKey))
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("checksum: invalid padding")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errors.New("checksum: invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("checksum: invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
