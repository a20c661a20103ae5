package utils

import (
	"crypto/sha256"
	"fmt"
	"io"

	util "github.com/ZBCccc/Aura/Util"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	// DigestSize is the output length of PrfF and Hash.
	DigestSize = 32
	// IVSize is the XChaCha20-Poly1305 nonce length.
	IVSize = chacha20poly1305.NonceSizeX
	// Overhead is the authentication tag appended to every ciphertext.
	Overhead = chacha20poly1305.Overhead
)

// PrfF is HMAC-SHA256 keyed with key.
func PrfF(key, message []byte) []byte {
	return util.HmacDigest(message, key)
}

func Hash(message []byte) []byte {
	return util.Sha256Digest(message)
}

// KeySet is the client secret of one index instance. It never leaves the client.
type KeySet struct {
	PRFKey []byte
	EncKey []byte
}

// CheckSecParam accepts the supported key lengths in bits.
func CheckSecParam(secParam int) error {
	switch secParam {
	case 128, 192, 256:
		return nil
	}
	return fmt.Errorf("%w: %d bits", ErrInvalidSecurityParameter, secParam)
}

// GenKeySet draws a secParam-bit seed from rng and expands it into the PRF key
// and the encryption key.
func GenKeySet(rng io.Reader, secParam int) (KeySet, error) {
	if err := CheckSecParam(secParam); err != nil {
		return KeySet{}, err
	}
	seed := make([]byte, secParam/8)
	if _, err := io.ReadFull(rng, seed); err != nil {
		return KeySet{}, fmt.Errorf("read key seed: %w", err)
	}

	expand := func(info string) ([]byte, error) {
		key := make([]byte, secParam/8)
		if _, err := io.ReadFull(hkdf.New(sha256.New, seed, nil, []byte(info)), key); err != nil {
			return nil, err
		}
		return key, nil
	}
	prfKey, err := expand("rangesse prf")
	if err != nil {
		return KeySet{}, fmt.Errorf("expand prf key: %w", err)
	}
	encKey, err := expand("rangesse enc")
	if err != nil {
		return KeySet{}, fmt.Errorf("expand enc key: %w", err)
	}
	return KeySet{PRFKey: prfKey, EncKey: encKey}, nil
}

// NewIV reads a fresh nonce from rng.
func NewIV(rng io.Reader) ([]byte, error) {
	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(rng, iv); err != nil {
		return nil, fmt.Errorf("read iv: %w", err)
	}
	return iv, nil
}

// Seal encrypts plaintext under a 32-byte key, binding ad to the ciphertext.
func Seal(key, iv, plaintext, ad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, iv, plaintext, ad), nil
}

func Open(key, iv, ciphertext, ad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, iv, ciphertext, ad)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
	}
	return plaintext, nil
}
