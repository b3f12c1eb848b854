package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	nonceCharset       = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-._"
	DefaultNonceLength = 32
)

// GenerateNonce returns a random string of length characters drawn uniformly from nonceCharset.
func GenerateNonce(length int) (string, error) {
	if length <= 0 {
		length = DefaultNonceLength
	}
	max := big.NewInt(int64(len(nonceCharset)))
	nonce := make([]byte, length)
	for i := range nonce {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("[GenerateNonce] rand.Int: %w", err)
		}
		nonce[i] = nonceCharset[n.Int64()]
	}
	return string(nonce), nil
}

// HashNonce is the lowercase hex SHA-256 of the raw nonce. Apple receives this value,
// the identity provider receives the raw one and hashes it itself to compare.
func HashNonce(rawNonce string) string {
	sum := sha256.Sum256([]byte(rawNonce))
	return hex.EncodeToString(sum[:])
}
