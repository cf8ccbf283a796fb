package hash

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// DigestSize is the length of a content digest in bytes.
const DigestSize = sha256.Size

// ErrInvalidDigest is returned when parsing a malformed digest.
var ErrInvalidDigest = errors.New("hash: invalid digest")

// Digest is the SHA-256 digest of a link payload.
type Digest [DigestSize]byte

// Sum returns the digest of data.
func Sum(data []byte) Digest {
	return sha256.Sum256(data)
}

// String returns the lowercase hex form.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Less orders digests bytewise.
func (d Digest) Less(o Digest) bool {
	return bytes.Compare(d[:], o[:]) < 0
}

// ParseDigest parses the hex form produced by String.
func ParseDigest(s string) (Digest, error) {
	var d Digest

	if hex.DecodedLen(len(s)) != DigestSize {
		return d, ErrInvalidDigest
	}

	if _, err := hex.Decode(d[:], []byte(s)); err != nil {
		return d, ErrInvalidDigest
	}

	return d, nil
}
