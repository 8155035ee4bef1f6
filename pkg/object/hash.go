package object

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/pjbgf/sha1cd"
)

// HashSize is the length in bytes of a raw digest.
const HashSize = sha1cd.Size

// Frame returns the envelope "type len\0content" that is hashed and stored.
func Frame(objType ObjectType, data []byte) []byte {
	header := string(objType) + " " + strconv.Itoa(len(data)) + "\x00"
	framed := make([]byte, 0, len(header)+len(data))
	framed = append(framed, header...)
	return append(framed, data...)
}

// HashObject computes the SHA-1 of the envelope "type len\0content",
// mirroring Git's object hashing.
func HashObject(objType ObjectType, data []byte) Hash {
	h, _ := hashFramed(Frame(objType, data))
	return h
}

// hashFramed returns the digest of an already framed payload and whether
// the collision detector fired on it.
func hashFramed(framed []byte) (Hash, bool) {
	sum, collision := sha1cd.Sum(framed)
	return Hash(hex.EncodeToString(sum[:])), collision
}

// ValidHash reports whether h is a well-formed 40-character lowercase hex
// digest.
func ValidHash(h Hash) bool {
	if len(h) != 2*HashSize {
		return false
	}
	for i := 0; i < len(h); i++ {
		c := h[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// RawHash decodes h into its binary form.
func RawHash(h Hash) ([]byte, error) {
	if !ValidHash(h) {
		return nil, fmt.Errorf("invalid hash %q", h)
	}
	return hex.DecodeString(string(h))
}
