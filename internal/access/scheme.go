package access

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/starford/memodesk/internal/obfuscate"
)

// Scheme names a password encoding.
type Scheme string

// Supported schemes. Legacy is the reversible encoding written by the
// browser client; entries in that form are still accepted on verify.
const (
	SchemeArgon2id Scheme = "argon2id"
	SchemeLegacy   Scheme = "legacy"
)

const (
	argonMemory     = 64 * 1024
	argonIterations = 3
	argonThreads    = 1
	argonSaltLength = 16
	argonKeyLength  = 32
)

// Encode returns the stored form of password under scheme.
func Encode(scheme Scheme, password string) (string, error) {
	switch scheme {
	case SchemeLegacy:
		return obfuscate.Encode(password), nil
	case SchemeArgon2id, "":
		salt := make([]byte, argonSaltLength)
		if _, err := rand.Read(salt); err != nil {
			return "", fmt.Errorf("access: generate salt: %w", err)
		}
		sum := argon2.IDKey([]byte(password), salt, argonIterations, argonMemory, argonThreads, argonKeyLength)
		return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
			argonMemory, argonIterations, argonThreads,
			base64.RawStdEncoding.EncodeToString(salt),
			base64.RawStdEncoding.EncodeToString(sum),
		), nil
	default:
		return "", fmt.Errorf("access: unknown scheme %q", scheme)
	}
}

// Verify reports whether password matches the stored form. The scheme is
// detected from encoded.
func Verify(encoded, password string) bool {
	if strings.HasPrefix(encoded, "$argon2id$") {
		h, err := parseArgon2id(encoded)
		if err != nil {
			return false
		}
		sum := argon2.IDKey([]byte(password), h.salt, h.t, h.m, h.p, uint32(len(h.sum)))
		return subtle.ConstantTimeCompare(sum, h.sum) == 1
	}
	return subtle.ConstantTimeCompare([]byte(obfuscate.Encode(password)), []byte(encoded)) == 1
}

type argon2idHash struct {
	m, t uint32
	p    uint8
	salt []byte
	sum  []byte
}

func parseArgon2id(phc string) (*argon2idHash, error) {
	parts := strings.Split(phc, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, errors.New("invalid argon2id hash format")
	}
	if parts[2] != "v=19" {
		return nil, fmt.Errorf("unsupported argon2id version: %s", parts[2])
	}
	h := &argon2idHash{}
	for _, param := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(param, "=")
		if !ok {
			return nil, errors.New("invalid argon2id params")
		}
		switch k {
		case "m", "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid argon2id %s", k)
			}
			if k == "m" {
				h.m = uint32(n)
			} else {
				h.t = uint32(n)
			}
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil {
				return nil, errors.New("invalid argon2id parallelism")
			}
			h.p = uint8(n)
		default:
			return nil, errors.New("invalid argon2id params")
		}
	}
	if h.m == 0 || h.t == 0 || h.p == 0 {
		return nil, errors.New("invalid argon2id params")
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, errors.New("invalid argon2id salt")
	}
	if h.sum, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(h.sum) == 0 {
		return nil, errors.New("invalid argon2id hash")
	}
	return h, nil
}
