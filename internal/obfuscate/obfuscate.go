// Package obfuscate implements the reversible encoding used for stored access
// tokens and legacy folder passwords. It is not encryption.
//
// The encoding is standard base64 over the UTF-8 bytes of the input, which is
// what the browser client produced with btoa(unescape(encodeURIComponent(s))).
package obfuscate

import (
	"encoding/base64"
	"fmt"
	"unicode/utf8"
)

// Encode returns the obfuscated form of s.
func Encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// Decode reverses Encode.
func Decode(s string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("obfuscate: decode: %w", err)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("obfuscate: decoded value is not valid UTF-8")
	}
	return string(raw), nil
}
