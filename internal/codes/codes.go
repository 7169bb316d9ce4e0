// Package codes produces the obfuscated external-facing identifiers used in
// shareable document URLs, so raw sequential ids are not exposed. The
// encoding is reversible: the internal id is XORed with a configured mask
// and rendered in base 36.
package codes

import (
	"errors"
	"strconv"
)

const defaultMask uint64 = 0x5ca1ab1e

var mask = defaultMask

// SetMask overrides the obfuscation mask. Set once at bootstrap from config;
// changing it invalidates previously shared links.
func SetMask(m uint64) {
	if m != 0 {
		mask = m
	}
}

// Encode obfuscates an internal id for use in URLs.
func Encode(id uint) string {
	return strconv.FormatUint(uint64(id)^mask, 36)
}

var ErrMalformedCode = errors.New("malformed document code")

// Decode recovers the internal id from an encoded code.
func Decode(code string) (uint, error) {
	n, err := strconv.ParseUint(code, 36, 64)
	if err != nil {
		return 0, ErrMalformedCode
	}
	return uint(n ^ mask), nil
}
