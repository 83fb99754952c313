package bledb

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// BaseUUIDSuffix is the tail of the Bluetooth SIG base UUID 0000xxxx-0000-1000-8000-00805f9b34fb.
const BaseUUIDSuffix = "-0000-1000-8000-00805f9b34fb"

const baseUUIDSuffixCompact = "00001000800000805f9b34fb"

// shortIDStart and shortIDEnd bound the 16-bit assigned number inside a canonical UUID.
const (
	shortIDStart = 4
	shortIDEnd   = 8
)

// stripUUID lowercases and removes braces, urn prefixes and a 0x prefix.
func stripUUID(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "urn:uuid:")
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	return strings.TrimPrefix(s, "0x")
}

// NormalizeUUID converts a UUID string to the lookup format (lowercase, no dashes).
// UUIDs in the Bluetooth SIG base form collapse to their 16-bit short form, so
// "0000180d-0000-1000-8000-00805f9b34fb", "0000180d00001000800000805f9b34fb" and
// "0x180D" all normalize to "180d".
func NormalizeUUID(s string) string {
	s = strings.ReplaceAll(stripUUID(s), "-", "")
	if len(s) == 32 && strings.HasPrefix(s, "0000") && strings.HasSuffix(s, baseUUIDSuffixCompact) {
		return s[4:8]
	}
	return s
}

// NormalizeUUIDs normalizes a slice of UUID strings.
func NormalizeUUIDs(uuids []string) []string {
	normalized := make([]string, len(uuids))
	for i, u := range uuids {
		normalized[i] = NormalizeUUID(u)
	}
	return normalized
}

func isHex(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return s != ""
}

// CanonicalUUID returns the 36-character textual form of a UUID.
// 16-bit and 32-bit assigned numbers are expanded onto the Bluetooth SIG base UUID.
func CanonicalUUID(s string) (string, error) {
	stripped := stripUUID(s)
	switch {
	case len(stripped) == 4 && isHex(stripped):
		return "0000" + stripped + BaseUUIDSuffix, nil
	case len(stripped) == 8 && isHex(stripped):
		return stripped + BaseUUIDSuffix, nil
	}

	parsed, err := uuid.Parse(stripped)
	if err != nil {
		return "", fmt.Errorf("invalid UUID %q: %w", s, err)
	}
	return parsed.String(), nil
}

// ShortID extracts the 4-character assigned-number window from a UUID.
// The input is canonicalized first; positions [4,8) of the canonical form are returned.
// Returns "" when the input is not a UUID.
func ShortID(id string) string {
	canonical, err := CanonicalUUID(id)
	if err != nil {
		return ""
	}
	return canonical[shortIDStart:shortIDEnd]
}
