// Package objectid implements the content-hash identifiers used to name
// packs, indexes, snapshots, and the blobs and trees inside them.
package objectid

import (
	"crypto/sha256"
	"encoding/base32"
	"fmt"
	"strings"
)

// Size is the length in bytes of the underlying hash.
const Size = sha256.Size

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// ID is a content hash, printed as lowercase base32.
type ID [Size]byte

// Zero is the all-zero ID, never produced by Hash.
var Zero ID

// Hash returns the ID of the given bytes.
func Hash(data []byte) ID {
	return ID(sha256.Sum256(data))
}

// String returns the lowercase base32 encoding of the ID.
func (id ID) String() string {
	return strings.ToLower(encoding.EncodeToString(id[:]))
}

// Short returns an abbreviated form suitable for log lines.
func (id ID) Short() string {
	s := id.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool { return id == Zero }

// Parse decodes a base32 string produced by String back into an ID.
func Parse(s string) (ID, error) {
	raw, err := encoding.DecodeString(strings.ToUpper(s))
	if err != nil {
		return Zero, fmt.Errorf("objectid: parse %q: %w", s, err)
	}
	if len(raw) != Size {
		return Zero, fmt.Errorf("objectid: parse %q: want %d bytes, got %d", s, Size, len(raw))
	}
	var id ID
	copy(id[:], raw)
	return id, nil
}

// Kind identifies the category of a stored object.
type Kind string

const (
	KindPack     Kind = "pack"
	KindIndex    Kind = "index"
	KindSnapshot Kind = "snapshot"
)

// Name returns the flat object name "<id>.<kind>" used at the cache layer.
func Name(id ID, kind Kind) string {
	return fmt.Sprintf("%s.%s", id.String(), kind)
}

// FromName splits a flat object name back into its ID and kind.
func FromName(name string) (ID, Kind, error) {
	dot := strings.LastIndexByte(name, '.')
	if dot < 0 {
		return Zero, "", fmt.Errorf("objectid: malformed name %q", name)
	}
	id, err := Parse(name[:dot])
	if err != nil {
		return Zero, "", err
	}
	return id, Kind(name[dot+1:]), nil
}
