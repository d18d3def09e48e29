package objectid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashDeterministic(t *testing.T) {
	a := Hash([]byte("hello"))
	b := Hash([]byte("hello"))
	assert.Equal(t, a, b)

	c := Hash([]byte("world"))
	assert.NotEqual(t, a, c)
}

func TestStringParseRoundTrip(t *testing.T) {
	id := Hash([]byte("round trip me"))
	s := id.String()

	parsed, err := Parse(s)
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestStringIsLowercase(t *testing.T) {
	id := Hash([]byte("anything"))
	s := id.String()
	for _, r := range s {
		assert.False(t, r >= 'A' && r <= 'Z', "expected lowercase, got %q", s)
	}
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse("not valid base32!!")
	assert.Error(t, err)

	_, err = Parse("ab")
	assert.Error(t, err)
}

func TestIsZero(t *testing.T) {
	assert.True(t, Zero.IsZero())
	assert.False(t, Hash([]byte("x")).IsZero())
}

func TestShort(t *testing.T) {
	id := Hash([]byte("short me"))
	assert.Len(t, id.Short(), 8)
}

func TestNameAndFromName(t *testing.T) {
	id := Hash([]byte("pack contents"))
	name := Name(id, KindPack)

	gotID, gotKind, err := FromName(name)
	require.NoError(t, err)
	assert.Equal(t, id, gotID)
	assert.Equal(t, KindPack, gotKind)
}

func TestFromNameMalformed(t *testing.T) {
	_, _, err := FromName("no-dot-here")
	assert.Error(t, err)
}
