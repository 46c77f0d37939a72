package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_Properties(t *testing.T) {
	a := Hash(TypeBlob, []byte("hello\n"))
	b := Hash(TypeBlob, []byte("hello\n"))
	c := Hash(TypeBlob, []byte("other\n"))

	assert.Equal(t, a, b, "hashing is deterministic")
	assert.NotEqual(t, a, c, "different content hashes differently")
	assert.Len(t, string(a), 40)

	// Same payload under a different variant must not collide.
	assert.NotEqual(t, Hash(TypeBlob, []byte("x")), Hash(TypeTree, []byte("x")))
}

func TestOid_Short(t *testing.T) {
	oid := Oid("0123456789abcdef0123456789abcdef01234567")
	assert.Equal(t, "0123456", oid.Short())
}

func TestIsHex(t *testing.T) {
	assert.True(t, IsHex("abc1"))
	assert.True(t, IsHex("0123456789abcdef0123456789abcdef01234567"))
	assert.False(t, IsHex("ab"))
	assert.False(t, IsHex("xyz1"))
	assert.False(t, IsHex("ABCD"))
}

func TestTree_EncodeDecode(t *testing.T) {
	entries := []TreeEntry{
		{Mode: ModeFile, Type: TypeBlob, Oid: Hash(TypeBlob, []byte("b")), Name: "zeta.txt"},
		{Mode: ModeDir, Type: TypeTree, Oid: Hash(TypeTree, nil), Name: "alpha"},
	}
	data := EncodeTree(entries)

	decoded, err := DecodeTree(data)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	// Canonical order is by name.
	assert.Equal(t, "alpha", decoded[0].Name)
	assert.Equal(t, "zeta.txt", decoded[1].Name)
	assert.Equal(t, entries, decoded)

	// Re-encoding is byte identical: tree equality is encoding equality.
	assert.Equal(t, data, EncodeTree(decoded))
}

func TestTree_NameWithSpaces(t *testing.T) {
	entries := []TreeEntry{
		{Mode: ModeFile, Type: TypeBlob, Oid: Hash(TypeBlob, nil), Name: "my notes.txt"},
	}
	decoded, err := DecodeTree(EncodeTree(entries))
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, "my notes.txt", decoded[0].Name)
}

func TestCommit_EncodeDecode(t *testing.T) {
	c := &Commit{
		Tree:      Hash(TypeTree, nil),
		Parents:   []Oid{Hash(TypeCommit, []byte("p1")), Hash(TypeCommit, []byte("p2"))},
		Author:    Signature{Name: "Edu Git", Email: "edu@git.local", When: 1700000001},
		Committer: Signature{Name: "Edu Git", Email: "edu@git.local", When: 1700000001},
		Message:   "Merge branch 'feature'\n\nwith a body",
	}
	decoded, err := DecodeCommit(EncodeCommit(c))
	require.NoError(t, err)
	assert.Equal(t, c, decoded)
	assert.True(t, decoded.IsMerge())
	assert.Equal(t, "Merge branch 'feature'", decoded.Summary())
}

func TestCommit_RootCommit(t *testing.T) {
	c := &Commit{
		Tree:      Hash(TypeTree, nil),
		Author:    Signature{Name: "a", Email: "a@b.c", When: 1},
		Committer: Signature{Name: "a", Email: "a@b.c", When: 1},
		Message:   "init",
	}
	decoded, err := DecodeCommit(EncodeCommit(c))
	require.NoError(t, err)
	assert.Empty(t, decoded.Parents)
	assert.False(t, decoded.IsMerge())
}

func TestDecodeCommit_Malformed(t *testing.T) {
	_, err := DecodeCommit([]byte("garbage"))
	assert.Error(t, err)
}
