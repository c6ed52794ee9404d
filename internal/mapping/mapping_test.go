package mapping

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PvGGit/pv-retrieval/internal/claim"
)

func TestParse(t *testing.T) {
	t.Parallel()

	input := `# PVCs for source-context prod:
ns1:pvc-a,ns2:pvc-b

  ns1:data-db-0 , ns1:data-db-0
`

	m, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{Source: claim.New("ns1", "pvc-a"), Target: claim.New("ns2", "pvc-b")},
		{Source: claim.New("ns1", "data-db-0"), Target: claim.New("ns1", "data-db-0")},
	}, m.Entries())

	target, ok := m.Target(claim.New("ns1", "pvc-a"))
	assert.True(t, ok)
	assert.Equal(t, claim.New("ns2", "pvc-b"), target)

	_, ok = m.Target(claim.New("ns2", "pvc-b"))
	assert.False(t, ok)
}

func TestParseInvalidLines(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		"ns1:pvc-a,ns2:pvc-b",
		"ns1:pvc-a",
		"ns1:pvc-c,ns2:PVC",
		"ns1/pvc-d,ns2:pvc-d",
	}, "\n")

	_, err := Parse(strings.NewReader(input))
	require.ErrorIs(t, err, ErrInvalidLine)
	assert.Contains(t, err.Error(), "line 2")
	assert.Contains(t, err.Error(), "line 3")
	assert.Contains(t, err.Error(), "line 4")
	assert.NotContains(t, err.Error(), "line 1:")
}

func TestParseDuplicateKey(t *testing.T) {
	t.Parallel()

	input := "ns1:pvc-a,ns2:pvc-b\nns1:pvc-a,ns2:pvc-c\n"

	m, err := Parse(strings.NewReader(input))
	require.ErrorIs(t, err, ErrDuplicateKey)
	assert.Nil(t, m)
}

func TestNewDuplicateKey(t *testing.T) {
	t.Parallel()

	_, err := New(
		Entry{Source: claim.New("ns1", "a"), Target: claim.New("ns2", "a")},
		Entry{Source: claim.New("ns1", "a"), Target: claim.New("ns2", "a")},
	)
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestNilMapping(t *testing.T) {
	t.Parallel()

	var m *Mapping

	_, ok := m.Target(claim.New("ns1", "a"))
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
	assert.Empty(t, m.Entries())
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mapping.txt")
	require.NoError(t, os.WriteFile(path, []byte("ns1:pvc-a,ns2:pvc-b\n"), 0o600))

	m, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
