package correlation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PvGGit/pv-retrieval/internal/backend"
	"github.com/PvGGit/pv-retrieval/internal/binding"
	"github.com/PvGGit/pv-retrieval/internal/claim"
	"github.com/PvGGit/pv-retrieval/internal/mapping"
	"github.com/PvGGit/pv-retrieval/internal/warning"
)

func nfsBinding(namespace string, name string, server string, path string) binding.Binding {
	return binding.Binding{
		Claim:   claim.New(namespace, name),
		Volume:  "pv-" + name,
		Backend: backend.NFS(server, path),
	}
}

func mustMapping(t *testing.T, entries ...mapping.Entry) *mapping.Mapping {
	t.Helper()

	m, err := mapping.New(entries...)
	require.NoError(t, err)

	return m
}

func entry(source claim.Ref, target claim.Ref) mapping.Entry {
	return mapping.Entry{Source: source, Target: target}
}

func TestCorrelateExplicitMapping(t *testing.T) {
	t.Parallel()

	source := binding.NewTable(nfsBinding("ns1", "pvcA", "srv1", "/data/a"))
	target := binding.NewTable(nfsBinding("ns2", "pvcB", "srv2", "/data/a"))
	m := mustMapping(t, entry(claim.New("ns1", "pvcA"), claim.New("ns2", "pvcB")))

	result := Correlate(source, target, m)

	require.Len(t, result.Records, 1)
	rec := result.Records[0]
	assert.Equal(t, Matched, rec.Status)
	assert.True(t, rec.Mapped)
	assert.Equal(t, claim.New("ns1", "pvcA"), *rec.Source)
	assert.Equal(t, claim.New("ns2", "pvcB"), *rec.Target)
	assert.Equal(t, backend.NFS("srv1", "/data/a"), *rec.SourceBackend)
	assert.Equal(t, backend.NFS("srv2", "/data/a"), *rec.TargetBackend)
	assert.Empty(t, result.Warnings)
}

func TestCorrelateNoMappingDifferentNames(t *testing.T) {
	t.Parallel()

	source := binding.NewTable(nfsBinding("ns1", "pvcA", "srv1", "/data/a"))
	target := binding.NewTable(nfsBinding("ns2", "pvcB", "srv2", "/data/a"))

	result := Correlate(source, target, nil)

	require.Len(t, result.Records, 2)
	assert.Equal(t, TargetMissing, result.Records[0].Status)
	assert.Equal(t, claim.New("ns1", "pvcA"), *result.Records[0].Source)
	assert.Nil(t, result.Records[0].TargetBackend)

	assert.Equal(t, SourceMissing, result.Records[1].Status)
	assert.Nil(t, result.Records[1].Source)
	assert.Nil(t, result.Records[1].SourceBackend)
	assert.Equal(t, claim.New("ns2", "pvcB"), *result.Records[1].Target)
}

func TestCorrelateUnsupportedTargetMissing(t *testing.T) {
	t.Parallel()

	source := binding.NewTable(binding.Binding{
		Claim:   claim.New("ns1", "pvcC"),
		Volume:  "pv-c",
		Backend: backend.Unsupported("awsElasticBlockStore"),
	})

	result := Correlate(source, binding.NewTable(), nil)

	require.Len(t, result.Records, 1)
	assert.Equal(t, TargetMissing, result.Records[0].Status)
	assert.Equal(t, backend.KindUnsupported, result.Records[0].SourceBackend.Kind)
}

func TestCorrelateIdentity(t *testing.T) {
	t.Parallel()

	source := binding.NewTable(nfsBinding("ns1", "db", "srv1", "/data/db"))
	target := binding.NewTable(nfsBinding("ns1", "db", "srv2", "/exports/db"))

	result := Correlate(source, target, nil)

	require.Len(t, result.Records, 1)
	assert.Equal(t, Matched, result.Records[0].Status)
	assert.False(t, result.Records[0].Mapped)
}

func TestCorrelateMappingPrecedence(t *testing.T) {
	t.Parallel()

	source := binding.NewTable(nfsBinding("ns1", "pvcA", "srv1", "/data/a"))
	target := binding.NewTable(
		nfsBinding("ns1", "pvcA", "srv2", "/identity"),
		nfsBinding("ns2", "pvcB", "srv2", "/mapped"),
	)
	m := mustMapping(t, entry(claim.New("ns1", "pvcA"), claim.New("ns2", "pvcB")))

	result := Correlate(source, target, m)

	require.Len(t, result.Records, 2)
	assert.Equal(t, Matched, result.Records[0].Status)
	assert.Equal(t, claim.New("ns2", "pvcB"), *result.Records[0].Target)
	assert.Equal(t, "/mapped", result.Records[0].TargetBackend.Path)

	// the identity target is never consulted, so it is orphaned
	assert.Equal(t, SourceMissing, result.Records[1].Status)
	assert.Equal(t, claim.New("ns1", "pvcA"), *result.Records[1].Target)
}

func TestCorrelateMappedTargetMissingDoesNotFallBack(t *testing.T) {
	t.Parallel()

	source := binding.NewTable(nfsBinding("ns1", "pvcA", "srv1", "/data/a"))
	target := binding.NewTable(nfsBinding("ns1", "pvcA", "srv2", "/data/a"))
	m := mustMapping(t, entry(claim.New("ns1", "pvcA"), claim.New("ns2", "gone")))

	result := Correlate(source, target, m)

	require.Len(t, result.Records, 2)
	assert.Equal(t, TargetMissing, result.Records[0].Status)
	assert.True(t, result.Records[0].Mapped)
	assert.Equal(t, claim.New("ns2", "gone"), *result.Records[0].Target)
	assert.Equal(t, SourceMissing, result.Records[1].Status)
}

func TestCorrelateUnsupportedSides(t *testing.T) {
	t.Parallel()

	unsupported := func(namespace string, name string) binding.Binding {
		return binding.Binding{
			Claim:   claim.New(namespace, name),
			Volume:  "pv-" + name,
			Backend: backend.Unsupported("hostPath"),
		}
	}

	source := binding.NewTable(
		unsupported("ns1", "a"),
		nfsBinding("ns1", "b", "srv1", "/b"),
		unsupported("ns1", "c"),
	)
	target := binding.NewTable(
		nfsBinding("ns1", "a", "srv2", "/a"),
		unsupported("ns1", "b"),
		unsupported("ns1", "c"),
	)

	result := Correlate(source, target, nil)

	require.Len(t, result.Records, 3)
	assert.Equal(t, SourceUnsupported, result.Records[0].Status)
	assert.Equal(t, TargetUnsupported, result.Records[1].Status)
	assert.Equal(t, SourceUnsupported, result.Records[2].Status)
}

func TestCorrelateAmbiguous(t *testing.T) {
	t.Parallel()

	source := binding.NewTable(
		nfsBinding("ns1", "a", "srv1", "/a"),
		nfsBinding("ns1", "b", "srv1", "/b"),
		nfsBinding("ns1", "c", "srv1", "/c"),
	)
	target := binding.NewTable(
		nfsBinding("ns1", "b", "srv2", "/b"),
		nfsBinding("ns1", "c", "srv2", "/c"),
	)
	m := mustMapping(t, entry(claim.New("ns1", "a"), claim.New("ns1", "b")))

	result := Correlate(source, target, m)

	require.Len(t, result.Records, 3)
	assert.Equal(t, AmbiguousMapping, result.Records[0].Status)
	assert.Equal(t, AmbiguousMapping, result.Records[1].Status)
	assert.Equal(t, Matched, result.Records[2].Status)
}

func TestCorrelateUnknownMappingEntry(t *testing.T) {
	t.Parallel()

	source := binding.NewTable(nfsBinding("ns1", "a", "srv1", "/a"))
	target := binding.NewTable(nfsBinding("ns1", "a", "srv2", "/a"))
	m := mustMapping(t, entry(claim.New("ns1", "removed"), claim.New("ns2", "removed")))

	result := Correlate(source, target, m)

	require.Len(t, result.Records, 1)
	assert.Equal(t, Matched, result.Records[0].Status)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, warning.UnknownMappingEntry, result.Warnings[0].Kind)
	assert.Equal(t, claim.New("ns1", "removed"), result.Warnings[0].Claim)
}

func TestCorrelateCompletenessAndOrder(t *testing.T) {
	t.Parallel()

	source := binding.NewTable(
		nfsBinding("ns3", "z", "srv1", "/z"),
		nfsBinding("ns1", "a", "srv1", "/a"),
		nfsBinding("ns2", "m", "srv1", "/m"),
	)
	target := binding.NewTable(
		nfsBinding("ns9", "orphan-2", "srv2", "/o2"),
		nfsBinding("ns1", "a", "srv2", "/a"),
		nfsBinding("ns8", "orphan-1", "srv2", "/o1"),
		nfsBinding("ns2", "renamed", "srv2", "/m"),
	)
	m := mustMapping(t, entry(claim.New("ns2", "m"), claim.New("ns2", "renamed")))

	result := Correlate(source, target, m)

	require.Len(t, result.Records, 5)

	sources := make(map[claim.Ref]int)
	for _, rec := range result.Records {
		if rec.Source != nil {
			sources[*rec.Source]++
		}
	}

	for _, ref := range source.Refs() {
		assert.Equal(t, 1, sources[ref], ref.String())
	}

	assert.Equal(t, claim.New("ns3", "z"), *result.Records[0].Source)
	assert.Equal(t, TargetMissing, result.Records[0].Status)
	assert.Equal(t, claim.New("ns1", "a"), *result.Records[1].Source)
	assert.Equal(t, claim.New("ns2", "m"), *result.Records[2].Source)
	assert.Equal(t, claim.New("ns9", "orphan-2"), *result.Records[3].Target)
	assert.Equal(t, SourceMissing, result.Records[3].Status)
	assert.Equal(t, claim.New("ns8", "orphan-1"), *result.Records[4].Target)

	summary := result.Summary()
	assert.Equal(t, 2, summary[Matched])
	assert.Equal(t, 1, summary[TargetMissing])
	assert.Equal(t, 2, summary[SourceMissing])
}

func TestCorrelateDeterministic(t *testing.T) {
	t.Parallel()

	build := func() []byte {
		source := binding.NewTable(
			nfsBinding("ns1", "a", "srv1", "/a"),
			nfsBinding("ns1", "b", "srv1", "/b"),
			nfsBinding("ns1", "c", "srv1", "/c"),
		)
		target := binding.NewTable(
			nfsBinding("ns2", "x", "srv2", "/x"),
			nfsBinding("ns1", "b", "srv2", "/b"),
			nfsBinding("ns2", "y", "srv2", "/y"),
		)
		m := mustMapping(t, entry(claim.New("ns1", "a"), claim.New("ns2", "y")))

		data, err := json.Marshal(Correlate(source, target, m).Records)
		require.NoError(t, err)

		return data
	}

	first := build()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, build())
	}
}
