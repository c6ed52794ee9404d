// Package correlation pairs the claims of a source cluster with the claims of
// a target cluster.
//
// A source claim's target is taken from the explicit mapping when the mapping
// has an entry for it, and is the claim with the same namespace and name
// otherwise. Target claims no source claim resolves to are reported as
// SourceMissing, after all source records.
package correlation

import (
	"github.com/PvGGit/pv-retrieval/internal/backend"
	"github.com/PvGGit/pv-retrieval/internal/binding"
	"github.com/PvGGit/pv-retrieval/internal/claim"
	"github.com/PvGGit/pv-retrieval/internal/mapping"
	"github.com/PvGGit/pv-retrieval/internal/warning"
)

// Status classifies a correlation record.
type Status string

const (
	// Matched means both claims exist and both backends are supported.
	Matched Status = "Matched"
	// SourceUnsupported means the source claim's backend is unsupported.
	SourceUnsupported Status = "SourceUnsupported"
	// TargetUnsupported means the target claim's backend is unsupported.
	TargetUnsupported Status = "TargetUnsupported"
	// TargetMissing means the source claim's target does not exist.
	TargetMissing Status = "TargetMissing"
	// SourceMissing means no source claim resolves to the target claim.
	SourceMissing Status = "SourceMissing"
	// AmbiguousMapping means more than one source claim resolves to the target claim.
	AmbiguousMapping Status = "AmbiguousMapping"
)

// Statuses lists all statuses in report order.
var Statuses = []Status{
	Matched, SourceUnsupported, TargetUnsupported, AmbiguousMapping, TargetMissing, SourceMissing,
}

// Record is the correlation of one source claim, or of one target claim that
// no source claim resolves to.
type Record struct {
	Status        Status            `json:"status" yaml:"status"`
	Source        *claim.Ref        `json:"source,omitempty" yaml:"source,omitempty"`
	Target        *claim.Ref        `json:"target,omitempty" yaml:"target,omitempty"`
	SourceVolume  string            `json:"sourceVolume,omitempty" yaml:"sourceVolume,omitempty"`
	TargetVolume  string            `json:"targetVolume,omitempty" yaml:"targetVolume,omitempty"`
	SourceBackend *backend.Identity `json:"sourceBackend,omitempty" yaml:"sourceBackend,omitempty"`
	TargetBackend *backend.Identity `json:"targetBackend,omitempty" yaml:"targetBackend,omitempty"`
	// Mapped tells whether the target was taken from the explicit mapping.
	Mapped bool `json:"mapped" yaml:"mapped"`
}

type Result struct {
	Records  []Record
	Warnings []warning.Warning
}

// Summary counts the records per status.
func (r *Result) Summary() map[Status]int {
	summary := make(map[Status]int, len(Statuses))
	for _, rec := range r.Records {
		summary[rec.Status]++
	}

	return summary
}

// Correlate pairs every source binding with its target binding. The mapping
// may be nil. Records follow the order of the source table, followed by
// SourceMissing records in the order of the target table.
func Correlate(source *binding.Table, target *binding.Table, m *mapping.Mapping) *Result {
	sourceBindings := source.Bindings()
	targetKeys := make([]claim.Ref, len(sourceBindings))
	mapped := make([]bool, len(sourceBindings))
	reached := make(map[claim.Ref]int, len(sourceBindings))

	for i, b := range sourceBindings {
		targetKeys[i], mapped[i] = targetKey(b.Claim, m)
		if _, ok := target.Get(targetKeys[i]); ok {
			reached[targetKeys[i]]++
		}
	}

	result := Result{Records: make([]Record, 0, source.Len())}

	for i, b := range sourceBindings {
		result.Records = append(result.Records, sourceRecord(b, targetKeys[i], mapped[i], target, reached))
	}

	for _, t := range target.Bindings() {
		if _, ok := reached[t.Claim]; ok {
			continue
		}

		result.Records = append(result.Records, Record{
			Status:        SourceMissing,
			Target:        refPtr(t.Claim),
			TargetVolume:  t.Volume,
			TargetBackend: identityPtr(t.Backend),
		})
	}

	for _, e := range m.Entries() {
		if _, ok := source.Get(e.Source); ok {
			continue
		}

		result.Warnings = append(result.Warnings, warning.New(warning.UnknownMappingEntry, e.Source, "",
			"mapping entry %s -> %s names a source claim that was not resolved", e.Source, e.Target))
	}

	return &result
}

// targetKey returns the target claim a source claim resolves to and whether
// the explicit mapping provided it. Identity is only used when the mapping has
// no entry for the source claim.
func targetKey(source claim.Ref, m *mapping.Mapping) (claim.Ref, bool) {
	if target, ok := m.Target(source); ok {
		return target, true
	}

	return source, false
}

func sourceRecord(b binding.Binding, key claim.Ref, mapped bool, target *binding.Table,
	reached map[claim.Ref]int,
) Record {
	rec := Record{
		Source:        refPtr(b.Claim),
		Target:        refPtr(key),
		SourceVolume:  b.Volume,
		SourceBackend: identityPtr(b.Backend),
		Mapped:        mapped,
	}

	t, ok := target.Get(key)
	if !ok {
		rec.Status = TargetMissing

		return rec
	}

	rec.TargetVolume = t.Volume
	rec.TargetBackend = identityPtr(t.Backend)

	switch {
	case reached[key] > 1:
		rec.Status = AmbiguousMapping
	case !b.Backend.Supported():
		rec.Status = SourceUnsupported
	case !t.Backend.Supported():
		rec.Status = TargetUnsupported
	default:
		rec.Status = Matched
	}

	return rec
}

func refPtr(ref claim.Ref) *claim.Ref {
	return &ref
}

func identityPtr(id backend.Identity) *backend.Identity {
	return &id
}
