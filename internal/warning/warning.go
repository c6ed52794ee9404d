package warning

import (
	"fmt"

	"github.com/PvGGit/pv-retrieval/internal/claim"
)

// Kind classifies a non-fatal diagnostic produced while resolving or
// correlating claims.
type Kind string

const (
	// DanglingBinding means a claim names a volume that does not exist.
	DanglingBinding Kind = "DanglingBinding"
	// UnboundPVC means a claim has no volume name.
	UnboundPVC Kind = "UnboundPvc"
	// UnknownMappingEntry means a mapping entry names a source claim that was not resolved.
	UnknownMappingEntry Kind = "UnknownMappingEntry"
	// MalformedBackend means a volume uses a supported backend but lacks the fields to identify it.
	MalformedBackend Kind = "MalformedBackend"
	// ClaimRefMismatch means a claim's volume points its claimRef at a different claim.
	ClaimRefMismatch Kind = "ClaimRefMismatch"
)

type Warning struct {
	Kind    Kind      `json:"kind" yaml:"kind"`
	Claim   claim.Ref `json:"claim" yaml:"claim"`
	Volume  string    `json:"volume,omitempty" yaml:"volume,omitempty"`
	Message string    `json:"message" yaml:"message"`
}

func New(kind Kind, ref claim.Ref, volume string, format string, args ...interface{}) Warning {
	return Warning{
		Kind:    kind,
		Claim:   ref,
		Volume:  volume,
		Message: fmt.Sprintf(format, args...),
	}
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s: %s", w.Kind, w.Claim, w.Message)
}
