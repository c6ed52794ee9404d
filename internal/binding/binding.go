package binding

import (
	corev1 "k8s.io/api/core/v1"

	"github.com/PvGGit/pv-retrieval/internal/backend"
	"github.com/PvGGit/pv-retrieval/internal/claim"
	"github.com/PvGGit/pv-retrieval/internal/warning"
)

// Binding is a claim resolved to the backend of its bound volume.
type Binding struct {
	Claim   claim.Ref
	Volume  string
	Backend backend.Identity
}

// Table holds the bindings of one cluster keyed by claim, in insertion order.
type Table struct {
	refs     []claim.Ref
	bindings map[claim.Ref]Binding
}

func NewTable(bindings ...Binding) *Table {
	t := &Table{bindings: make(map[claim.Ref]Binding, len(bindings))}
	for _, b := range bindings {
		t.Put(b)
	}

	return t
}

// Put adds a binding. Putting a claim that is already present replaces its
// binding and keeps its position.
func (t *Table) Put(b Binding) {
	if _, ok := t.bindings[b.Claim]; !ok {
		t.refs = append(t.refs, b.Claim)
	}

	t.bindings[b.Claim] = b
}

func (t *Table) Get(ref claim.Ref) (Binding, bool) {
	b, ok := t.bindings[ref]

	return b, ok
}

func (t *Table) Len() int {
	return len(t.refs)
}

// Refs returns the claims in insertion order.
func (t *Table) Refs() []claim.Ref {
	refs := make([]claim.Ref, len(t.refs))
	copy(refs, t.refs)

	return refs
}

// Bindings returns the bindings in insertion order.
func (t *Table) Bindings() []Binding {
	bindings := make([]Binding, 0, len(t.refs))
	for _, ref := range t.refs {
		bindings = append(bindings, t.bindings[ref])
	}

	return bindings
}

// Resolve joins claims to their bound volumes and classifies the backend of
// each. Unbound claims and claims naming a missing volume are left out of the
// table and reported as warnings, in claim order.
func Resolve(classifier *backend.Classifier, pvcs []corev1.PersistentVolumeClaim,
	pvs []corev1.PersistentVolume,
) (*Table, []warning.Warning) {
	volumes := make(map[string]*corev1.PersistentVolume, len(pvs))
	for i := range pvs {
		volumes[pvs[i].Name] = &pvs[i]
	}

	table := NewTable()

	var warnings []warning.Warning

	for i := range pvcs {
		pvc := &pvcs[i]
		ref := claim.New(pvc.Namespace, pvc.Name)
		volumeName := pvc.Spec.VolumeName

		if volumeName == "" {
			warnings = append(warnings, warning.New(warning.UnboundPVC, ref, "",
				"claim is not bound to a volume"))

			continue
		}

		pv, ok := volumes[volumeName]
		if !ok {
			warnings = append(warnings, warning.New(warning.DanglingBinding, ref, volumeName,
				"claim is bound to volume %s which does not exist", volumeName))

			continue
		}

		if w, mismatch := checkClaimRef(ref, pv); mismatch {
			warnings = append(warnings, w)
		}

		id, err := classifier.Classify(pv.Spec.PersistentVolumeSource)
		if err != nil {
			warnings = append(warnings, warning.New(warning.MalformedBackend, ref, volumeName,
				"%v", err))
		}

		table.Put(Binding{Claim: ref, Volume: volumeName, Backend: id})
	}

	return table, warnings
}

func checkClaimRef(ref claim.Ref, pv *corev1.PersistentVolume) (warning.Warning, bool) {
	claimRef := pv.Spec.ClaimRef
	if claimRef == nil {
		return warning.Warning{}, false
	}

	pointsTo := claim.New(claimRef.Namespace, claimRef.Name)
	if pointsTo == ref {
		return warning.Warning{}, false
	}

	return warning.New(warning.ClaimRefMismatch, ref, pv.Name,
		"volume %s has claimRef %s, trusting the claim's volume name", pv.Name, pointsTo), true
}
