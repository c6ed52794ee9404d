package claim

import (
	"errors"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"
)

const separator = ":"

var ErrInvalidRef = errors.New("invalid claim reference")

// Ref identifies a PersistentVolumeClaim within a cluster.
type Ref struct {
	Namespace string `json:"namespace" yaml:"namespace"`
	Name      string `json:"name" yaml:"name"`
}

func New(namespace string, name string) Ref {
	return Ref{Namespace: namespace, Name: name}
}

// String returns the reference in namespace:name form.
func (r Ref) String() string {
	return r.Namespace + separator + r.Name
}

func (r Ref) IsZero() bool {
	return r.Namespace == "" && r.Name == ""
}

// Parse parses a namespace:name reference. The namespace must be a valid
// RFC 1123 label and the name a valid RFC 1123 subdomain.
func Parse(s string) (Ref, error) {
	parts := strings.Split(s, separator)
	if len(parts) != 2 {
		return Ref{}, fmt.Errorf("%w %q: expected namespace%sname", ErrInvalidRef, s, separator)
	}

	ref := New(parts[0], parts[1])

	if errs := validation.IsDNS1123Label(ref.Namespace); len(errs) > 0 {
		return Ref{}, fmt.Errorf("%w %q: namespace: %s", ErrInvalidRef, s, strings.Join(errs, ", "))
	}

	if errs := validation.IsDNS1123Subdomain(ref.Name); len(errs) > 0 {
		return Ref{}, fmt.Errorf("%w %q: name: %s", ErrInvalidRef, s, strings.Join(errs, ", "))
	}

	return ref, nil
}
