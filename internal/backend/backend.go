package backend

import (
	"errors"
	"fmt"

	corev1 "k8s.io/api/core/v1"
)

// Kind is the storage backend of a PersistentVolume.
type Kind string

const (
	KindNFS         Kind = "NFS"
	KindCephRBD     Kind = "CephRBD"
	KindUnsupported Kind = "Unsupported"

	DefaultRBDDriver          = "rbd.csi.ceph.com"
	DefaultOpenShiftRBDDriver = "openshift-storage.rbd.csi.ceph.com"

	attrPool      = "pool"
	attrImageName = "imageName"
	attrClusterID = "clusterID"
	attrMonitors  = "monitors"
)

var (
	DefaultRBDDrivers = []string{DefaultRBDDriver, DefaultOpenShiftRBDDriver}

	ErrMalformedBackend = errors.New("malformed backend")
)

// Identity is the normalized storage location of a PersistentVolume.
// Only the fields of its Kind are set, so two identities are equal
// exactly when they have the same kind and fields.
type Identity struct {
	Kind Kind `json:"kind" yaml:"kind"`

	// NFS
	Server string `json:"server,omitempty" yaml:"server,omitempty"`
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`

	// CephRBD
	ClusterID    string `json:"clusterID,omitempty" yaml:"clusterID,omitempty"`
	Monitors     string `json:"monitors,omitempty" yaml:"monitors,omitempty"`
	Pool         string `json:"pool,omitempty" yaml:"pool,omitempty"`
	Image        string `json:"image,omitempty" yaml:"image,omitempty"`
	VolumeHandle string `json:"volumeHandle,omitempty" yaml:"volumeHandle,omitempty"`

	// Driver is the CSI driver name, for CSI backed volumes.
	Driver string `json:"driver,omitempty" yaml:"driver,omitempty"`
	// Detail describes why a volume is unsupported.
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

func NFS(server string, path string) Identity {
	return Identity{Kind: KindNFS, Server: server, Path: path}
}

func Unsupported(detail string) Identity {
	return Identity{Kind: KindUnsupported, Detail: detail}
}

func (i Identity) Supported() bool {
	return i.Kind == KindNFS || i.Kind == KindCephRBD
}

func (i Identity) Equal(other Identity) bool {
	return i == other
}

// Location returns where the data of the volume lives: server:path for NFS,
// pool/image or the volume handle for CephRBD.
func (i Identity) Location() string {
	switch i.Kind {
	case KindNFS:
		return i.Server + ":" + i.Path
	case KindCephRBD:
		if i.Pool != "" && i.Image != "" {
			return i.Pool + "/" + i.Image
		}

		return i.VolumeHandle
	case KindUnsupported:
	}

	return ""
}

func (i Identity) String() string {
	if i.Kind == KindUnsupported {
		return fmt.Sprintf("%s(%s)", i.Kind, i.Detail)
	}

	return fmt.Sprintf("%s(%s)", i.Kind, i.Location())
}

// Classifier determines the backend of PersistentVolume sources.
type Classifier struct {
	rbdDrivers map[string]struct{}
}

// NewClassifier returns a Classifier recognizing the given CSI driver names as
// CephRBD, in addition to DefaultRBDDrivers.
func NewClassifier(extraRBDDrivers ...string) *Classifier {
	drivers := make(map[string]struct{}, len(DefaultRBDDrivers)+len(extraRBDDrivers))
	for _, d := range DefaultRBDDrivers {
		drivers[d] = struct{}{}
	}

	for _, d := range extraRBDDrivers {
		if d != "" {
			drivers[d] = struct{}{}
		}
	}

	return &Classifier{rbdDrivers: drivers}
}

// Classify computes the backend identity of a volume source. Volumes of
// unsupported backends yield an Unsupported identity without an error.
// A supported backend lacking identifying fields yields an Unsupported
// identity and an error wrapping ErrMalformedBackend.
func (c *Classifier) Classify(src corev1.PersistentVolumeSource) (Identity, error) {
	if src.NFS != nil {
		return classifyNFS(src.NFS)
	}

	if src.CSI != nil {
		if _, ok := c.rbdDrivers[src.CSI.Driver]; ok {
			return classifyRBD(src.CSI)
		}

		id := Unsupported(sourceType(src))
		id.Driver = src.CSI.Driver

		return id, nil
	}

	return Unsupported(sourceType(src)), nil
}

func classifyNFS(nfs *corev1.NFSVolumeSource) (Identity, error) {
	if nfs.Server == "" || nfs.Path == "" {
		err := fmt.Errorf("%w: nfs volume needs both server and path (server: %q, path: %q)",
			ErrMalformedBackend, nfs.Server, nfs.Path)

		return Unsupported(err.Error()), err
	}

	return NFS(nfs.Server, nfs.Path), nil
}

func classifyRBD(csi *corev1.CSIPersistentVolumeSource) (Identity, error) {
	attrs := csi.VolumeAttributes
	id := Identity{
		Kind:         KindCephRBD,
		ClusterID:    attrs[attrClusterID],
		Monitors:     attrs[attrMonitors],
		VolumeHandle: csi.VolumeHandle,
		Driver:       csi.Driver,
	}

	pool, image := attrs[attrPool], attrs[attrImageName]
	if pool != "" && image != "" {
		id.Pool = pool
		id.Image = image

		return id, nil
	}

	if id.VolumeHandle != "" {
		return id, nil
	}

	err := fmt.Errorf("%w: csi volume of driver %s has neither %s/%s attributes nor a volume handle",
		ErrMalformedBackend, csi.Driver, attrPool, attrImageName)
	unsupported := Unsupported(err.Error())
	unsupported.Driver = csi.Driver

	return unsupported, err
}

//nolint:gocyclo,cyclop
func sourceType(src corev1.PersistentVolumeSource) string {
	switch {
	case src.CSI != nil:
		return "csi:" + src.CSI.Driver
	case src.RBD != nil:
		return "rbd"
	case src.CephFS != nil:
		return "cephfs"
	case src.HostPath != nil:
		return "hostPath"
	case src.Local != nil:
		return "local"
	case src.AWSElasticBlockStore != nil:
		return "awsElasticBlockStore"
	case src.GCEPersistentDisk != nil:
		return "gcePersistentDisk"
	case src.AzureDisk != nil:
		return "azureDisk"
	case src.AzureFile != nil:
		return "azureFile"
	case src.ISCSI != nil:
		return "iscsi"
	case src.FC != nil:
		return "fc"
	case src.Cinder != nil:
		return "cinder"
	case src.Glusterfs != nil:
		return "glusterfs"
	case src.VsphereVolume != nil:
		return "vsphereVolume"
	}

	return "unknown"
}
