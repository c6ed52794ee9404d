package testutil

import (
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const RBDDriver = "rbd.csi.ceph.com"

func ObjectMeta(namespace string, name string) metav1.ObjectMeta {
	return metav1.ObjectMeta{
		Namespace: namespace,
		Name:      name,
	}
}

// PVC returns a claim bound to the given volume. An empty volume name yields
// an unbound claim.
func PVC(namespace string, name string, volumeName string) *corev1.PersistentVolumeClaim {
	phase := corev1.ClaimBound
	if volumeName == "" {
		phase = corev1.ClaimPending
	}

	return &corev1.PersistentVolumeClaim{
		ObjectMeta: ObjectMeta(namespace, name),
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			Resources: corev1.ResourceRequirements{
				Requests: map[corev1.ResourceName]resource.Quantity{
					"storage": resource.MustParse("512Mi"),
				},
			},
			VolumeName: volumeName,
		},
		Status: corev1.PersistentVolumeClaimStatus{Phase: phase},
	}
}

// PV returns a volume with the given source, claimed by namespace/claimName
// unless claimName is empty.
func PV(name string, namespace string, claimName string, src corev1.PersistentVolumeSource) *corev1.PersistentVolume {
	pv := corev1.PersistentVolume{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Spec: corev1.PersistentVolumeSpec{
			Capacity: corev1.ResourceList{
				"storage": resource.MustParse("512Mi"),
			},
			PersistentVolumeSource: src,
		},
		Status: corev1.PersistentVolumeStatus{Phase: corev1.VolumeAvailable},
	}

	if claimName != "" {
		pv.Spec.ClaimRef = &corev1.ObjectReference{
			Kind:      "PersistentVolumeClaim",
			Namespace: namespace,
			Name:      claimName,
		}
		pv.Status.Phase = corev1.VolumeBound
	}

	return &pv
}

func NFSSource(server string, path string) corev1.PersistentVolumeSource {
	return corev1.PersistentVolumeSource{
		NFS: &corev1.NFSVolumeSource{Server: server, Path: path},
	}
}

func RBDSource(pool string, image string, volumeHandle string) corev1.PersistentVolumeSource {
	attrs := map[string]string{"clusterID": "rook-ceph"}
	if pool != "" {
		attrs["pool"] = pool
	}

	if image != "" {
		attrs["imageName"] = image
	}

	return corev1.PersistentVolumeSource{
		CSI: &corev1.CSIPersistentVolumeSource{
			Driver:           RBDDriver,
			VolumeHandle:     volumeHandle,
			VolumeAttributes: attrs,
		},
	}
}

func EBSSource(volumeID string) corev1.PersistentVolumeSource {
	return corev1.PersistentVolumeSource{
		AWSElasticBlockStore: &corev1.AWSElasticBlockStoreVolumeSource{VolumeID: volumeID},
	}
}

// NFSClaim returns a claim and the NFS volume it is bound to.
func NFSClaim(namespace string, name string, server string, path string) (*corev1.PersistentVolumeClaim,
	*corev1.PersistentVolume,
) {
	volumeName := "pv-" + namespace + "-" + name

	return PVC(namespace, name, volumeName), PV(volumeName, namespace, name, NFSSource(server, path))
}
