package k8s

import (
	"context"
	"fmt"
	"sort"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

const defaultPageSize = 500

// Inventory lists the claims and volumes of one cluster.
type Inventory struct {
	kubeClient kubernetes.Interface
	pageSize   int64
}

func NewInventory(kubeClient kubernetes.Interface) *Inventory {
	return &Inventory{kubeClient: kubeClient, pageSize: defaultPageSize}
}

// ListPVCs lists the claims of the namespace, or of all namespaces if it is
// empty, sorted by namespace and name.
func (i *Inventory) ListPVCs(ctx context.Context, namespace string) ([]corev1.PersistentVolumeClaim, error) {
	var pvcs []corev1.PersistentVolumeClaim

	opts := metav1.ListOptions{Limit: i.pageSize}

	for {
		list, err := i.kubeClient.CoreV1().PersistentVolumeClaims(namespace).List(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list persistent volume claims: %w", err)
		}

		pvcs = append(pvcs, list.Items...)

		if list.Continue == "" {
			break
		}

		opts.Continue = list.Continue
	}

	sort.SliceStable(pvcs, func(a, b int) bool {
		if pvcs[a].Namespace != pvcs[b].Namespace {
			return pvcs[a].Namespace < pvcs[b].Namespace
		}

		return pvcs[a].Name < pvcs[b].Name
	})

	return pvcs, nil
}

// ListPVs lists the volumes of the cluster sorted by name.
func (i *Inventory) ListPVs(ctx context.Context) ([]corev1.PersistentVolume, error) {
	var pvs []corev1.PersistentVolume

	opts := metav1.ListOptions{Limit: i.pageSize}

	for {
		list, err := i.kubeClient.CoreV1().PersistentVolumes().List(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list persistent volumes: %w", err)
		}

		pvs = append(pvs, list.Items...)

		if list.Continue == "" {
			break
		}

		opts.Continue = list.Continue
	}

	sort.SliceStable(pvs, func(a, b int) bool {
		return pvs[a].Name < pvs[b].Name
	})

	return pvs, nil
}
