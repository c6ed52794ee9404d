package k8s

import (
	"context"
	"sort"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// GetNamespaces returns the sorted namespace names of the cluster of the
// given context, for shell completion.
func GetNamespaces(ctx context.Context, kubeconfigPath string, kubeContext string) ([]string, error) {
	client, err := GetClusterClient(kubeconfigPath, kubeContext)
	if err != nil {
		return nil, err
	}

	nss, err := client.KubeClient.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}

	nsNames := make([]string, len(nss.Items))
	for i, ns := range nss.Items {
		nsNames[i] = ns.Name
	}

	sort.Strings(nsNames)

	return nsNames, nil
}
