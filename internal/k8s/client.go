package k8s

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"k8s.io/cli-runtime/pkg/genericclioptions"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
	"k8s.io/utils/env"
)

var (
	ErrNoContext       = errors.New("no context selected and no current context in kubeconfig")
	ErrContextNotFound = errors.New("context not found in kubeconfig")
)

// ClusterClient is a connection to the cluster of one kubeconfig context.
type ClusterClient struct {
	KubeClient       kubernetes.Interface
	RESTClientGetter genericclioptions.RESTClientGetter
	// Context is the resolved context name, the current context of the
	// kubeconfig if none was requested.
	Context string
}

// GetClusterClient builds a client for the given context of the kubeconfig at
// kubeconfigPath. An empty path uses the KUBECONFIG environment variable or
// ~/.kube/config, an empty context the current context.
func GetClusterClient(kubeconfigPath string, context string) (*ClusterClient, error) {
	flags := configFlags(kubeconfigPath, context)

	name, err := resolveContext(flags, context)
	if err != nil {
		return nil, err
	}

	restConfig, err := flags.ToRESTConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client config for context %s: %w", name, err)
	}

	kubeClient, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client for context %s: %w", name, err)
	}

	return &ClusterClient{
		KubeClient:       kubeClient,
		RESTClientGetter: flags,
		Context:          name,
	}, nil
}

func (c *ClusterClient) Inventory() *Inventory {
	return NewInventory(c.KubeClient)
}

// GetContexts returns the sorted context names of the kubeconfig.
func GetContexts(kubeconfigPath string) ([]string, error) {
	rawConfig, err := configFlags(kubeconfigPath, "").ToRawKubeConfigLoader().RawConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}

	return contextNames(&rawConfig), nil
}

// KubeconfigSource describes where the kubeconfig is loaded from.
func KubeconfigSource(kubeconfigPath string) string {
	if kubeconfigPath != "" {
		return kubeconfigPath
	}

	if fromEnv := env.GetString(clientcmd.RecommendedConfigPathEnvVar, ""); fromEnv != "" {
		return fromEnv + " (from " + clientcmd.RecommendedConfigPathEnvVar + ")"
	}

	return clientcmd.RecommendedHomeFile
}

func configFlags(kubeconfigPath string, context string) *genericclioptions.ConfigFlags {
	flags := genericclioptions.NewConfigFlags(false)
	if kubeconfigPath != "" {
		flags.KubeConfig = &kubeconfigPath
	}

	if context != "" {
		flags.Context = &context
	}

	return flags
}

func resolveContext(flags *genericclioptions.ConfigFlags, context string) (string, error) {
	rawConfig, err := flags.ToRawKubeConfigLoader().RawConfig()
	if err != nil {
		return "", fmt.Errorf("failed to load kubeconfig: %w", err)
	}

	name := context
	if name == "" {
		name = rawConfig.CurrentContext
	}

	if name == "" {
		return "", ErrNoContext
	}

	if _, ok := rawConfig.Contexts[name]; !ok {
		return "", fmt.Errorf("%w: %s (available: %s)",
			ErrContextNotFound, name, strings.Join(contextNames(&rawConfig), ", "))
	}

	return name, nil
}

func contextNames(config *clientcmdapi.Config) []string {
	names := make([]string, 0, len(config.Contexts))
	for name := range config.Contexts {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
