package discovery

import (
	"context"
	"fmt"

	"k8s.io/client-go/discovery"
	"k8s.io/client-go/kubernetes"
)

// apiGroupKubeRay is registered when the KubeRay operator CRDs are installed.
const apiGroupKubeRay = "ray.io"

// Capabilities describes what the service can see of the cluster at startup.
type Capabilities struct {
	KubeRay      bool // ray.io API group exists
	ListServices bool // RBAC allows listing services in the namespace
}

// Detect probes the cluster once at startup.
func Detect(ctx context.Context, client kubernetes.Interface, discoveryClient discovery.DiscoveryInterface, namespace string) (*Capabilities, error) {
	caps := &Capabilities{}

	kuberay, err := HasAPIGroup(discoveryClient, apiGroupKubeRay)
	if err != nil {
		return nil, err
	}
	caps.KubeRay = kuberay

	caps.ListServices, err = CanListServices(ctx, client, namespace)
	if err != nil {
		return nil, fmt.Errorf("discovery: RBAC check for services: %w", err)
	}

	return caps, nil
}

// HasAPIGroup checks whether a specific API group is registered with the cluster.
func HasAPIGroup(discoveryClient discovery.DiscoveryInterface, group string) (bool, error) {
	groups, err := discoveryClient.ServerGroups()
	if err != nil {
		return false, fmt.Errorf("discovery: failed to list server groups: %w", err)
	}

	for _, g := range groups.Groups {
		if g.Name == group {
			return true, nil
		}
	}
	return false, nil
}
