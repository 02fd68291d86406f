package watch

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	k8swatch "k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/dynamic"
)

// Scope fixes what one subscription observes. It is immutable for the
// lifetime of the owning stream and derived once from the resolved tenant.
type Scope struct {
	Namespace     string
	LabelSelector string
	GVR           schema.GroupVersionResource
}

func (s Scope) String() string {
	return fmt.Sprintf("%s/%s[%s]", s.Namespace, s.GVR.Resource, s.LabelSelector)
}

// API is the outbound boundary to the control-plane watch endpoint.
// resumeFrom is the resumption position of the last processed event;
// empty means start from the current state (full sync).
type API interface {
	Watch(ctx context.Context, scope Scope, resumeFrom string) (k8swatch.Interface, error)
}

// DynamicAPI implements API over a dynamic Kubernetes client.
type DynamicAPI struct {
	client dynamic.Interface
}

// NewDynamicAPI creates an API backed by the given dynamic client.
func NewDynamicAPI(client dynamic.Interface) *DynamicAPI {
	return &DynamicAPI{client: client}
}

// Watch opens a subscription for the scope's resource collection. Bookmarks
// are requested so the resumption position advances even when no resource
// changes.
func (a *DynamicAPI) Watch(ctx context.Context, scope Scope, resumeFrom string) (k8swatch.Interface, error) {
	opts := metav1.ListOptions{
		LabelSelector:       scope.LabelSelector,
		ResourceVersion:     resumeFrom,
		AllowWatchBookmarks: true,
	}
	w, err := a.client.Resource(scope.GVR).Namespace(scope.Namespace).Watch(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", scope, err)
	}
	return w, nil
}

// IsCompacted reports whether err indicates the resumption position has been
// compacted away by the control plane (HTTP 410 Gone / resource version too
// old). The next subscription attempt must start without a seed.
func IsCompacted(err error) bool {
	return apierrors.IsResourceExpired(err) || apierrors.IsGone(err)
}
