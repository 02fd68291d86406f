// Package testutil provides shared test helpers for the dashboard.
// Import this in test files to avoid duplicating resource builders and the
// scripted control-plane fake.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	k8swatch "k8s.io/apimachinery/pkg/watch"

	v1alpha1 "github.com/language-operator/language-operator-dashboard/api/v1alpha1"
	"github.com/language-operator/language-operator-dashboard/internal/watch"
)

// MakeResource builds an unstructured language-operator resource for tests.
func MakeResource(kind, namespace, name, resourceVersion, organization string) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{}
	obj.SetAPIVersion(v1alpha1.GroupVersion.String())
	obj.SetKind(kind)
	obj.SetNamespace(namespace)
	obj.SetName(name)
	obj.SetResourceVersion(resourceVersion)
	if organization != "" {
		obj.SetLabels(map[string]string{v1alpha1.OrganizationLabel: organization})
	}
	return obj
}

// WatchAttempt records one subscription attempt against the fake API.
type WatchAttempt struct {
	Scope      watch.Scope
	ResumeFrom string
}

// FakeWatchAPI implements watch.API for tests. Every Watch call records the
// attempt and returns a fresh FakeWatcher the test scripts control-plane
// sequences on, unless an error was queued for that attempt.
type FakeWatchAPI struct {
	mu       sync.Mutex
	attempts []WatchAttempt
	watchers []*k8swatch.RaceFreeFakeWatcher
	errs     []error
}

// NewFakeWatchAPI creates an empty fake.
func NewFakeWatchAPI() *FakeWatchAPI {
	return &FakeWatchAPI{}
}

// Watch implements watch.API.
func (f *FakeWatchAPI) Watch(_ context.Context, scope watch.Scope, resumeFrom string) (k8swatch.Interface, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.attempts = append(f.attempts, WatchAttempt{Scope: scope, ResumeFrom: resumeFrom})
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	w := k8swatch.NewRaceFreeFake()
	f.watchers = append(f.watchers, w)
	return w, nil
}

// QueueError makes the next Watch call fail with err instead of returning
// a watcher.
func (f *FakeWatchAPI) QueueError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, err)
}

// AttemptCount returns how many Watch calls have been made.
func (f *FakeWatchAPI) AttemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.attempts)
}

// Attempts returns a copy of all recorded attempts.
func (f *FakeWatchAPI) Attempts() []WatchAttempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]WatchAttempt, len(f.attempts))
	copy(out, f.attempts)
	return out
}

// WaitWatcher blocks until the index-th watcher exists and returns it.
// Fails the test after two seconds.
func (f *FakeWatchAPI) WaitWatcher(t *testing.T, index int) *k8swatch.RaceFreeFakeWatcher {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		if len(f.watchers) > index {
			w := f.watchers[index]
			f.mu.Unlock()
			return w
		}
		f.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("watcher %d never opened", index)
	return nil
}
