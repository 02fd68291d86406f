// Package v1alpha1 holds the API coordinates of the language-operator
// custom resources the dashboard watches. The dashboard never decodes these
// resources into typed structs — objects flow through as unstructured — so
// this package only pins down group/version/resource coordinates and the
// labels the operator stamps on everything it manages.
package v1alpha1

import (
	"k8s.io/apimachinery/pkg/runtime/schema"
)

const (
	// Group is the API group of all language-operator custom resources.
	Group = "language-operator.io"

	// Version is the served version the dashboard subscribes to.
	Version = "v1alpha1"

	// OrganizationLabel is stamped by the operator on every resource it
	// manages, carrying the owning organization's ID. Tenant scoping is a
	// label selector over this key.
	OrganizationLabel = "language-operator.io/organization"
)

// GroupVersion is the group/version of the watched custom resources.
var GroupVersion = schema.GroupVersion{Group: Group, Version: Version}

// Resource plural names under GroupVersion.
const (
	ClustersResource = "languageclusters"
	AgentsResource   = "languageagents"
	ModelsResource   = "languagemodels"
	ToolsResource    = "languagetools"
	PersonasResource = "languagepersonas"
)

// ClustersGVR returns the GroupVersionResource for LanguageCluster.
func ClustersGVR() schema.GroupVersionResource {
	return GroupVersion.WithResource(ClustersResource)
}

// AgentsGVR returns the GroupVersionResource for LanguageAgent.
func AgentsGVR() schema.GroupVersionResource {
	return GroupVersion.WithResource(AgentsResource)
}

// ModelsGVR returns the GroupVersionResource for LanguageModel.
func ModelsGVR() schema.GroupVersionResource {
	return GroupVersion.WithResource(ModelsResource)
}

// ToolsGVR returns the GroupVersionResource for LanguageTool.
func ToolsGVR() schema.GroupVersionResource {
	return GroupVersion.WithResource(ToolsResource)
}

// PersonasGVR returns the GroupVersionResource for LanguagePersona.
func PersonasGVR() schema.GroupVersionResource {
	return GroupVersion.WithResource(PersonasResource)
}

// EventsGVR returns the GroupVersionResource for core v1 Events, watched
// namespace-wide so the dashboard can show operator activity alongside the
// custom resources.
func EventsGVR() schema.GroupVersionResource {
	return schema.GroupVersionResource{Group: "", Version: "v1", Resource: "events"}
}
