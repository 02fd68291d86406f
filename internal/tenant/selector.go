package tenant

import (
	v1alpha1 "github.com/language-operator/language-operator-dashboard/api/v1alpha1"
)

// OrganizationSelector returns the label selector that scopes a watch to
// one organization's resources. Pure: same input, same output.
func OrganizationSelector(organizationID string) string {
	return v1alpha1.OrganizationLabel + "=" + organizationID
}

// OrganizationNamespace returns the namespace the operator provisions for
// an organization. Pure, derived once per stream from the resolved tenant.
func OrganizationNamespace(organizationID string) string {
	return "org-" + organizationID
}
