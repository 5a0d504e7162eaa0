package types

// Application is one Microsoft first-party application from the published
// catalog. Field names match the upstream JSON document.
type Application struct {
	AppId                  string `json:"AppId"`
	AppDisplayName         string `json:"AppDisplayName"`
	AppOwnerOrganizationId string `json:"AppOwnerOrganizationId,omitempty"`
	Source                 string `json:"Source"`
}

// SearchFields returns the fields free-text search looks at.
func (a Application) SearchFields() []string {
	return []string{a.AppDisplayName, a.AppId}
}
