package types

import (
	"fmt"
	"strings"
)

// PermissionType partitions Graph permissions into application roles and
// delegated scopes.
type PermissionType string

const (
	ApplicationPermission PermissionType = "Application"
	DelegatedPermission   PermissionType = "Delegated"
)

// ParsePermissionType accepts the canonical names as well as the short route
// forms ("app", "delegate") and the Graph resource-access kinds ("Role", "Scope").
// An empty string parses to the empty type, meaning "either".
func ParsePermissionType(s string) (PermissionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "application", "app", "role":
		return ApplicationPermission, nil
	case "delegated", "delegate", "scope":
		return DelegatedPermission, nil
	}
	return "", fmt.Errorf("unknown permission type %q (want Application or Delegated)", s)
}

// Permission is one Microsoft Graph permission definition. The base fields come
// from the static catalog; the live fields are only populated after the
// definitions have been merged with the Graph service principal.
type Permission struct {
	Id                      string         `json:"Id"`
	Value                   string         `json:"Value"`
	DisplayName             string         `json:"DisplayName,omitempty"`
	AdminConsentDisplayName string         `json:"AdminConsentDisplayName,omitempty"`
	Description             string         `json:"Description,omitempty"`
	AdminConsentDescription string         `json:"AdminConsentDescription,omitempty"`
	Type                    PermissionType `json:"Type,omitempty"`

	IsBuiltIn            *bool    `json:"IsBuiltIn,omitempty"`
	RequiresAdminConsent *bool    `json:"RequiresAdminConsent,omitempty"`
	AllowedMemberTypes   []string `json:"AllowedMemberTypes,omitempty"`
	Origin               string   `json:"Origin,omitempty"`
}

// Name is the authoritative display name for either permission type.
func (p Permission) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.AdminConsentDisplayName
}

// Summary is the authoritative description for either permission type.
func (p Permission) Summary() string {
	if p.Description != "" {
		return p.Description
	}
	return p.AdminConsentDescription
}

func (p Permission) SearchFields() []string {
	return []string{p.Value, p.Name(), p.Summary()}
}

// Augmented reports whether live Graph data has been merged onto p.
func (p Permission) Augmented() bool {
	return p.IsBuiltIn != nil || p.RequiresAdminConsent != nil
}
