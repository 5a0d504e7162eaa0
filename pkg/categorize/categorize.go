// Package categorize classifies Graph permission values into topic categories
// and filters catalog collections by free text and facets.
package categorize

import (
	"regexp"
	"strings"
)

// Other is the catch-all category returned when nothing in the table matches.
const Other = "other"

type category struct {
	name     string
	keywords []string
	pattern  *regexp.Regexp
}

// The order is significant: the first category with a matching keyword wins.
var table = compile([]category{
	{name: "identity", keywords: []string{
		"directory", "user", "users", "group", "groups", "groupmember", "member",
		"organization", "domain", "rolemanagement", "administrativeunit",
		"identityprovider", "identityuserflow", "orgcontact", "people",
		"openid", "profile", "email", "offline_access", "user-lifecycleinfo",
	}},
	{name: "applications", keywords: []string{
		"application", "applications", "approleassignment", "delegatedpermissiongrant",
		"serviceprincipalendpoint", "synchronization", "onpremisespublishingprofiles",
		"customsecattributeassignment", "customsecattributedefinition",
	}},
	{name: "mail", keywords: []string{
		"mail", "mailboxsettings", "mailboxfolder", "mailboxitem", "imap", "pop", "smtp",
		"exchangemanageasapp",
	}},
	{name: "calendar", keywords: []string{
		"calendars", "calendar", "schedule", "place", "bookings", "bookingsappointment",
	}},
	{name: "contacts", keywords: []string{"contacts"}},
	{name: "files", keywords: []string{
		"files", "filestoragecontainer", "externalitem", "externalconnection",
	}},
	{name: "sites", keywords: []string{"sites", "sharepointtenantsettings", "termstore"}},
	{name: "teams", keywords: []string{
		"team", "teams", "teamwork", "teammember", "teamsactivity", "teamsapp",
		"teamsappinstallation", "teamstab", "teamsettings", "teamtemplates",
		"channel", "channelmember", "channelmessage", "channelsettings",
		"chat", "chatmember", "chatmessage", "onlinemeetings", "onlinemeetingartifact",
		"onlinemeetingrecording", "onlinemeetingtranscript", "calls", "callrecords",
		"presence", "virtualevent",
	}},
	{name: "tasks", keywords: []string{"tasks"}},
	{name: "notes", keywords: []string{"notes"}},
	{name: "devices", keywords: []string{
		"device", "devicelocalcredential", "devicemanagementapps",
		"devicemanagementconfiguration", "devicemanagementmanageddevices",
		"devicemanagementrbac", "devicemanagementserviceconfig", "bitlockerkey",
	}},
	{name: "security", keywords: []string{
		"securityevents", "securityactions", "securityalert", "securityincident",
		"threatassessment", "threathunting", "threatindicators", "threatintelligence",
		"identityriskevent", "identityriskyuser", "identityriskyserviceprincipal",
		"policy", "auditlog", "ediscovery", "informationprotectionpolicy",
		"userauthenticationmethod", "authenticationcontext", "accessreview",
		"entitlementmanagement", "privilegedaccess", "rolemanagementpolicy",
	}},
	{name: "reports", keywords: []string{"reports", "reportsettings", "analytics"}},
	{name: "education", keywords: []string{
		"educationassignments", "educationroster", "educationadministration",
	}},
	{name: "print", keywords: []string{
		"printer", "printjob", "printconnector", "printsettings", "printtaskdefinition",
	}},
})

// compoundRule matches when the lowercased value contains every term in all and
// at least one term in any (if any is non-empty). Only consulted after the
// primary table scan fails.
type compoundRule struct {
	name string
	all  []string
	any  []string
}

var fallbacks = []compoundRule{
	{name: "identity", all: []string{"directory"}, any: []string{"read", "write"}},
	{name: "education", all: []string{"education"}},
	{name: "devices", all: []string{"devicemanagement"}},
	{name: "mail", all: []string{"mailbox"}},
	{name: "teams", any: []string{"team", "channel", "chat"}},
	{name: "security", any: []string{"threat", "security"}},
	{name: "print", all: []string{"print"}},
}

func compile(categories []category) []category {
	for i := range categories {
		quoted := make([]string, len(categories[i].keywords))
		for j, kw := range categories[i].keywords {
			quoted[j] = regexp.QuoteMeta(kw)
		}
		categories[i].pattern = regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
	}
	return categories
}

// Categorize returns the category of a permission value such as
// "Directory.Read.All". It always returns exactly one category.
func Categorize(value string) string {
	for _, c := range table {
		if c.pattern.MatchString(value) {
			return c.name
		}
	}

	lower := strings.ToLower(value)
	for _, rule := range fallbacks {
		if rule.matches(lower) {
			return rule.name
		}
	}

	return Other
}

func (r compoundRule) matches(lower string) bool {
	if len(r.all) == 0 && len(r.any) == 0 {
		return false
	}
	for _, term := range r.all {
		if !strings.Contains(lower, term) {
			return false
		}
	}
	if len(r.any) == 0 {
		return true
	}
	for _, term := range r.any {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// Categories lists every category name in precedence order, ending with Other.
func Categories() []string {
	names := make([]string, 0, len(table)+1)
	for _, c := range table {
		names = append(names, c.name)
	}
	return append(names, Other)
}

// IsCategory reports whether name is a known category.
func IsCategory(name string) bool {
	for _, c := range Categories() {
		if c == name {
			return true
		}
	}
	return false
}
