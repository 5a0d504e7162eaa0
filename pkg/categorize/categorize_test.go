package categorize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		value    string
		expected string
	}{
		{"Directory.Read.All", "identity"},
		{"User.Read", "identity"},
		{"Group.ReadWrite.All", "identity"},
		{"Application.ReadWrite.All", "applications"},
		{"AppRoleAssignment.ReadWrite.All", "applications"},
		{"Mail.Send", "mail"},
		{"MailboxSettings.Read", "mail"},
		{"IMAP.AccessAsUser.All", "mail"},
		{"Calendars.ReadWrite", "calendar"},
		{"Contacts.Read", "contacts"},
		{"Files.Read.All", "files"},
		{"Sites.FullControl.All", "sites"},
		{"ChannelMessage.Send", "teams"},
		{"Chat.Read", "teams"},
		{"Tasks.ReadWrite", "tasks"},
		{"Notes.Create", "notes"},
		{"DeviceManagementApps.Read.All", "devices"},
		{"SecurityEvents.Read.All", "security"},
		{"Policy.Read.All", "security"},
		{"Reports.Read.All", "reports"},
		{"EducationAssignments.Read", "education"},
		{"PrintJob.ReadBasic", "print"},
		{"Xyzzy.Foo", Other},
		{"", Other},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.expected, Categorize(tt.value))
		})
	}
}

func TestCategorize_CaseInsensitive(t *testing.T) {
	assert.Equal(t, "mail", Categorize("mail.send"))
	assert.Equal(t, "mail", Categorize("MAIL.SEND"))
}

func TestCategorize_WholeWordOnly(t *testing.T) {
	// "Users" in the middle of a token is not the "users" keyword.
	assert.Equal(t, Other, Categorize("PowerUsersX.Read"))
}

func TestCategorize_EarlierCategoryWins(t *testing.T) {
	// both identity ("group") and teams ("team") keywords are present
	assert.Equal(t, "identity", Categorize("Group.Team.ReadWrite"))
	// both applications and mail keywords are present
	assert.Equal(t, "applications", Categorize("Mail.Application.Read"))
}

func TestCategorize_CompoundFallback(t *testing.T) {
	tests := []struct {
		value    string
		expected string
	}{
		// no whole-word keyword, but directory + read together
		{"DirectoryRecommendations.Read.All", "identity"},
		{"DirectoryRecommendations.ReadWrite.All", "identity"},
		{"EduRosteringEducationSync.Read", "education"},
		{"DeviceManagementCloudCA.Read.All", "devices"},
		{"MailboxConfigItem.Read", "mail"},
		{"TeamsUserConfiguration.Read.All", "teams"},
		{"ThreatSubmission.Read", "security"},
		{"PrintSettingsX.Read", "print"},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.expected, Categorize(tt.value))
		})
	}

	// "directory" without read or write does not trigger the identity fallback
	assert.Equal(t, Other, Categorize("DirectorySync.Manage"))
}

func TestCategorize_Deterministic(t *testing.T) {
	values := []string{"Directory.Read.All", "Mail.Send", "Xyzzy.Foo", "Chat.Read"}
	for _, v := range values {
		first := Categorize(v)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, Categorize(v))
		}
		assert.True(t, IsCategory(first))
	}
}

func TestCategories(t *testing.T) {
	names := Categories()
	assert.Equal(t, "identity", names[0])
	assert.Equal(t, Other, names[len(names)-1])
	assert.Contains(t, names, "mail")
	assert.True(t, IsCategory("teams"))
	assert.False(t, IsCategory("nope"))
}
