package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]IssueStatus{
		"pending":     Submitted,
		"Pending":     Submitted,
		"open":        Submitted,
		"in-progress": InProgress,
		"In Progress": InProgress,
		"resolved":    Resolved,
		"rejected":    Resolved,
		" RESOLVED ":  Resolved,
		"garbage":     Submitted,
		"":            Submitted,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeStatus(in), "input %q", in)
	}
}

func TestNormalizeCategory(t *testing.T) {
	cases := map[string]IssueCategory{
		"infrastructure": Infrastructure,
		"Infrastructure": Infrastructure,
		"public-works":   PublicWorks,
		"public_works":   PublicWorks,
		"Public Works":   PublicWorks,
		"sanitation":     Sanitation,
		"electricity":    Electrical,
		"electrical":     Electrical,
		"other":          General,
		"safety":         General,
		"road":           Roads,
		"transport":      Roads,
		"water":          Water,
		"WASTE":          Waste,
		"unknown":        General,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeCategory(in), "input %q", in)
	}
}

func TestNormalizePriority(t *testing.T) {
	cases := map[string]Priority{
		"urgent":   Critical,
		"critical": Critical,
		"Critical": Critical,
		"high":     High,
		"low":      Low,
		"medium":   Medium,
		"whatever": Medium,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePriority(in), "input %q", in)
	}
}

func TestNormalizeProcessingStatus(t *testing.T) {
	assert.Equal(t, ProcessingError, NormalizeProcessingStatus("error"))
	assert.Equal(t, ProcessingTriaged, NormalizeProcessingStatus("Triaged"))
	assert.Equal(t, ProcessingPending, NormalizeProcessingStatus("queued"))
}

func TestNormalizeIsIdempotentOnCanonicalValues(t *testing.T) {
	for _, s := range []IssueStatus{Submitted, InProgress, Resolved} {
		assert.Equal(t, s, NormalizeStatus(string(NormalizeStatus(string(s)))))
	}
	for _, c := range []IssueCategory{Sanitation, PublicWorks, Electrical, General, Infrastructure, Water, Roads, Waste} {
		assert.Equal(t, c, NormalizeCategory(string(c)))
	}
	for _, p := range []Priority{Critical, High, Medium, Low} {
		assert.Equal(t, p, NormalizePriority(string(p)))
	}
}

func TestUserPasswordRoundTrip(t *testing.T) {
	u := &User{Password: "hunter22"}
	assert.NoError(t, u.HashPassword())
	assert.NotEqual(t, "hunter22", u.Password)
	assert.True(t, u.ComparePassword("hunter22"))
	assert.False(t, u.ComparePassword("wrong"))
	assert.False(t, (&User{}).ComparePassword(""))
}

func TestUserPatchApply(t *testing.T) {
	name := "Asha"
	verified := true
	u := &User{Name: "old", City: "Delhi"}
	patch := UserPatch{Name: &name, PhoneVerified: &verified}

	assert.False(t, patch.Empty())
	patch.Apply(u)

	assert.Equal(t, "Asha", u.Name)
	assert.Equal(t, "Delhi", u.City)
	assert.True(t, u.PhoneVerified)
	assert.True(t, UserPatch{}.Empty())
}

func TestPrimaryMediaURL(t *testing.T) {
	assert.Equal(t, "", (&Issue{}).PrimaryMediaURL())
	assert.Equal(t, "b", (&Issue{ImageURLs: []string{"", "b"}}).PrimaryMediaURL())
}
