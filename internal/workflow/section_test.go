package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectionFieldsAreDisjoint(t *testing.T) {
	seen := map[string]Section{}
	for _, section := range Sections {
		fields := FieldsOf(section)
		require.NotEmptyf(t, fields, "section %s owns no fields", section)
		for _, f := range fields {
			owner, dup := seen[f]
			assert.Falsef(t, dup, "field %q owned by both %s and %s", f, owner, section)
			seen[f] = section
		}
	}
}

func TestSectionForField(t *testing.T) {
	s, ok := SectionForField("projectTitle")
	require.True(t, ok)
	assert.Equal(t, SectionProject, s)

	s, ok = SectionForField("applicantSignature")
	require.True(t, ok)
	assert.Equal(t, SectionSign, s)

	_, ok = SectionForField("noSuchField")
	assert.False(t, ok)
}

func TestIsValidSection(t *testing.T) {
	for _, s := range Sections {
		assert.True(t, IsValidSection(s))
	}
	assert.False(t, IsValidSection(Section("summary")))
}

func TestIsValidRole(t *testing.T) {
	for _, r := range Roles {
		assert.True(t, IsValidRole(r))
	}
	assert.False(t, IsValidRole(Role("REVIEWER")))
}
