package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamesLikelyMatch(t *testing.T) {
	assert.True(t, NamesLikelyMatch("Amoxicilline 1g", "amoxicilline"))
	assert.True(t, NamesLikelyMatch("aspirine", "Aspirine 500mg"))
	assert.True(t, NamesLikelyMatch("  Doliprane ", "doliprane"))
	assert.False(t, NamesLikelyMatch("Ibuprofène", "Aspirine"))
	assert.False(t, NamesLikelyMatch("", "Aspirine"))
	assert.False(t, NamesLikelyMatch("Aspirine", ""))
}

func TestGroupMatchesName(t *testing.T) {
	// token contained in the name
	assert.True(t, groupMatchesName("paracetamol, doliprane", "Doliprane 1000mg"))
	// name contained in a token
	assert.True(t, groupMatchesName("efferalgan codeine", "efferalgan"))
	// word-token equality
	assert.True(t, groupMatchesName("ains, aspirine", "aspirine enfant"))

	assert.False(t, groupMatchesName("ains, ibuprofene", "Doliprane"))
	assert.False(t, groupMatchesName("", "Doliprane"))
	assert.False(t, groupMatchesName("ains", ""))
	assert.False(t, groupMatchesName(" , ,", "Doliprane"))
}
