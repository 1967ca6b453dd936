package randomgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPick(t *testing.T) {
	for i := 0; i < 100; i++ {
		assert.Contains(t, firstNames, PickFirstName())
		assert.Contains(t, lastNames, PickLastName())
	}
}

// TestNamesAreValid checks that every name satisfies the contact name length rule.
func TestNamesAreValid(t *testing.T) {
	for _, name := range append(append([]string{}, firstNames...), lastNames...) {
		assert.GreaterOrEqual(t, len(name), 2, name)
		assert.LessOrEqual(t, len(name), 50, name)
	}
}

func TestPickEmail(t *testing.T) {
	email := PickEmail("Erika", "Mustermann")
	assert.True(t, strings.HasPrefix(email, "erika.mustermann."))
	assert.True(t, strings.HasSuffix(email, "@example.com"))
}
