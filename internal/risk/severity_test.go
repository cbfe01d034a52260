package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMax(t *testing.T) {
	assert.Equal(t, Danger, Max(Safe, Danger))
	assert.Equal(t, Warning, Max(Warning, Safe))
	assert.Equal(t, Safe, Max(Safe, Safe))
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "SAFE", Safe.String())
	assert.Equal(t, "WARNING", Warning.String())
	assert.Equal(t, "DANGER", Danger.String())
	assert.Equal(t, "UNKNOWN", Severity(99).String())
}
