package notifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueForRiskCodeRoutesDangerAndIncidentToCritical(t *testing.T) {
	for _, code := range []int{2, 3, 5, 6, 8, 9, 10} {
		assert.Equal(t, queueCritical, queueForRiskCode(code), "risk code %d", code)
	}
}

func TestQueueForRiskCodeRoutesRoutineUpdatesToDefault(t *testing.T) {
	for _, code := range []int{0, 1, 4, 7} {
		assert.Equal(t, queueDefault, queueForRiskCode(code), "risk code %d", code)
	}
}
