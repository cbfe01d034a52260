package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteByClass(t *testing.T) {
	vehicleClasses := map[int]struct{}{1: {}, 2: {}}
	materialClasses := map[int]struct{}{3: {}}
	fallZoneClasses := map[int]struct{}{4: {}, 5: {}}

	tracks := []*Track{
		{ID: 1, ClassID: 1},
		{ID: 2, ClassID: 3},
		{ID: 3, ClassID: 5},
		{ID: 4, ClassID: 99}, // no role, must be dropped
	}

	groups := RouteByClass(tracks, vehicleClasses, materialClasses, fallZoneClasses)

	if assert.Len(t, groups.Vehicle, 1) {
		assert.Equal(t, int64(1), groups.Vehicle[0].ID)
	}
	if assert.Len(t, groups.Material, 1) {
		assert.Equal(t, int64(2), groups.Material[0].ID)
	}
	if assert.Len(t, groups.FallZone, 1) {
		assert.Equal(t, int64(3), groups.FallZone[0].ID)
	}
}

func TestRouteByClassEmptyInput(t *testing.T) {
	groups := RouteByClass(nil, nil, nil, nil)
	assert.Empty(t, groups.Vehicle)
	assert.Empty(t, groups.Material)
	assert.Empty(t, groups.FallZone)
}
