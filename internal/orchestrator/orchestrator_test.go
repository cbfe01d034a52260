package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adverant/nexus/riskcore/internal/risk"
)

func TestFuseAllSafe(t *testing.T) {
	code := Fuse(EngineSeverities{}, risk.AccidentSafe)
	assert.Equal(t, 0, code)
}

func TestFuseSingleEngineDanger(t *testing.T) {
	code := Fuse(EngineSeverities{Material: risk.Danger}, risk.AccidentSafe)
	assert.Equal(t, 2, code)

	code = Fuse(EngineSeverities{FallZone: risk.Danger}, risk.AccidentSafe)
	assert.Equal(t, 5, code)

	code = Fuse(EngineSeverities{Vehicle: risk.Danger}, risk.AccidentSafe)
	assert.Equal(t, 8, code)
}

func TestFuseVehicleDominatesOnTie(t *testing.T) {
	// All three engines maxed simultaneously: the disjoint, increasing
	// offset ranges mean vehicle's contribution is always numerically
	// greatest.
	sev := EngineSeverities{Material: risk.Danger, FallZone: risk.Danger, Vehicle: risk.Danger}
	code := Fuse(sev, risk.AccidentSafe)
	assert.Equal(t, 8, code)
}

func TestFuseAccidentIncidentWithDominantEngine(t *testing.T) {
	sev := EngineSeverities{FallZone: risk.Danger}
	code := Fuse(sev, risk.AccidentIncident)
	assert.Equal(t, 6, code)
}

func TestFuseAccidentIncidentNoEngineActive(t *testing.T) {
	code := Fuse(EngineSeverities{}, risk.AccidentIncident)
	assert.Equal(t, 10, code)
}

func TestFuseWarningSeverityContributesLowerCode(t *testing.T) {
	code := Fuse(EngineSeverities{Material: risk.Warning}, risk.AccidentSafe)
	assert.Equal(t, 1, code)
}
