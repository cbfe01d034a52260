// Package orchestrator fuses the three per-class engine severities and the
// accident detector's state into a single integer risk code.
package orchestrator

import "github.com/adverant/nexus/riskcore/internal/risk"

// Offsets for the disjoint per-engine numeric ranges.
const (
	offsetMaterial = 0
	offsetFallZone = 3
	offsetVehicle  = 6
	codeUnknown    = 10
)

// EngineSeverities is the three per-class engines' output for one frame.
type EngineSeverities struct {
	Material risk.Severity
	FallZone risk.Severity
	Vehicle  risk.Severity
}

// Fuse computes the disjoint-range risk code from the three engine
// severities, then folds in the accident detector's state.
//
// Dominant-engine tie-break: when multiple engines are simultaneously at
// their maximum severity, the engine whose contribution has the greatest
// numeric value determines the "dominant" engine added to an INCIDENT's
// +3 offset. Since the three ranges are disjoint and increasing (material
// < fall-zone < vehicle), this structurally resolves ties as vehicle >
// fall-zone > material.
func Fuse(sev EngineSeverities, accident risk.AccidentState) int {
	materialContribution := contribution(offsetMaterial, sev.Material)
	fallZoneContribution := contribution(offsetFallZone, sev.FallZone)
	vehicleContribution := contribution(offsetVehicle, sev.Vehicle)

	riskCode := maxInt(materialContribution, maxInt(fallZoneContribution, vehicleContribution))
	if riskCode < 0 {
		riskCode = 0
	}

	if accident != risk.AccidentIncident {
		return riskCode
	}

	if riskCode == 0 {
		return codeUnknown
	}

	dominantOffset := dominantOffset(riskCode)
	return dominantOffset + 3
}

// contribution returns offset+severity when severity > SAFE, else 0.
func contribution(offset int, sev risk.Severity) int {
	if sev <= risk.Safe {
		return 0
	}
	return offset + int(sev)
}

// dominantOffset recovers which engine's offset produced riskCode, given
// the disjoint ranges material∈{1,2}, fallZone∈{4,5}, vehicle∈{7,8}.
func dominantOffset(riskCode int) int {
	switch {
	case riskCode >= offsetVehicle:
		return offsetVehicle
	case riskCode >= offsetFallZone:
		return offsetFallZone
	default:
		return offsetMaterial
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
