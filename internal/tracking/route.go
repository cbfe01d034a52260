package tracking

// ClassGroups buckets tracked objects by their role in the risk-assessment
// pipeline, mirroring original_source's track_objects_for_risk_detection.
type ClassGroups struct {
	Vehicle  []*Track
	Material []*Track
	FallZone []*Track
}

// RouteByClass partitions tracks into vehicle/material/fall-zone buckets by
// class-id membership. A track whose class belongs to none of the three
// sets is dropped from all buckets (it plays no role in risk assessment).
func RouteByClass(tracks []*Track, vehicleClasses, materialClasses, fallZoneClasses map[int]struct{}) ClassGroups {
	var groups ClassGroups
	for _, t := range tracks {
		switch {
		case inSet(t.ClassID, vehicleClasses):
			groups.Vehicle = append(groups.Vehicle, t)
		case inSet(t.ClassID, materialClasses):
			groups.Material = append(groups.Material, t)
		case inSet(t.ClassID, fallZoneClasses):
			groups.FallZone = append(groups.FallZone, t)
		}
	}
	return groups
}

func inSet(id int, set map[int]struct{}) bool {
	_, ok := set[id]
	return ok
}
