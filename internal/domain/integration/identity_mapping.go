package integration

// SyntheticDealIDFloor is the lowest value NextSyntheticID can build on
const SyntheticDealIDFloor int64 = 5000

// DemoMappings seeds a fresh store so lookups work out of the box
func DemoMappings() map[string]int64 {
	return map[string]int64{
		"reonic_proj_demo_001": 5001,
		"reonic_proj_demo_002": 5002,
	}
}

// IdentityMappingStore associates a FieldOps project id with a CRM deal id.
//
// Invariants:
//   - at most one deal id per project id at any instant
//   - entries are replaced, never merged, and never deleted
type IdentityMappingStore interface {
	// Lookup returns the deal id recorded for projectID
	Lookup(projectID string) (dealID int64, found bool)

	// Record inserts or overwrites the mapping for projectID
	Record(projectID string, dealID int64)

	// NextSyntheticID reserves a deal id distinct from every recorded or
	// previously reserved id: max(known ids, SyntheticDealIDFloor) + 1.
	NextSyntheticID() int64

	// Lock enters the critical section for projectID and returns its release
	// func. Upserts hold it across lookup, remote create and record.
	Lock(projectID string) (unlock func())

	// Snapshot returns a copy of all mappings
	Snapshot() map[string]int64
}
