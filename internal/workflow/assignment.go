package workflow

import "sort"

// Candidate is a technician considered for auto-assignment. Computed per
// decision, never persisted.
type Candidate struct {
	TechnicianID string
	DepartmentID string
	Workload     int
	Capacity     int
	Available    bool
}

// ResolveAssignee picks the least-loaded available candidate for the given
// department. Ranking is ascending workload/capacity ratio with ascending
// technician id as the tiebreak, so the outcome is deterministic. ok is false
// when the pool is empty; the caller leaves the ticket unassigned for manual
// pickup.
func ResolveAssignee(departmentID string, pool []Candidate) (technicianID string, ok bool) {
	eligible := make([]Candidate, 0, len(pool))
	for _, c := range pool {
		if !c.Available || c.DepartmentID != departmentID {
			continue
		}
		if c.Capacity > 0 && c.Workload >= c.Capacity {
			continue
		}
		eligible = append(eligible, c)
	}
	if len(eligible) == 0 {
		return "", false
	}
	sort.Slice(eligible, func(i, j int) bool {
		if r := compareLoad(eligible[i], eligible[j]); r != 0 {
			return r < 0
		}
		return eligible[i].TechnicianID < eligible[j].TechnicianID
	})
	return eligible[0].TechnicianID, true
}

// compareLoad orders by workload/capacity without floating point:
// a/b < c/d iff a*d < c*b for positive capacities. Zero capacity sorts last.
func compareLoad(a, b Candidate) int {
	if a.Capacity <= 0 && b.Capacity <= 0 {
		return 0
	}
	if a.Capacity <= 0 {
		return 1
	}
	if b.Capacity <= 0 {
		return -1
	}
	left := a.Workload * b.Capacity
	right := b.Workload * a.Capacity
	switch {
	case left < right:
		return -1
	case left > right:
		return 1
	default:
		return 0
	}
}
