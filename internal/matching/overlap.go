package matching

// tryInterestMatch is the preferred tier, a single scan in arrival order.
// An entry of the same chat type qualifies when either side declared no
// interests or the two sets intersect; the first one to qualify wins,
// whatever the size of the overlap. Returns nil when every waiter's
// interests are disjoint from the seeker's.
func (q *Queue) tryInterestMatch(s Seeker) *Candidate {
	for _, e := range q.entries {
		if e.Endpoint == s.Endpoint || e.ChatType != s.ChatType {
			continue
		}
		if len(s.Interests) == 0 || len(e.Interests) == 0 {
			return &Candidate{Entry: e}
		}
		if shared := sharedInterests(s.Interests, e.Interests); len(shared) > 0 {
			return &Candidate{Entry: e, SharedInterests: shared}
		}
	}
	return nil
}
