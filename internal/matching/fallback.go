package matching

// tryFallbackMatch pairs with the oldest entry of the same chat type,
// regardless of interests. The queue is ordered by arrival so the first
// eligible entry is the one that has waited longest.
func (q *Queue) tryFallbackMatch(s Seeker) *Candidate {
	for _, e := range q.entries {
		if e.Endpoint == s.Endpoint || e.ChatType != s.ChatType {
			continue
		}
		return &Candidate{Entry: e}
	}
	return nil
}
