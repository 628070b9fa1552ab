package matching

// Seeker is an endpoint asking for a partner right now.
type Seeker struct {
	Endpoint  string
	ChatType  string
	Interests []string
}

// Candidate is the waiting entry chosen for a seeker.
type Candidate struct {
	Entry           Entry
	SharedInterests []string
}

// FindMatch picks a partner for the seeker from the waiting queue, or
// reports false when nobody of the same chat type is waiting. It does not
// modify the queue; the caller dequeues the winner.
func (q *Queue) FindMatch(s Seeker) (*Candidate, bool) {
	if c := q.tryInterestMatch(s); c != nil {
		return c, true
	}
	if c := q.tryFallbackMatch(s); c != nil {
		return c, true
	}
	return nil, false
}
