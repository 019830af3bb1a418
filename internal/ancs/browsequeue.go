package ancs

// BrowseQueue holds service ranges waiting to be re-discovered, without duplicates.
type BrowseQueue struct {
	ranges []HandleRange
}

// Add queues r unless an identical range is already queued. It reports whether r was added.
func (q *BrowseQueue) Add(r HandleRange) bool {
	for _, queued := range q.ranges {
		if queued == r {
			return false
		}
	}
	q.ranges = append(q.ranges, r)
	return true
}

// Pop removes and returns the oldest range.
func (q *BrowseQueue) Pop() (HandleRange, bool) {
	if len(q.ranges) == 0 {
		return HandleRange{}, false
	}
	r := q.ranges[0]
	q.ranges = q.ranges[1:]
	return r, true
}

func (q *BrowseQueue) Len() int {
	return len(q.ranges)
}

func (q *BrowseQueue) Clear() {
	q.ranges = nil
}
