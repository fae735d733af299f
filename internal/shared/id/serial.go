package id

// Serial allocates strictly increasing form serial ids. It is owned by the
// UI goroutine and is not safe for concurrent use.
type Serial struct {
	next int64
}

// NewSerial starts allocation at start.
func NewSerial(start int64) *Serial {
	return &Serial{next: start}
}

// Next returns a fresh id.
func (s *Serial) Next() int64 {
	v := s.next
	s.next++
	return v
}

// Peek returns the id the next call to Next will return.
func (s *Serial) Peek() int64 {
	return s.next
}

// RaiseFloor moves the next id up to floor. Lower values are ignored so ids
// are never reissued. It reports whether the floor moved.
func (s *Serial) RaiseFloor(floor int64) bool {
	if floor <= s.next {
		return false
	}
	s.next = floor
	return true
}
