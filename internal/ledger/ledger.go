// Package ledger numbers the values met on each side of a function-pair
// comparison so that cyclic IR (loops, phis, back-edges) resolves by
// identity instead of re-recursion.
package ledger

// Side selects one of the two compared modules.
type Side uint8

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == Left {
		return Right
	}
	return Left
}

// Serial is a session-local canonical identifier.
type Serial int

// Ledger holds one serial map per side. Not safe for concurrent use; a
// comparison session owns its ledger exclusively.
type Ledger struct {
	base  Serial
	sides [2]map[any]Serial
}

// New returns an empty ledger whose first serial on each side is base.
func New(base Serial) *Ledger {
	l := &Ledger{base: base}
	l.Reset()
	return l
}

// Reset forgets every assignment.
func (l *Ledger) Reset() {
	l.sides[Left] = make(map[any]Serial)
	l.sides[Right] = make(map[any]Serial)
}

// AssignOrLookup returns the serial of v on side, allocating the next one
// when v is met for the first time. fresh reports the allocation.
func (l *Ledger) AssignOrLookup(side Side, v any) (serial Serial, fresh bool) {
	m := l.sides[side]
	if sn, ok := m[v]; ok {
		return sn, false
	}
	sn := l.base + Serial(len(m))
	m[v] = sn
	return sn, true
}

// Lookup returns the serial of v without allocating.
func (l *Ledger) Lookup(side Side, v any) (Serial, bool) {
	sn, ok := l.sides[side][v]
	return sn, ok
}

// Len reports how many values side has numbered.
func (l *Ledger) Len(side Side) int {
	return len(l.sides[side])
}

// SameCorrespondence reports whether two serials denote the same position.
func SameCorrespondence(left, right Serial) bool {
	return left == right
}

// Compare orders two serials.
func Compare(left, right Serial) int {
	return CompareNumbers(int64(left), int64(right))
}

// CompareNumbers is the three-way comparison every comparator rule reduces to.
func CompareNumbers(l, r int64) int {
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	default:
		return 0
	}
}
