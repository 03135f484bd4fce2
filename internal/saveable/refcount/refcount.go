// Package refcount counts references to saveables, reconciling instance
// identity with value equality.
//
// The first instance of an equality class that is counted becomes the key
// of that class. Later instances that are equal to the key, but not the
// same instance, join the class: they are appended to the class's list of
// equal instances and share its count. Every increment appends one entry to
// that list and every decrement removes one, so the list length always
// matches the count. When the key's last entry leaves a class that still
// has members, the next member in insertion order becomes the key.
//
// Classes are held under identity boxes rather than under the saveables
// themselves, so a saveable whose equality changes after it was counted is
// still found: decrements look instances up by identity, never by equality.
// Callers that change a saveable's equality call Reconcile so that later
// equal instances join the right class.
//
// A Table is not safe for concurrent use.
package refcount

import (
	"fmt"

	"workbench/internal/saveable"
)

// InvariantError is the panic value raised when the table is asked to
// decrement an instance it never counted. It signals a programming error in
// the caller.
type InvariantError struct {
	Op   string
	Name string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("refcount: %s of untracked saveable %q", e.Op, e.Name)
}

// box is the surrogate key of an equality class.
type box struct {
	key saveable.Saveable
}

// Table maps equality classes of saveables to reference counts.
type Table struct {
	counts map[*box]int
	equal  map[*box][]saveable.Saveable
	index  map[saveable.Saveable]*box
	order  []*box
}

// New returns an empty table.
func New() *Table {
	return &Table{
		counts: make(map[*box]int),
		equal:  make(map[*box][]saveable.Saveable),
		index:  make(map[saveable.Saveable]*box),
	}
}

// Increment counts one more reference to s. It reports whether s started a
// new equality class, that is whether the class count went from 0 to 1.
func (t *Table) Increment(s saveable.Saveable) bool {
	b, ok := t.index[s]
	if !ok {
		b = t.findEqual(s, nil)
	}
	if b == nil {
		b = &box{key: s}
		t.order = append(t.order, b)
		t.index[s] = b
		t.counts[b] = 1
		t.equal[b] = []saveable.Saveable{s}
		return true
	}
	t.index[s] = b
	t.counts[b]++
	t.equal[b] = append(t.equal[b], s)
	return false
}

// Decrement drops one reference to s. It reports whether that was the last
// reference of s's equality class. Decrementing an instance that is not
// counted panics with *InvariantError.
func (t *Table) Decrement(s saveable.Saveable) bool {
	b, ok := t.index[s]
	if !ok {
		panic(&InvariantError{Op: "decrement", Name: nameOf(s)})
	}

	members := t.equal[b]
	i := saveable.IndexSame(members, s)
	if i < 0 {
		panic(&InvariantError{Op: "decrement", Name: nameOf(s)})
	}
	members = append(members[:i:i], members[i+1:]...)
	t.counts[b]--

	if saveable.IndexSame(members, s) < 0 {
		delete(t.index, s)
	}

	if t.counts[b] == 0 {
		delete(t.counts, b)
		delete(t.equal, b)
		t.removeOrder(b)
		return true
	}

	t.equal[b] = members
	if b.key == s && saveable.IndexSame(members, s) < 0 {
		b.key = members[0]
	}
	return false
}

// Reconcile re-checks the class of s after its equality may have changed.
// When s no longer equals the other members of its class, all of its
// references move: into the class whose key s now equals if there is one,
// into a new class keyed by s otherwise. A lone instance that now equals
// another class's key is merged into that class. If s was
// the key of the class it left, the next remaining member takes over. It
// reports whether s moved.
func (t *Table) Reconcile(s saveable.Saveable) bool {
	b, ok := t.index[s]
	if !ok {
		return false
	}
	members := t.equal[b]
	others := make([]saveable.Saveable, 0, len(members))
	for _, m := range members {
		if m != s {
			others = append(others, m)
		}
	}
	if len(others) > 0 && s.Equal(others[0]) {
		return false
	}
	target := t.findEqual(s, b)
	if len(others) == 0 && target == nil {
		return false
	}

	n := len(members) - len(others)
	if len(others) == 0 {
		delete(t.counts, b)
		delete(t.equal, b)
		t.removeOrder(b)
	} else {
		t.counts[b] = len(others)
		t.equal[b] = others
		if b.key == s {
			b.key = others[0]
		}
	}

	if target == nil {
		target = &box{key: s}
		t.order = append(t.order, target)
	}
	for i := 0; i < n; i++ {
		t.equal[target] = append(t.equal[target], s)
	}
	t.counts[target] += n
	t.index[s] = target
	return true
}

// Count returns the number of references to s's equality class. s is looked
// up by identity first and by equality second.
func (t *Table) Count(s saveable.Saveable) int {
	if b := t.lookup(s); b != nil {
		return t.counts[b]
	}
	return 0
}

// Contains reports whether s's equality class is counted.
func (t *Table) Contains(s saveable.Saveable) bool {
	return t.lookup(s) != nil
}

// Tracks reports whether the instance s itself is counted.
func (t *Table) Tracks(s saveable.Saveable) bool {
	_, ok := t.index[s]
	return ok
}

// Key returns the instance currently keying s's equality class, or nil.
func (t *Table) Key(s saveable.Saveable) saveable.Saveable {
	if b := t.lookup(s); b != nil {
		return b.key
	}
	return nil
}

// EqualInstances returns a copy of the member list of s's equality class in
// insertion order, one entry per outstanding reference.
func (t *Table) EqualInstances(s saveable.Saveable) []saveable.Saveable {
	b := t.lookup(s)
	if b == nil {
		return nil
	}
	return append([]saveable.Saveable(nil), t.equal[b]...)
}

// Keys returns the key of every class, oldest class first.
func (t *Table) Keys() []saveable.Saveable {
	keys := make([]saveable.Saveable, len(t.order))
	for i, b := range t.order {
		keys[i] = b.key
	}
	return keys
}

// Len returns the number of equality classes.
func (t *Table) Len() int {
	return len(t.order)
}

// Verify checks the table's internal consistency.
func (t *Table) Verify() error {
	if len(t.order) != len(t.counts) || len(t.counts) != len(t.equal) {
		return fmt.Errorf("refcount: %d classes, %d counts, %d member lists", len(t.order), len(t.counts), len(t.equal))
	}
	for _, b := range t.order {
		members := t.equal[b]
		if t.counts[b] != len(members) {
			return fmt.Errorf("refcount: class %q counts %d but has %d members", nameOf(b.key), t.counts[b], len(members))
		}
		if saveable.IndexSame(members, b.key) < 0 {
			return fmt.Errorf("refcount: key %q is not a member of its class", nameOf(b.key))
		}
		for _, m := range members {
			if t.index[m] != b {
				return fmt.Errorf("refcount: member %q is not indexed to its class", nameOf(m))
			}
		}
	}
	for s, b := range t.index {
		if saveable.IndexSame(t.equal[b], s) < 0 {
			return fmt.Errorf("refcount: index entry %q has no membership", nameOf(s))
		}
	}
	return nil
}

func (t *Table) lookup(s saveable.Saveable) *box {
	if b, ok := t.index[s]; ok {
		return b
	}
	return t.findEqual(s, nil)
}

// findEqual returns the first class, other than skip, whose key equals s.
func (t *Table) findEqual(s saveable.Saveable, skip *box) *box {
	if s == nil {
		return nil
	}
	for _, b := range t.order {
		if b != skip && b.key.Equal(s) {
			return b
		}
	}
	return nil
}

func (t *Table) removeOrder(b *box) {
	for i, o := range t.order {
		if o == b {
			t.order = append(t.order[:i], t.order[i+1:]...)
			return
		}
	}
}

func nameOf(s saveable.Saveable) string {
	if s == nil {
		return "<nil>"
	}
	return s.Name()
}
