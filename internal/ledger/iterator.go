package ledger

// SliceIterator iterates a materialized result set. Backends collect results
// inside their read snapshot and hand them out through this type, so callers may
// keep reading the ledger while iterating.
type SliceIterator[T any] struct {
	items []T
	pos   int
}

// NewSliceIterator returns an iterator over items.
func NewSliceIterator[T any](items []T) *SliceIterator[T] {
	return &SliceIterator[T]{items: items, pos: -1}
}

// Next advances the iterator.
func (it *SliceIterator[T]) Next() bool {
	if it.pos+1 >= len(it.items) {
		it.pos = len(it.items)
		return false
	}
	it.pos++
	return true
}

// Item returns the current element.
func (it *SliceIterator[T]) Item() T {
	return it.items[it.pos]
}

// Err always returns nil.
func (it *SliceIterator[T]) Err() error { return nil }

// Close releases the result set.
func (it *SliceIterator[T]) Close() error {
	it.items = nil
	it.pos = 0
	return nil
}

// Collect drains it into a slice and closes it.
func Collect[T any](it Iterator[T]) ([]T, error) {
	defer it.Close() //nolint:errcheck // slice iterators never fail to close
	var out []T
	for it.Next() {
		out = append(out, it.Item())
	}
	return out, it.Err()
}
