package worklist

// Worklist is a FIFO queue of pending work items.
type Worklist[T any] struct {
	list []T
}

func Empty[T any]() Worklist[T] {
	return Worklist[T]{}
}

func (w *Worklist[T]) GetNext() (ret T) {
	if len(w.list) == 0 {
		return
	}
	next := w.list[0]
	w.list = w.list[1:]
	return next
}

func (w *Worklist[T]) IsEmpty() bool {
	return len(w.list) == 0
}

// Len is the number of pending elements.
func (w *Worklist[T]) Len() int {
	return len(w.list)
}

// ProcessBounded processes the worklist in FIFO order until it is empty,
// or until `limit` elements have been processed. A limit of 0 means unbounded. The returned flag
// is false if elements were left in the worklist. If `do` returns false
// processing stops immediately and the worklist is left as is.
func (w *Worklist[T]) ProcessBounded(
	limit int,
	do func(
		next T,
		add func(element T)) bool) (drained bool) {
	for n := 0; !w.IsEmpty(); n++ {
		if limit > 0 && n >= limit {
			return false
		}
		if !do(w.GetNext(), w.Add) {
			return false
		}
	}
	return true
}

func (w *Worklist[T]) Add(el T) {
	w.list = append(w.list, el)
}
