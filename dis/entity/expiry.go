package entity

// expiryQueue is a min-heap of remote entities ordered by deadline.
// Each entity holds its own index so updates and removals are O(log n).
type expiryQueue []*RemoteEntity

// Len implements heap.Interface
func (q expiryQueue) Len() int {
	return len(q)
}

// Less implements heap.Interface; ties break on hash for determinism
func (q expiryQueue) Less(i, j int) bool {
	if !q[i].deadline.Equal(q[j].deadline) {
		return q[i].deadline.Before(q[j].deadline)
	}
	return q[i].Hash < q[j].Hash
}

// Swap implements heap.Interface
func (q expiryQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

// Push implements heap.Interface
func (q *expiryQueue) Push(x interface{}) {
	e := x.(*RemoteEntity)
	e.index = len(*q)
	*q = append(*q, e)
}

// Pop implements heap.Interface
func (q *expiryQueue) Pop() interface{} {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*q = old[:n-1]
	return e
}

// peek returns the entity with the earliest deadline
func (q expiryQueue) peek() *RemoteEntity {
	if len(q) == 0 {
		return nil
	}
	return q[0]
}
