package orchestrator

import (
	"sync"

	"github.com/robocurse/robocurse/chunker"
)

// chunkQueue is the FIFO queue of chunks waiting to be dispatched; it is
// mutated only from within Tick.
type chunkQueue struct {
	mu    sync.Mutex
	items []chunker.Chunk
}

func newChunkQueue() *chunkQueue {
	return &chunkQueue{}
}

func (q *chunkQueue) push(c chunker.Chunk) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, c)
}

func (q *chunkQueue) pop() (chunker.Chunk, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return chunker.Chunk{}, false
	}

	c := q.items[0]
	q.items = q.items[1:]

	return c, true
}

func (q *chunkQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// activeJobMap is the in-flight jobs map keyed by process id.
type activeJobMap struct {
	mu    sync.Mutex
	byPid map[int]*activeJob
}

func newActiveJobMap() *activeJobMap {
	return &activeJobMap{byPid: make(map[int]*activeJob)}
}

func (m *activeJobMap) put(pid int, aj *activeJob) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.byPid[pid] = aj
}

func (m *activeJobMap) get(pid int) (*activeJob, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	aj, ok := m.byPid[pid]

	return aj, ok
}

func (m *activeJobMap) delete(pid int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.byPid, pid)
}

func (m *activeJobMap) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.byPid)
}

// pids returns a stable snapshot of keys to range over, since Tick must
// not hold the map lock while calling out to completeJob/kill.
func (m *activeJobMap) pids() []int {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]int, 0, len(m.byPid))
	for pid := range m.byPid {
		out = append(out, pid)
	}

	return out
}

// chunkBag collects chunks that have reached a terminal state, complete
// or failed.
type chunkBag struct {
	mu    sync.Mutex
	items []chunker.Chunk
}

func newChunkBag() *chunkBag {
	return &chunkBag{}
}

func (b *chunkBag) push(c chunker.Chunk) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items = append(b.items, c)
}

func (b *chunkBag) snapshot() []chunker.Chunk {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]chunker.Chunk, len(b.items))
	copy(out, b.items)

	return out
}

func (b *chunkBag) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.items)
}
