package board

import (
	"sort"
	"sync"
)

// Change is delivered to subscribers after every swap. Version increases by
// one per swap, so a subscriber that receives changes out of order can drop
// stale ones.
type Change struct {
	Version  uint64
	Snapshot Snapshot
}

// Board holds the live snapshot. All writes go through Update or Replace,
// which are the only critical sections; nothing blocking may run inside fn.
type Board struct {
	mu      sync.Mutex
	cur     Snapshot
	version uint64

	subMu   sync.Mutex
	subs    map[int]func(Change)
	nextSub int
}

func New(s Snapshot) *Board {
	return &Board{cur: s.Clone(), subs: map[int]func(Change){}}
}

// Snapshot returns a private copy of the live state.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cur.Clone()
}

func (b *Board) Version() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// Update runs fn against a copy of the live state and, when fn reports a
// change, installs its result. prev is the state fn saw; callers keep it to
// revert later.
func (b *Board) Update(fn func(cur Snapshot) (Snapshot, bool)) (prev, next Snapshot, changed bool) {
	b.mu.Lock()
	prev = b.cur
	next, changed = fn(prev.Clone())
	if !changed {
		b.mu.Unlock()
		return prev, prev, false
	}
	b.cur = next
	b.version++
	ch := Change{Version: b.version, Snapshot: next.Clone()}
	b.mu.Unlock()

	b.notify(ch)
	return prev, ch.Snapshot, true
}

// Replace installs s unconditionally and returns what it replaced.
func (b *Board) Replace(s Snapshot) Snapshot {
	_, prev := b.swap(s)
	return prev
}

func (b *Board) swap(s Snapshot) (Change, Snapshot) {
	b.mu.Lock()
	prev := b.cur
	b.cur = s.Clone()
	b.version++
	ch := Change{Version: b.version, Snapshot: b.cur.Clone()}
	b.mu.Unlock()

	b.notify(ch)
	return ch, prev
}

// Subscribe registers fn for every future change. The returned func removes it.
func (b *Board) Subscribe(fn func(Change)) func() {
	if fn == nil {
		return func() {}
	}
	b.subMu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	b.subMu.Unlock()
	return func() {
		b.subMu.Lock()
		delete(b.subs, id)
		b.subMu.Unlock()
	}
}

func (b *Board) notify(ch Change) {
	b.subMu.Lock()
	ids := make([]int, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Change), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, b.subs[id])
	}
	b.subMu.Unlock()

	for _, fn := range fns {
		fn(ch)
	}
}
