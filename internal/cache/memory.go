package cache

import (
	"encoding/json"
	"sync"

	"github.com/cespare/xxhash/v2"

	"taskflow/internal/payload"
	"taskflow/internal/tferr"
)

const memoryShardCount = 16

// entry is a single memory-backed cache row.
type entry struct {
	fragment payload.Fragment
	seq      uint64
}

// shard guards a slice of the overall keyspace behind its own mutex, so
// concurrent completions in the parallel executor's cache probes don't
// serialize on a single global lock. The coordinator is still the only
// caller per the concurrency model, so contention here is defensive rather
// than load-bearing, but it costs nothing to shard.
type shard struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// Memory is the in-memory Provider: a sharded mapping from
// (fingerprint, canonical-inputs) to fragment, bounded only by process
// memory. Clear(N>0) keeps the N most-recently-inserted entries across the
// whole provider, not per shard.
type Memory struct {
	shards [memoryShardCount]*shard
	seq    uint64
	seqMu  sync.Mutex
}

// NewMemory constructs an empty Memory provider.
func NewMemory() *Memory {
	m := &Memory{}
	for i := range m.shards {
		m.shards[i] = &shard{entries: make(map[string]entry)}
	}
	return m
}

func (m *Memory) shardFor(digest string) *shard {
	h := xxhash.Sum64String(digest)
	return m.shards[h%uint64(memoryShardCount)]
}

func (m *Memory) Get(fingerprint string, inputs map[string]any) (payload.Fragment, bool, error) {
	key, err := BuildKey(fingerprint, inputs)
	if err != nil {
		return nil, false, err
	}
	digest := key.digest()
	sh := m.shardFor(digest)

	sh.mu.RLock()
	defer sh.mu.RUnlock()
	e, ok := sh.entries[digest]
	if !ok {
		return nil, false, nil
	}
	return cloneFragment(e.fragment), true, nil
}

func (m *Memory) Set(fingerprint string, inputs map[string]any, fragment payload.Fragment) error {
	key, err := BuildKey(fingerprint, inputs)
	if err != nil {
		return err
	}
	digest := key.digest()
	sh := m.shardFor(digest)

	m.seqMu.Lock()
	m.seq++
	seq := m.seq
	m.seqMu.Unlock()

	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.entries[digest] = entry{fragment: cloneFragment(fragment), seq: seq}
	return nil
}

func (m *Memory) Clear(retain int) error {
	if retain < 0 {
		return tferr.BadArgument("retain must be >= 0")
	}
	if retain == 0 {
		for _, sh := range m.shards {
			sh.mu.Lock()
			sh.entries = make(map[string]entry)
			sh.mu.Unlock()
		}
		return nil
	}

	type seen struct {
		shardIdx int
		digest   string
		seq      uint64
	}
	var all []seen
	for i, sh := range m.shards {
		sh.mu.RLock()
		for d, e := range sh.entries {
			all = append(all, seen{shardIdx: i, digest: d, seq: e.seq})
		}
		sh.mu.RUnlock()
	}
	if len(all) <= retain {
		return nil
	}

	// Keep the `retain` largest seq values; drop the rest.
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if all[j].seq > all[i].seq {
				all[i], all[j] = all[j], all[i]
			}
		}
	}
	toDrop := all[retain:]
	for _, d := range toDrop {
		sh := m.shards[d.shardIdx]
		sh.mu.Lock()
		delete(sh.entries, d.digest)
		sh.mu.Unlock()
	}
	return nil
}

func (m *Memory) SelfCheck() error {
	return selfCheck(m)
}

func (m *Memory) Close() error { return nil }

// cloneFragment returns a deep-enough copy (via a JSON roundtrip of the
// fragment's own structure is overkill; a shallow copy suffices because
// fragment values are treated as immutable once stored) to prevent a
// caller from mutating a map still referenced by the cache.
func cloneFragment(f payload.Fragment) payload.Fragment {
	if f == nil {
		return payload.Fragment{}
	}
	out := make(payload.Fragment, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// selfCheck implements the shared smoke test used by every Provider
// implementation: set two entries, confirm Get returns them, clear,
// confirm Get reports absence.
func selfCheck(p Provider) error {
	const fpA, fpB = "taskflow/selfcheck/a", "taskflow/selfcheck/b"
	inA := map[string]any{"x": 1}
	inB := map[string]any{"y": "z"}
	fragA := payload.Fragment{"out": 1}
	fragB := payload.Fragment{"out": "ok"}

	if err := p.Set(fpA, inA, fragA); err != nil {
		return tferr.CacheBackend("self-check set A: " + err.Error())
	}
	if err := p.Set(fpB, inB, fragB); err != nil {
		return tferr.CacheBackend("self-check set B: " + err.Error())
	}

	gotA, ok, err := p.Get(fpA, inA)
	if err != nil || !ok {
		return tferr.CacheBackend("self-check get A missing")
	}
	if !fragmentsEqual(gotA, fragA) {
		return tferr.CacheBackend("self-check get A mismatch")
	}

	gotB, ok, err := p.Get(fpB, inB)
	if err != nil || !ok {
		return tferr.CacheBackend("self-check get B missing")
	}
	if !fragmentsEqual(gotB, fragB) {
		return tferr.CacheBackend("self-check get B mismatch")
	}

	if err := p.Clear(0); err != nil {
		return tferr.CacheBackend("self-check clear: " + err.Error())
	}

	if _, ok, _ := p.Get(fpA, inA); ok {
		return tferr.CacheBackend("self-check entry A survived clear")
	}
	return nil
}

func fragmentsEqual(a, b payload.Fragment) bool {
	ja, err1 := json.Marshal(a)
	jb, err2 := json.Marshal(b)
	if err1 != nil || err2 != nil {
		return false
	}
	return string(ja) == string(jb)
}
