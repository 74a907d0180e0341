package kvcache

import (
	"math/rand"
	"runtime"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/WSPlXA/fdkvcache/fdtoken"
)

// A mixed workload of concurrent Insert/Get/Write/Erase/FindHandle on random
// keys across a Sharded cache. Should pass under `-race` without detector
// reports: correctness here means no panic, no data race, not that every
// operation succeeds (handles raced against by an Erase are expected to
// start failing validation).
func TestRace_ShardedMixedWorkload(t *testing.T) {
	c := NewSharded[string, []byte](16, 8_192, ShardedOptions[string, []byte]{})

	workers := 4 * runtime.GOMAXPROCS(0)
	keyspace := 4096
	deadline := time.Now().Add(2 * time.Second)

	var handlesMu sync.Mutex
	handles := make(map[string]fdtoken.Token, keyspace)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)*9973))
			for time.Now().Before(deadline) {
				k := "k:" + strconv.Itoa(r.Intn(keyspace))
				switch r.Intn(100) {
				case 0, 1, 2, 3, 4: // ~5% — Erase a previously seen handle
					handlesMu.Lock()
					h, ok := handles[k]
					handlesMu.Unlock()
					if ok {
						c.Erase(h)
					}
				case 5, 6, 7, 8, 9: // ~5% — InsertOrAssign
					h := c.InsertOrAssign(1, k, []byte("x"))
					handlesMu.Lock()
					handles[k] = h
					handlesMu.Unlock()
				case 10, 11, 12, 13, 14, 15, 16, 17, 18, 19: // ~10% — Insert
					h := c.Insert(1, k, []byte("x"))
					if !fdtoken.IsNull(h) {
						handlesMu.Lock()
						handles[k] = h
						handlesMu.Unlock()
					}
				case 20, 21, 22, 23: // ~4% — Write
					handlesMu.Lock()
					h, ok := handles[k]
					handlesMu.Unlock()
					if ok {
						c.Write(h, func(v *[]byte) { *v = append(*v, 'x') })
					}
				default: // ~76% — Get / FindHandle
					if r.Intn(2) == 0 {
						c.FindHandle(k)
					} else {
						handlesMu.Lock()
						h, ok := handles[k]
						handlesMu.Unlock()
						if ok {
							var out []byte
							c.Get(h, &out)
						}
					}
				}
			}
		}(w)
	}
	wg.Wait()
}

// Many goroutines racing InsertOrAssign/FindHandle on the exact same key must
// never hand out two distinct live handles for it at once: the owning
// shard's lock serializes them.
func TestRace_SameKeyContention(t *testing.T) {
	c := NewSharded[string, int](4, 1024, ShardedOptions[string, int]{})
	const key = "contended"
	const goroutines = 64

	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		i := i
		go func() {
			defer wg.Done()
			<-start
			c.InsertOrAssign(1, key, i)
			c.FindHandle(key)
		}()
	}
	close(start)
	wg.Wait()

	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after concurrent InsertOrAssign on one key", c.Len())
	}
}
