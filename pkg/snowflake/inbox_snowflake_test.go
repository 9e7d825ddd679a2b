package snowflake

import (
	"sync"
	"testing"
	"time"
)

func TestNewGenerator_NodeRange(t *testing.T) {
	tests := []struct {
		name    string
		node    int64
		wantErr bool
	}{
		{"zero node", 0, false},
		{"max node", maxNode, false},
		{"negative node", -1, true},
		{"over max", maxNode + 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGenerator(tt.node)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewGenerator(%d) error = %v, wantErr %v", tt.node, err, tt.wantErr)
			}
		})
	}
}

func TestNext_Unique(t *testing.T) {
	g, err := NewGenerator(1)
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[int64]bool)
	for i := 0; i < 10000; i++ {
		id := g.Next()
		if seen[id] {
			t.Fatalf("duplicate id %d at iteration %d", id, i)
		}
		seen[id] = true
	}
}

func TestNext_Monotonic(t *testing.T) {
	g, _ := NewGenerator(0)
	prev := g.Next()
	for i := 0; i < 1000; i++ {
		id := g.Next()
		if id <= prev {
			t.Fatalf("id %d not greater than previous %d", id, prev)
		}
		prev = id
	}
}

func TestNext_Concurrent(t *testing.T) {
	g, _ := NewGenerator(2)
	const workers = 8
	const perWorker = 1000

	var mu sync.Mutex
	seen := make(map[int64]bool)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]int64, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				ids = append(ids, g.Next())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range ids {
				if seen[id] {
					t.Errorf("duplicate id %d", id)
					return
				}
				seen[id] = true
			}
		}()
	}
	wg.Wait()
	if len(seen) != workers*perWorker {
		t.Errorf("expected %d unique ids, got %d", workers*perWorker, len(seen))
	}
}

func TestTimestamp(t *testing.T) {
	g, _ := NewGenerator(0)
	before := time.Now().Add(-time.Second)
	id := g.Next()
	after := time.Now().Add(time.Second)

	ts := Timestamp(id)
	if ts.Before(before) || ts.After(after) {
		t.Errorf("Timestamp(%d) = %v, want between %v and %v", id, ts, before, after)
	}
}
