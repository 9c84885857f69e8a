package dispatch

import (
	"sync"
	"testing"
)

func TestLoopRunsTasksInOrder(t *testing.T) {
	l := New()
	t.Cleanup(l.Close)

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}
	l.Do(func() {})

	if len(got) != 100 {
		t.Fatalf("expected 100 tasks, got %d", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("task %d ran out of order (got %d)", i, v)
		}
	}
}

func TestLoopPostFromTask(t *testing.T) {
	l := New()
	t.Cleanup(l.Close)

	var order []string
	var wg sync.WaitGroup
	wg.Add(1)
	l.Post(func() {
		order = append(order, "outer")
		l.Post(func() {
			order = append(order, "inner")
			wg.Done()
		})
	})
	wg.Wait()
	l.Do(func() {})

	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Fatalf("unexpected order %v", order)
	}
}

func TestLoopSerializesConcurrentPosts(t *testing.T) {
	l := New()
	t.Cleanup(l.Close)

	counter := 0
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				l.Post(func() { counter++ })
			}
		}()
	}
	wg.Wait()
	l.Do(func() {})

	if counter != 2000 {
		t.Fatalf("expected 2000 increments, got %d", counter)
	}
}

func TestLoopClosedRejectsTasks(t *testing.T) {
	l := New()
	ran := false
	l.Post(func() { ran = true })
	l.Close()

	if !ran {
		t.Fatal("expected queued task to run before close returned")
	}
	if l.Post(func() {}) {
		t.Fatal("expected post after close to be rejected")
	}
	if l.Do(func() {}) {
		t.Fatal("expected do after close to be rejected")
	}
	l.Close()
}
