package sequence

import "testing"

func TestQueueFIFOOrder(t *testing.T) {
	q := NewQueue[int]()
	for i := 0; i < 5; i++ {
		q.Enqueue(i)
	}
	if q.Len() != 5 {
		t.Fatalf("len = %d, want 5", q.Len())
	}
	for i := 0; i < 5; i++ {
		v, ok := q.Dequeue()
		if !ok || v != i {
			t.Fatalf("dequeue %d: got %d ok=%v", i, v, ok)
		}
	}
	if !q.IsEmpty() {
		t.Fatal("queue should be empty")
	}
}

func TestQueueEmptyDequeue(t *testing.T) {
	q := NewQueue[string]()
	if _, ok := q.Dequeue(); ok {
		t.Fatal("dequeue on empty queue should report false")
	}
	if _, ok := q.Peek(); ok {
		t.Fatal("peek on empty queue should report false")
	}
}

func TestQueuePeekDoesNotRemove(t *testing.T) {
	q := NewQueue[int]()
	q.Enqueue(42)
	v, ok := q.Peek()
	if !ok || v != 42 {
		t.Fatalf("peek: got %d ok=%v", v, ok)
	}
	if q.Len() != 1 {
		t.Fatalf("peek must not remove, len = %d", q.Len())
	}
}

func TestQueueInterleaved(t *testing.T) {
	q := NewQueue[int]()
	q.Enqueue(1)
	q.Enqueue(2)
	if v, _ := q.Dequeue(); v != 1 {
		t.Fatalf("got %d, want 1", v)
	}
	q.Enqueue(3)
	want := []int{2, 3}
	for _, w := range want {
		if v, _ := q.Dequeue(); v != w {
			t.Fatalf("got %d, want %d", v, w)
		}
	}
}
