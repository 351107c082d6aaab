package resource

import (
	"errors"
	"testing"
)

func TestTable_Basic(t *testing.T) {
	table := NewTable[string]()

	h, err := table.Insert("test")
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if h == InvalidHandle {
		t.Fatal("Expected non-zero handle")
	}

	val, ok := table.Get(h)
	if !ok {
		t.Fatal("Get failed")
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	val, ok = table.Take(h)
	if !ok {
		t.Fatal("Take failed")
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	if _, ok := table.Get(h); ok {
		t.Fatal("Expected Get to fail after Take")
	}
	if _, ok := table.Take(h); ok {
		t.Fatal("Expected second Take to fail")
	}
	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Take")
	}
}

func TestTable_Close(t *testing.T) {
	table := NewTable[int]()

	h, _ := table.Insert(1)
	table.Close()

	if !table.Closed() {
		t.Fatal("Closed() should report true")
	}

	_, err := table.Insert(2)
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("Expected ErrClosed after Close, got %v", err)
	}

	// Values inserted before Close remain the caller's to drain.
	if v, ok := table.Take(h); !ok || v != 1 {
		t.Fatalf("Take after Close = %v, %v", v, ok)
	}
}

func TestTable_Handles(t *testing.T) {
	table := NewTable[string]()

	h1, _ := table.Insert("a")
	h2, _ := table.Insert("b")
	h3, _ := table.Insert("c")
	table.Take(h2)

	handles := table.Handles()
	if len(handles) != 2 || handles[0] != h1 || handles[1] != h3 {
		t.Fatalf("Handles() = %v, want [%d %d]", handles, h1, h3)
	}
}

func TestTable_InvalidHandle(t *testing.T) {
	table := NewTable[string]()

	if _, ok := table.Get(InvalidHandle); ok {
		t.Fatal("Handle 0 should be invalid")
	}
	if _, ok := table.Take(InvalidHandle); ok {
		t.Fatal("Handle 0 should fail Take")
	}
	if _, ok := table.Get(999); ok {
		t.Fatal("Non-existent handle should be invalid")
	}
}
