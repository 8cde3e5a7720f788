package luamachine

import "testing"

func TestMemStore(t *testing.T) {
	s := NewMemStore()

	if _, ok := s.Get("bootAddress"); ok {
		t.Fatal("Get on an empty store reported a value")
	}

	s.Set("bootAddress", "5c6f8a22")
	v, ok := s.Get("bootAddress")
	if !ok || v != "5c6f8a22" {
		t.Fatalf("Get = %q (ok=%v), want 5c6f8a22", v, ok)
	}

	s.Set("bootAddress", "deadbeef")
	if v, _ := s.Get("bootAddress"); v != "deadbeef" {
		t.Errorf("Get after overwrite = %q, want deadbeef", v)
	}
}
