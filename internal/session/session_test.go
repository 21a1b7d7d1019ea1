package session

import (
	"sync"
	"testing"
)

func TestManager_CreateAndGet(t *testing.T) {
	m := NewManager()

	token := m.Create("alice")
	if token == "" {
		t.Fatal("expected a non-empty token")
	}

	s, ok := m.Get(token)
	if !ok {
		t.Fatal("expected session to exist")
	}
	if !s.Authenticated || s.Username != "alice" {
		t.Errorf("unexpected session: %+v", s)
	}
}

func TestManager_Destroy(t *testing.T) {
	m := NewManager()
	token := m.Create("alice")

	m.Destroy(token)

	if _, ok := m.Get(token); ok {
		t.Error("expected session to be gone after destroy")
	}
	// Destroying again is a no-op.
	m.Destroy(token)
	if m.Count() != 0 {
		t.Errorf("expected 0 sessions, got %d", m.Count())
	}
}

func TestManager_UnknownToken(t *testing.T) {
	m := NewManager()
	if _, ok := m.Get("no-such-token"); ok {
		t.Error("expected lookup of unknown token to fail")
	}
}

// A destroyed session must never be observable half-cleared: a token
// either resolves to an authenticated session or does not resolve at all.
func TestManager_ConcurrentDestroy(t *testing.T) {
	m := NewManager()
	token := m.Create("alice")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		m.Destroy(token)
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			if s, ok := m.Get(token); ok {
				if !s.Authenticated || s.Username == "" {
					t.Error("observed a session with authenticated state but no identity")
					return
				}
			}
		}
	}()
	wg.Wait()

	if _, ok := m.Get(token); ok {
		t.Error("expected session to be gone")
	}
}
