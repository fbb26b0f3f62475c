package pool

import (
	"context"
	"fmt"
	"testing"
)

type mockSession struct {
	connected   bool
	closed      bool
	failConnect bool
	failClose   bool
}

func (m *mockSession) Connect(ctx context.Context) error {
	if m.failConnect {
		return fmt.Errorf("connection failed")
	}
	m.connected = true
	return nil
}

func (m *mockSession) Close() error {
	m.closed = true
	m.connected = false
	if m.failClose {
		return fmt.Errorf("close failed")
	}
	return nil
}

func TestPool_GetPut(t *testing.T) {
	p := New[*mockSession](5)

	factory := func() *mockSession {
		return &mockSession{}
	}

	s1, reused1 := p.Get(factory)
	if reused1 {
		t.Error("Expected new session, got reused")
	}
	if s1 == nil {
		t.Fatal("Expected session, got nil")
	}

	if err := p.Put(s1); err != nil {
		t.Errorf("Put failed: %v", err)
	}
	if p.Idle() != 1 {
		t.Errorf("Expected 1 idle session, got %d", p.Idle())
	}

	s2, reused2 := p.Get(factory)
	if !reused2 {
		t.Error("Expected reused session, got new")
	}
	if s2 != s1 {
		t.Error("Expected same session instance")
	}
}

func TestPool_PutWhenFullClosesSession(t *testing.T) {
	p := New[*mockSession](1)

	first := &mockSession{}
	second := &mockSession{}
	if err := p.Put(first); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := p.Put(second); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if first.closed {
		t.Error("Expected pooled session to stay open")
	}
	if !second.closed {
		t.Error("Expected overflow session to be closed")
	}
}

func TestPool_Close(t *testing.T) {
	p := New[*mockSession](5)

	s := &mockSession{}
	p.Put(s)

	if err := p.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if !s.closed {
		t.Error("Expected session to be closed")
	}

	late := &mockSession{}
	if err := p.Put(late); err != nil {
		t.Errorf("Put after Close failed: %v", err)
	}
	if !late.closed {
		t.Error("Expected session put after Close to be closed")
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	got, reused := p.Get(func() *mockSession { return &mockSession{} })
	if reused || got == nil {
		t.Error("Expected a fresh session from a closed pool")
	}
}

func TestPool_CloseReportsErrors(t *testing.T) {
	p := New[*mockSession](2)
	p.Put(&mockSession{failClose: true})
	if err := p.Close(); err == nil {
		t.Error("Expected close error")
	}
}

func TestPool_Renew(t *testing.T) {
	p := New[*mockSession](5)
	stale := &mockSession{connected: true}

	fresh, ok := p.Renew(context.Background(), stale, func() *mockSession {
		return &mockSession{}
	})
	if !ok {
		t.Fatal("Expected renew to succeed")
	}
	if !stale.closed {
		t.Error("Expected stale session to be closed")
	}
	if !fresh.connected {
		t.Error("Expected fresh session to be connected")
	}

	_, ok = p.Renew(context.Background(), fresh, func() *mockSession {
		return &mockSession{failConnect: true}
	})
	if ok {
		t.Error("Expected renew to fail when connect fails")
	}
}
