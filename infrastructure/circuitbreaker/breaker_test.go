package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errBackend = errors.New("backend down")

func TestBreaker_OpensAndRecovers(t *testing.T) {
	now := time.Unix(0, 0)
	var transitions []string

	b := New(Config{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Cooldown:         time.Minute,
		OnStateChange:    func(from, to State) { transitions = append(transitions, from.String()+"->"+to.String()) },
	})
	b.now = func() time.Time { return now }

	fail := func() error { return errBackend }
	ok := func() error { return nil }

	for range 2 {
		if err := b.Execute(fail); !errors.Is(err, errBackend) {
			t.Fatalf("Execute() error = %v", err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}

	called := false
	if err := b.Execute(func() error { called = true; return nil }); !errors.Is(err, ErrOpen) {
		t.Fatalf("Execute() while open error = %v", err)
	}
	if called {
		t.Fatal("fn ran while the circuit was open")
	}

	now = now.Add(time.Minute)
	if err := b.Execute(ok); err != nil {
		t.Fatalf("trial call error = %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %s, want closed", b.State())
	}

	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Unix(0, 0)
	b := New(Config{FailureThreshold: 1, Cooldown: time.Second})
	b.now = func() time.Time { return now }

	_ = b.Execute(func() error { return errBackend })
	now = now.Add(time.Second)
	_ = b.Execute(func() error { return errBackend })

	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrOpen) {
		t.Fatalf("Execute() error = %v, want ErrOpen", err)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := New(Config{FailureThreshold: 2})

	_ = b.Execute(func() error { return errBackend })
	_ = b.Execute(func() error { return nil })
	_ = b.Execute(func() error { return errBackend })

	if b.State() != StateClosed {
		t.Fatalf("state = %s, want closed", b.State())
	}
}
