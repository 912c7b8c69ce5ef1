package retry

import (
	"errors"
	"testing"
	"time"
)

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	var slept []time.Duration
	p := Policy{Attempts: 3, Delay: time.Second, Sleep: func(d time.Duration) { slept = append(slept, d) }}

	err := p.Do("op", func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if len(slept) != 0 {
		t.Fatalf("expected no sleeps, got %v", slept)
	}
}

func TestDoLinearDelayAndExhaustion(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	var slept []time.Duration
	p := Policy{Attempts: 4, Delay: time.Second, Sleep: func(d time.Duration) { slept = append(slept, d) }}

	err := p.Do("op", func() error {
		calls++
		return boom
	})

	if calls != 4 {
		t.Fatalf("expected 4 attempts, got %d", calls)
	}

	want := []time.Duration{1 * time.Second, 2 * time.Second, 3 * time.Second}
	if len(slept) != len(want) {
		t.Fatalf("expected %d sleeps, got %v", len(want), slept)
	}
	for i, d := range want {
		if slept[i] != d {
			t.Errorf("sleep %d: expected %v, got %v", i, d, slept[i])
		}
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %T: %v", err, err)
	}
	if exhausted.Attempts != 4 || exhausted.Op != "op" {
		t.Errorf("unexpected ExhaustedError fields: %+v", exhausted)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected error to wrap the underlying cause")
	}
}

func TestDoStopsAfterSuccess(t *testing.T) {
	calls := 0
	p := Policy{Attempts: 5, Delay: time.Millisecond, Sleep: func(time.Duration) {}}

	err := p.Do("op", func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestPermanentStopsRetrying(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0
	p := Policy{Attempts: 5, Delay: time.Millisecond, Sleep: func(time.Duration) {}}

	err := p.Do("op", func() error {
		calls++
		return Permanent(fatal)
	})
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if !errors.Is(err, fatal) {
		t.Fatalf("expected underlying error back, got %v", err)
	}
	var exhausted *ExhaustedError
	if errors.As(err, &exhausted) {
		t.Fatalf("permanent errors must not be reported as exhaustion")
	}
}

func TestPermanentNil(t *testing.T) {
	if Permanent(nil) != nil {
		t.Fatal("Permanent(nil) should be nil")
	}
}

func TestOnRetryReceivesAttempts(t *testing.T) {
	var attempts []int
	p := Policy{
		Attempts: 3,
		Delay:    time.Millisecond,
		Sleep:    func(time.Duration) {},
		OnRetry:  func(op string, attempt int, err error) { attempts = append(attempts, attempt) },
	}

	p.Do("op", func() error { return errors.New("nope") })

	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Fatalf("expected OnRetry for attempts [1 2], got %v", attempts)
	}
}
