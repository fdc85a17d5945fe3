package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
)

func TestExponentialBackoffRecovers(t *testing.T) {
	b := NewExponentialBackoff()
	b.InitialInterval = time.Millisecond
	b.Reset()

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		if attempts < 3 {
			return errors.New("not yet up")
		}
		return nil
	}, b)

	if err != nil {
		t.Fatalf("retry gave up: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestExponentialBackoffGivesUp(t *testing.T) {
	b := NewExponentialBackoff()
	if b.MaxElapsedTime == 0 {
		t.Fatal("boot-time connection retry must not run forever")
	}
}

func TestConstantBackoffInterval(t *testing.T) {
	b := NewConstantBackoff(5 * time.Second)
	for i := 0; i < 3; i++ {
		if got := b.NextBackOff(); got != 5*time.Second {
			t.Fatalf("NextBackOff = %v, want a fixed 5s", got)
		}
	}
}
