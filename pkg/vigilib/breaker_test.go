package vigilib

import (
	"errors"
	"testing"
	"time"
)

func TestBreaker_OpensAtThreshold(t *testing.T) {
	b := NewBreaker(3, time.Minute)
	boom := errors.New("boom")

	b.Record(boom)
	b.Record(boom)
	if !b.Allow() {
		t.Fatal("circuit open below threshold")
	}
	b.Record(boom)
	if b.Allow() {
		t.Fatal("circuit still closed after threshold consecutive failures")
	}
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b := NewBreaker(2, time.Minute)
	boom := errors.New("boom")

	b.Record(boom)
	b.Record(nil)
	b.Record(boom)
	if !b.Allow() {
		t.Fatal("circuit open despite an interleaved success")
	}
	if b.Failures() != 1 {
		t.Errorf("Failures() = %d, want 1", b.Failures())
	}
}

func TestBreaker_CooldownHalfOpens(t *testing.T) {
	b := NewBreaker(1, 20*time.Millisecond)
	b.Record(errors.New("boom"))
	if b.Allow() {
		t.Fatal("circuit closed immediately after opening")
	}
	time.Sleep(30 * time.Millisecond)
	if !b.Allow() {
		t.Fatal("circuit still open after cooldown expired")
	}
}

func TestNewBreaker_Defaults(t *testing.T) {
	b := NewBreaker(0, 0)
	if b.Threshold != DEF_BREAKER_THRESHOLD || b.Cooldown != DEF_BREAKER_COOLDOWN {
		t.Errorf("NewBreaker(0,0) = {%d %v}, want defaults", b.Threshold, b.Cooldown)
	}
}
