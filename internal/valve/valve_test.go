package valve

import (
	"testing"
	"time"
)

func TestShouldContinueUnbounded(t *testing.T) {
	v := New(0, time.Millisecond)
	v.AdvanceDownloaded(1_000_000)
	if !v.ShouldContinue() {
		t.Fatal("allowedLag=0 should never gate")
	}
}

func TestShouldContinueRespectsLag(t *testing.T) {
	v := New(5, time.Millisecond)
	v.AdvanceDownloaded(10)
	if v.ShouldContinue() {
		t.Fatal("expected gating once lag >= allowedLag")
	}
	v.AdvanceFinished(6)
	if !v.ShouldContinue() {
		t.Fatal("expected continue once lag < allowedLag")
	}
}

func TestAdvanceNeverGoesBackwards(t *testing.T) {
	v := New(100, time.Millisecond)
	v.AdvanceDownloaded(10)
	v.AdvanceDownloaded(3)
	if got := v.Snapshot().DownloadedBlock; got != 10 {
		t.Fatalf("got %d, want 10", got)
	}
}
