package scheduler

import (
	"testing"
	"time"

	"github.com/google/go-github/v68/github"

	"github.com/ralphcore/ralph/internal/tunables"
)

func checkRuns(specs ...[3]string) *github.ListCheckRunsResults {
	runs := make([]*github.CheckRun, 0, len(specs))
	for _, s := range specs {
		name, status, conclusion := s[0], s[1], s[2]
		runs = append(runs, &github.CheckRun{Name: &name, Status: &status, Conclusion: &conclusion})
	}
	total := len(runs)
	return &github.ListCheckRunsResults{Total: &total, CheckRuns: runs}
}

func TestSignatureIsOrderIndependent(t *testing.T) {
	a := checkRuns([3]string{"lint", "completed", "success"}, [3]string{"build", "in_progress", ""})
	b := checkRuns([3]string{"build", "in_progress", ""}, [3]string{"lint", "completed", "success"})
	if Signature(a) != Signature(b) {
		t.Fatalf("Signature should be independent of input order: %q vs %q", Signature(a), Signature(b))
	}
}

func TestSignatureChangesWithConclusion(t *testing.T) {
	a := checkRuns([3]string{"lint", "completed", "success"})
	b := checkRuns([3]string{"lint", "completed", "failure"})
	if Signature(a) == Signature(b) {
		t.Fatalf("Signature should change when a conclusion changes")
	}
}

func TestSignatureNilIsEmpty(t *testing.T) {
	if got := Signature(nil); got != "" {
		t.Fatalf("Signature(nil) = %q, want empty", got)
	}
}

func TestAllFinalRequiresEveryCheckCompleted(t *testing.T) {
	if AllFinal(nil) {
		t.Fatalf("AllFinal(nil) should be false")
	}
	pending := checkRuns([3]string{"lint", "completed", "success"}, [3]string{"build", "in_progress", ""})
	if AllFinal(pending) {
		t.Fatalf("expected AllFinal=false while a check is still in_progress")
	}
	done := checkRuns([3]string{"lint", "completed", "success"}, [3]string{"build", "completed", "success"})
	if !AllFinal(done) {
		t.Fatalf("expected AllFinal=true once every check is completed")
	}
}

func TestRequiredChecksPollerResetsOnSignatureChangeAndBacksOffOtherwise(t *testing.T) {
	p := NewRequiredChecksPoller()

	d1 := p.Next("sig-a")
	if d1 != tunables.RequiredChecksBaseDelay {
		t.Fatalf("first Next() = %v, want base delay %v", d1, tunables.RequiredChecksBaseDelay)
	}

	d2 := p.Next("sig-a")
	if d2 != tunables.RequiredChecksBaseDelay {
		t.Fatalf("Next() with unchanged signature should return the delay in effect before advancing, got %v", d2)
	}

	d3 := p.Next("sig-a")
	want := time.Duration(float64(tunables.RequiredChecksBaseDelay) * tunables.RequiredChecksMultiplier)
	if d3 != want {
		t.Fatalf("Next() after repeated unchanged signature = %v, want %v", d3, want)
	}

	// A changed signature resets back to base delay.
	d4 := p.Next("sig-b")
	if d4 != tunables.RequiredChecksBaseDelay {
		t.Fatalf("Next() after signature change = %v, want base delay %v", d4, tunables.RequiredChecksBaseDelay)
	}
}

func TestRequiredChecksPollerCapsAtMaxDelay(t *testing.T) {
	p := NewRequiredChecksPoller()
	p.Next("sig")
	for i := 0; i < 30; i++ {
		p.Next("sig")
	}
	if p.delay > tunables.RequiredChecksMaxDelay {
		t.Fatalf("delay = %v, want capped at %v", p.delay, tunables.RequiredChecksMaxDelay)
	}
}
