package scheduler

import "testing"

func TestDefaultStagesOrderAndNames(t *testing.T) {
	stages := DefaultStages()
	want := []string{"plan", "build", "verify", "gate", "pr"}
	if len(stages) != len(want) {
		t.Fatalf("len(DefaultStages()) = %d, want %d", len(stages), len(want))
	}
	for i, name := range want {
		if stages[i].Name != name {
			t.Fatalf("stages[%d].Name = %q, want %q", i, stages[i].Name, name)
		}
		if stages[i].Message == "" {
			t.Fatalf("stages[%d].Message is empty", i)
		}
	}
}

func TestStepKeyIncludesTaskStageAndCheckpointSeq(t *testing.T) {
	k1 := StepKey("issues/42.md", "build", 0)
	k2 := StepKey("issues/42.md", "build", 1)
	k3 := StepKey("issues/42.md", "verify", 0)
	if k1 == k2 {
		t.Fatalf("StepKey should change when checkpointSeq changes: %q", k1)
	}
	if k1 == k3 {
		t.Fatalf("StepKey should change when stage changes: %q", k1)
	}
	if k1 != "issues/42.md:build:0" {
		t.Fatalf("StepKey() = %q, want issues/42.md:build:0", k1)
	}
}

func TestItoaMatchesDecimalFormatting(t *testing.T) {
	cases := map[int]string{0: "0", 1: "1", 42: "42", -7: "-7", 1000000: "1000000"}
	for n, want := range cases {
		if got := itoa(n); got != want {
			t.Fatalf("itoa(%d) = %q, want %q", n, got, want)
		}
	}
}
