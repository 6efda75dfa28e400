package reconcile

import "testing"

func TestContainsFoldIsCaseInsensitive(t *testing.T) {
	labels := []string{"bug", "ralph:status:In-Progress", "priority:high"}
	if !containsFold(labels, "ralph:status:in-progress") {
		t.Fatalf("expected containsFold to match case-insensitively")
	}
	if containsFold(labels, "ralph:status:queued") {
		t.Fatalf("expected no match for an absent label")
	}
}

func TestContainsFoldEmptySet(t *testing.T) {
	if containsFold(nil, "anything") {
		t.Fatalf("expected false on an empty label set")
	}
}
