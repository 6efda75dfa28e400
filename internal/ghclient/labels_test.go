package ghclient

import "testing"

func TestSameLabelColorIgnoresCaseAndHash(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"0366D6", "0366d6", true},
		{"#0366D6", "0366D6", true},
		{"D73A4A", "1A7F37", false},
	}
	for _, tc := range cases {
		if got := sameLabelColor(tc.a, tc.b); got != tc.want {
			t.Fatalf("sameLabelColor(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestAllReservedLabelsIncludesStatusCommandAndMetaBlocked(t *testing.T) {
	all := AllReservedLabels()
	if len(all) != len(StatusLabels)+len(CommandLabels)+1 {
		t.Fatalf("len(AllReservedLabels()) = %d, want %d", len(all), len(StatusLabels)+len(CommandLabels)+1)
	}
	found := false
	for _, l := range all {
		if l.Name == MetaBlockedLabel {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %q among AllReservedLabels()", MetaBlockedLabel)
	}
}

func TestAllReservedLabelsNamesAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, l := range AllReservedLabels() {
		if seen[l.Name] {
			t.Fatalf("duplicate reserved label name %q", l.Name)
		}
		seen[l.Name] = true
	}
}

func TestLabelIDCacheGetPutIsCaseInsensitiveAndPerRepo(t *testing.T) {
	c := &labelIDCache{byNW: map[string]map[string]string{}}

	if _, ok := c.get("acme/widgets", "ralph:status:queued"); ok {
		t.Fatalf("expected a miss on an empty cache")
	}

	c.put("acme/widgets", "Ralph:Status:Queued", "LA_abc123")
	id, ok := c.get("acme/widgets", "ralph:status:queued")
	if !ok || id != "LA_abc123" {
		t.Fatalf("get() = (%q, %v), want (\"LA_abc123\", true)", id, ok)
	}

	if _, ok := c.get("acme/other-repo", "ralph:status:queued"); ok {
		t.Fatalf("expected the cache to be scoped per owner/repo")
	}
}
