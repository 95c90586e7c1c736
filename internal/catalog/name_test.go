package catalog

import "testing"

func TestCanonicalName(t *testing.T) {
	cases := []struct {
		title   string
		authors []string
		want    string
	}{
		{"Foo Protocol", []string{"Jane Doe"}, "draft-doe-foo-protocol"},
		{"Foo Protocol", []string{"Jane Doe", "Bob Wilson"}, "draft-doe-foo-protocol"},
		{"A Very Long Title That Keeps Going And Going", []string{"Ada Lovelace"}, "draft-lovelace-a-very-long-title-that-keeps"},
		{"Abcdefghij Abcdefghij Abcdefgh Tail", []string{"Jane Doe"}, "draft-doe-abcdefghij-abcdefghij-abcdefgh"},
		{"QUIC!! (v2)", []string{"John O'Neil"}, "draft-oneil-quic-v2"},
		{"", []string{"Jane Doe"}, "draft-doe-untitled"},
		{"Foo", nil, "draft-unknown-foo"},
	}
	for _, tc := range cases {
		if got := CanonicalName(tc.title, tc.authors); got != tc.want {
			t.Fatalf("CanonicalName(%q, %v) = %q, want %q", tc.title, tc.authors, got, tc.want)
		}
	}
}

func TestDisambiguate(t *testing.T) {
	if got := Disambiguate("draft-doe-foo", 0); got != "draft-doe-foo" {
		t.Fatalf("attempt 0 should return base name, got %q", got)
	}
	if got := Disambiguate("draft-doe-foo", 1); got != "draft-doe-foo-2" {
		t.Fatalf("attempt 1 should append -2, got %q", got)
	}
	if got := Disambiguate("draft-doe-foo", 3); got != "draft-doe-foo-4" {
		t.Fatalf("attempt 3 should append -4, got %q", got)
	}
}
