package intel

import "testing"

func TestCanonicalOrganization(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"Capital_One", "Capital_One"},
		{"Capital One", "Capital_One"},
		{"capital one financial corporation", "Capital_One"},
		{"COF", "Capital_One"},
		{"Federal National Mortgage Association", "Fannie_Mae"},
		{"Pentagon Federal Credit Union", "PenFed"},
		{"Acme Corp", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := CanonicalOrganization(tc.in); got != tc.want {
			t.Fatalf("CanonicalOrganization(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMentionsOrganization(t *testing.T) {
	t.Parallel()

	if !MentionsOrganization("Regulators fined Capital One Financial today.", "Capital_One") {
		t.Fatalf("expected variant mention to match")
	}
	if MentionsOrganization("Regulators fined a regional bank today.", "Capital_One") {
		t.Fatalf("expected no match without a variant")
	}
}

func TestStatusForCount(t *testing.T) {
	t.Parallel()

	if got := StatusForCount(0); got != StatusUnvalidated {
		t.Fatalf("count 0 must be unvalidated, got %s", got)
	}
	if got := StatusForCount(1); got != StatusSingleSource {
		t.Fatalf("count 1 must be single_source, got %s", got)
	}
	if got := StatusForCount(3); got != StatusDoubleSource {
		t.Fatalf("count 3 must be double_source, got %s", got)
	}
}
