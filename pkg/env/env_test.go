package env

import "testing"

func TestFirstPrefersEarlierKeys(t *testing.T) {
	t.Setenv("LISTINGQA_TEST_A", "")
	t.Setenv("LISTINGQA_TEST_B", " dyno-2 ")
	t.Setenv("LISTINGQA_TEST_C", "host")

	if got := First("local", "LISTINGQA_TEST_A", "LISTINGQA_TEST_B", "LISTINGQA_TEST_C"); got != "dyno-2" {
		t.Fatalf("expected dyno-2, got %q", got)
	}
	if got := First("local", "LISTINGQA_TEST_MISSING"); got != "local" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
