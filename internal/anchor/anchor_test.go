package anchor

import "testing"

func TestDerive(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"What's the history of Quidditch?", "Whats-the-history-of-Quidditch"},
		{"A, B/C", "A-BC"},
		{"Intro", "Intro"},
		{"Sub A", "Sub-A"},
		{"  leading and   trailing  ", "leading-and-trailing"},
		{"v1.2.3 release", "v123-release"},
		{`Say "hello"`, "Say-hello"},
		{"为什么？", "为什么"},
		{"甲，乙", "甲乙"},
		{"左｜右", "左右"},
		{"‘quoted’ “double”", "quoted-double"},
		{"Keep-Case_AND-dashes", "Keep-Case_AND-dashes"},
		{"", ""},
		{"?.,/", ""},
		{"?", ""},
		{"？ “” ．", ""},
	}
	for _, tt := range tests {
		if got := Derive(tt.in); got != tt.want {
			t.Errorf("Derive(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDerive_Deterministic(t *testing.T) {
	in := "Getting Started, Part 2/3?"
	first := Derive(in)
	for range 10 {
		if got := Derive(in); got != first {
			t.Fatalf("expected stable id %q, got %q", first, got)
		}
	}
}

func TestDerive_NoDeduplication(t *testing.T) {
	// Same text on one page yields the same id; lookup is last-wins downstream.
	if Derive("Setup") != Derive("Setup") {
		t.Error("expected identical ids for identical headings")
	}
	if Derive("Setup?") != Derive("Setup") {
		t.Error("expected punctuation-only difference to collide")
	}
}

func TestHref(t *testing.T) {
	if got := Href("Sub-A"); got != "#Sub-A" {
		t.Errorf("expected %q, got %q", "#Sub-A", got)
	}
}
