package sanitize

import "testing"

func TestTextStripsMarkupAndCollapsesSpaces(t *testing.T) {
	in := "<p>Hello   <b>world</b></p>\n\n\n\n&lt;script&gt;x&lt;/script&gt; done"
	want := "Hello world\n\nx done"
	if got := Text(in); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("expected untouched string, got %q", got)
	}
	if got := Truncate("héllo world", 5); got != "héllo…" {
		t.Fatalf("expected rune-safe truncation, got %q", got)
	}
}
