package sanitize

import "testing"

func TestText_EscapesMarkup(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"  plain name  ", "plain name"},
		{"<b>bold</b>", "&lt;b&gt;bold&lt;/b&gt;"},
		{`a "quoted" keyword`, "a &#34;quoted&#34; keyword"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Text(tc.in); got != tc.want {
			t.Errorf("Text(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDescription_KeepsFormattingDropsScripts(t *testing.T) {
	t.Parallel()

	got := Description("<p>Mechanical keyboard with <strong>hot-swap</strong> switches.</p><script>alert(1)</script>")
	want := "<p>Mechanical keyboard with <strong>hot-swap</strong> switches.</p>"
	if got != want {
		t.Fatalf("Description = %q, want %q", got, want)
	}

	if got := Description(`<a href="javascript:evil()">deal</a>`); got != "deal" {
		t.Fatalf("anchor should be stripped to text, got %q", got)
	}

	if got := Description("   "); got != "" {
		t.Fatalf("blank input should stay blank, got %q", got)
	}
}
