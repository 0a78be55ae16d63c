package scrape

import (
	"strings"
	"testing"
)

func TestCleanHTMLStripsNoise(t *testing.T) {
	t.Parallel()
	in := `<html><head>
<script>trackUser();</script>
<style>.x{color:red}</style>
<meta charset="utf-8"><link rel="stylesheet" href="x.css">
<title>Site</title>
</head><body>
<nav><a href="/">home</a></nav>
<header>branding</header>
<!-- build 1234 -->
<div class="news" id="main" data-track="1" aria-label="news" onclick="boom()">
  <h2>Flights suspended</h2>
  <p style="color:blue">All flights on 12/09 are cancelled.</p>
  <ul><li>Route A</li><li>Route B</li></ul>
</div>
<form action="/subscribe"><input name="email"><button>Go</button></form>
<img src="px.gif" width="1" height="1">
<footer>contact us</footer>
</body></html>`

	out := CleanHTML(in)

	for _, gone := range []string{
		"trackUser", "color:red", "stylesheet", "<title", "<nav", "branding",
		"build 1234", "<form", "<input", "<button", "width=\"1\"", "<footer",
		"data-track", "aria-label", "onclick", "class=\"news\"", "id=\"main\"", "style=",
	} {
		if strings.Contains(out, gone) {
			t.Fatalf("cleaned output still contains %q:\n%s", gone, out)
		}
	}
	for _, kept := range []string{
		"Flights suspended", "All flights on 12/09 are cancelled.", "<li>Route A</li>", "<li>Route B</li>",
	} {
		if !strings.Contains(out, kept) {
			t.Fatalf("cleaned output lost %q:\n%s", kept, out)
		}
	}
}

func TestCleanHTMLRemovesEmptyWrappers(t *testing.T) {
	t.Parallel()
	out := CleanHTML(`<div><span class="icon"></span></div><p>real content</p>`)
	if strings.Contains(out, "<span") || strings.Contains(out, "<div>") {
		t.Fatalf("empty wrappers survived: %s", out)
	}
	if !strings.Contains(out, "real content") {
		t.Fatalf("content lost: %s", out)
	}
}

func TestCleanHTMLCollapsesWhitespace(t *testing.T) {
	t.Parallel()
	out := CleanHTML("<p>a</p>\n\n\n\n<p>b</p>    <p>c</p>")
	if strings.Contains(out, "\n\n") || strings.Contains(out, "  ") {
		t.Fatalf("whitespace not collapsed: %q", out)
	}
}
