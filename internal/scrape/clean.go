package scrape

import (
	"regexp"
	"strings"
)

// Elements whose entire subtree is noise for content extraction.
var containerTags = []string{
	"script", "style", "title", "svg", "noscript",
	"nav", "header", "footer",
	"form", "button", "select", "textarea", "iframe",
}

var (
	containerRe = make(map[string]*regexp.Regexp, len(containerTags))

	voidTagRe  = regexp.MustCompile(`(?i)<(?:meta|link|base|input)\b[^>]*>`)
	commentRe  = regexp.MustCompile(`<!--[\s\S]*?-->`)
	pixelRe    = regexp.MustCompile(`(?i)<img[^>]*(?:width|height)="1"[^>]*>`)
	classIDRe  = regexp.MustCompile(`(?i)\s(?:class|id|style)="[^"]*"`)
	dataAttrRe = regexp.MustCompile(`(?i)\sdata-[^=>\s]+(?:="[^"]*")?`)
	ariaRe     = regexp.MustCompile(`(?i)\s(?:aria-[^=\s]+|role|tabindex|accesskey)="[^"]*"`)
	eventRe    = regexp.MustCompile(`(?i)\son[a-z]+="[^"]*"`)
	loadingRe  = regexp.MustCompile(`(?i)\s(?:crossorigin|integrity|charset|type|loading|rel|target|lang|dir)="[^"]*"`)
	emptyTagRe = regexp.MustCompile(`(?i)<(div|span|p|li)[^>]*>\s*</(div|span|p|li)>`)
	blankRe    = regexp.MustCompile(`\n\s*\n+`)
	spacesRe   = regexp.MustCompile(`[ \t]{2,}`)
)

func init() {
	for _, tag := range containerTags {
		containerRe[tag] = regexp.MustCompile(`(?is)<` + tag + `\b[^>]*>.*?</` + tag + `>`)
	}
}

// CleanHTML strips scripts, chrome, tracking markup and attribute noise from
// a page so the model sees mostly content. The output is still HTML; item
// structure (headings, lists, paragraphs) survives.
func CleanHTML(html string) string {
	out := html
	for _, tag := range containerTags {
		out = containerRe[tag].ReplaceAllString(out, "")
	}
	out = voidTagRe.ReplaceAllString(out, "")
	out = commentRe.ReplaceAllString(out, "")
	out = pixelRe.ReplaceAllString(out, "")

	out = classIDRe.ReplaceAllString(out, "")
	out = dataAttrRe.ReplaceAllString(out, "")
	out = ariaRe.ReplaceAllString(out, "")
	out = eventRe.ReplaceAllString(out, "")
	out = loadingRe.ReplaceAllString(out, "")

	// Removing empty wrappers can empty their parents; a couple of passes
	// is enough in practice.
	for i := 0; i < 3; i++ {
		next := emptyTagRe.ReplaceAllString(out, "")
		if next == out {
			break
		}
		out = next
	}

	out = spacesRe.ReplaceAllString(out, " ")
	out = blankRe.ReplaceAllString(out, "\n")
	return strings.TrimSpace(out)
}
