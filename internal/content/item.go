// Package content holds the extracted-content domain types shared by the
// scraper, the change detector and the store.
package content

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Item is one semantic unit extracted from the monitored page.
// Items are immutable once stored; they belong to the check that produced them.
type Item struct {
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	PublishDate time.Time `json:"publish_date,omitempty"`
	SourceURL   string    `json:"source_url,omitempty"`
}

// hashBodyPrefix bounds how much of each body participates in the content
// hash, so trailing boilerplate edits don't flip the digest.
const hashBodyPrefix = 200

// noItemsToken is hashed when an extraction returns nothing; an empty
// extraction must never hash like (or overwrite) real content.
const noItemsToken = "wingwatch:no-items"

type hashEntry struct {
	Title string `json:"title"`
	Body  string `json:"content"`
}

// Hash returns a deterministic SHA-256 digest of the ordered item list.
// The digest is order-sensitive: the same items in a different order hash
// differently. Two identical ordered lists always hash identically.
func Hash(items []Item) string {
	if len(items) == 0 {
		sum := sha256.Sum256([]byte(noItemsToken))
		return hex.EncodeToString(sum[:])
	}
	entries := make([]hashEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, hashEntry{Title: it.Title, Body: prefix(it.Body, hashBodyPrefix)})
	}
	b, err := json.Marshal(entries)
	if err != nil {
		// Marshal of plain strings cannot fail; keep a stable fallback anyway.
		b = []byte(noItemsToken)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// prefix truncates s to at most n runes without splitting a UTF-8 sequence.
func prefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Titles returns the titles of items, in order.
func Titles(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Title)
	}
	return out
}
