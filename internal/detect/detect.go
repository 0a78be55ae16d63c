// Package detect decides whether newly extracted content differs meaningfully
// from the previously known state, and how significant the difference is.
package detect

import (
	"context"
	"fmt"
	"strings"

	"wingwatch/internal/content"
	logx "wingwatch/pkg/logx"
)

// Significance classifies a detected change.
// Only Major triggers the notification fan-out downstream; Minor and None
// are recorded in history and go no further.
type Significance string

const (
	SignificanceMajor Significance = "major"
	SignificanceMinor Significance = "minor"
	SignificanceNone  Significance = "none"
)

// ParseSignificance maps a classifier-reported level onto the known set.
// Unknown values degrade to minor: a change was reported, but an unreadable
// level must not trigger a fan-out on its own.
func ParseSignificance(s string) Significance {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "major":
		return SignificanceMajor
	case "minor":
		return SignificanceMinor
	case "none", "":
		return SignificanceNone
	default:
		return SignificanceMinor
	}
}

// Result is the outcome of one detection pass.
type Result struct {
	Changed        bool
	Significance   Significance
	NewTitles      []string
	ModifiedTitles []string
	Details        string

	// ContentHash digests the current item set. It is computed on every
	// branch, independent of the classifier.
	ContentHash string
}

// Comparison is what a Classifier reports for a previous/current item pair.
type Comparison struct {
	Changed        bool
	Significance   Significance
	NewTitles      []string
	ModifiedTitles []string
	Details        string
}

// Classifier performs the semantic comparison between two item sets.
//
// Contract: ignore pure reordering of identical items and wording or
// formatting changes; report a change only when underlying facts (dates,
// affected destinations, stated policies) differ.
type Classifier interface {
	Compare(ctx context.Context, previous, current []content.Item) (Comparison, error)
}

type Detector struct {
	cls Classifier
	log logx.Logger
}

func New(cls Classifier, log logx.Logger) *Detector {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Detector{cls: cls, log: log}
}

// Detect runs the change-detection decision chain, in order:
//
//  1. Freshness short-circuit: equal non-empty markers prove nothing changed;
//     the classifier must not be invoked.
//  2. Empty-extraction guard: an empty current set is never a change (and
//     never "clears" history); it hashes to a sentinel.
//  3. First-run guard: no previous items means everything current is new,
//     a major change by definition, with nothing to compare semantically.
//  4. Steady state: delegate to the classifier.
//
// The content hash is computed over the current items regardless of branch.
func (d *Detector) Detect(ctx context.Context, previous []content.Item, previousMarker string, current []content.Item, currentMarker string) (Result, error) {
	if previousMarker != "" && currentMarker != "" && previousMarker == currentMarker {
		d.log.Debug("freshness marker unchanged; skipping comparison", logx.String("marker", currentMarker))
		return Result{
			Changed:      false,
			Significance: SignificanceNone,
			ContentHash:  content.Hash(current),
		}, nil
	}

	if len(current) == 0 {
		d.log.Debug("extraction returned no items; treating as no change")
		return Result{
			Changed:      false,
			Significance: SignificanceNone,
			ContentHash:  content.Hash(nil),
		}, nil
	}

	hash := content.Hash(current)

	if len(previous) == 0 {
		d.log.Info("first run; all current items are new", logx.Int("count", len(current)))
		return Result{
			Changed:        true,
			Significance:   SignificanceMajor,
			NewTitles:      content.Titles(current),
			ModifiedTitles: []string{},
			Details:        fmt.Sprintf("found %d new updates", len(current)),
			ContentHash:    hash,
		}, nil
	}

	cmp, err := d.cls.Compare(ctx, previous, current)
	if err != nil {
		return Result{}, fmt.Errorf("classifier: %w", err)
	}

	return Result{
		Changed:        cmp.Changed,
		Significance:   cmp.Significance,
		NewTitles:      cmp.NewTitles,
		ModifiedTitles: cmp.ModifiedTitles,
		Details:        cmp.Details,
		ContentHash:    hash,
	}, nil
}
