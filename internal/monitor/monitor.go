// Package monitor runs the end-to-end check: acquire the page, extract
// items, detect changes against stored history, persist the outcome, and
// fan notifications out when the change is major.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"wingwatch/internal/content"
	"wingwatch/internal/detect"
	"wingwatch/internal/notify"
	"wingwatch/internal/scrape"
	"wingwatch/internal/store"
	logx "wingwatch/pkg/logx"
)

// State names the phase a run is in. Transitions are logged; a run always
// ends back in StateIdle.
type State string

const (
	StateIdle        State = "idle"
	StateExtracting  State = "extracting"
	StateComparing   State = "comparing"
	StateNoChange    State = "no_change"
	StateMinorChange State = "minor_change"
	StateMajorChange State = "major_change"
)

// ErrRunInProgress is returned by TryRun when a run is already active.
var ErrRunInProgress = errors.New("monitor: run already in progress")

// Summary is the caller-facing result of one run.
type Summary struct {
	Success           bool   `json:"success"`
	HasUpdates        bool   `json:"hasUpdates"`
	UpdateCount       int    `json:"updateCount"`
	NotificationsSent int    `json:"notificationsSent,omitempty"`
	Error             string `json:"error,omitempty"`
}

// Alerter receives out-of-band operator alerts. Implementations must not
// block the run; failures are theirs to log.
type Alerter interface {
	RunFailed(ctx context.Context, err error)
	MajorChange(ctx context.Context, sum Summary, details string)
}

type Orchestrator struct {
	source     scrape.Source
	detector   *detect.Detector
	store      store.Store
	dispatcher *notify.Dispatcher
	alerter    Alerter
	log        logx.Logger

	// runMu serializes runs; overlapping triggers wait or skip.
	runMu sync.Mutex
}

func New(source scrape.Source, detector *detect.Detector, st store.Store, dispatcher *notify.Dispatcher, alerter Alerter, log logx.Logger) *Orchestrator {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Orchestrator{
		source:     source,
		detector:   detector,
		store:      st,
		dispatcher: dispatcher,
		alerter:    alerter,
		log:        log,
	}
}

// Run executes one full check. Concurrent callers are serialized.
func (o *Orchestrator) Run(ctx context.Context) Summary {
	o.runMu.Lock()
	defer o.runMu.Unlock()
	return o.run(ctx)
}

// TryRun executes one check unless a run is already active, in which case
// it returns ErrRunInProgress. Used by the scheduler to skip overlaps.
func (o *Orchestrator) TryRun(ctx context.Context) (Summary, error) {
	if !o.runMu.TryLock() {
		return Summary{}, ErrRunInProgress
	}
	defer o.runMu.Unlock()
	return o.run(ctx), nil
}

func (o *Orchestrator) Status(ctx context.Context) (store.Status, error) {
	return o.store.Status(ctx)
}

func (o *Orchestrator) run(ctx context.Context) Summary {
	started := time.Now()
	o.log.Info("check started")

	sum, err := o.check(ctx)
	if err != nil {
		sum = Summary{Success: false, Error: err.Error()}
		o.log.Error("check failed", logx.Err(err), logx.Duration("took", time.Since(started)))
		if o.alerter != nil {
			o.alerter.RunFailed(ctx, err)
		}
		o.setState(StateIdle)
		return sum
	}

	o.log.Info("check completed",
		logx.Bool("has_updates", sum.HasUpdates),
		logx.Int("update_count", sum.UpdateCount),
		logx.Int("notifications_sent", sum.NotificationsSent),
		logx.Duration("took", time.Since(started)),
	)
	o.setState(StateIdle)
	return sum
}

func (o *Orchestrator) check(ctx context.Context) (Summary, error) {
	previous, prevMarker, err := o.previousState(ctx)
	if err != nil {
		return Summary{}, err
	}

	session, err := o.source.Acquire(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("acquire source: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			o.log.Warn("session close failed", logx.Err(cerr))
		}
	}()

	o.setState(StateExtracting)
	page, err := session.Extract(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("extract: %w", err)
	}

	o.setState(StateComparing)
	res, err := o.detector.Detect(ctx, previous, prevMarker, page.Items, page.Marker)
	if err != nil {
		return Summary{}, err
	}

	rec, err := o.store.CreateCheck(ctx, res.ContentHash, res.Changed, res.Details, page.Marker)
	if err != nil {
		return Summary{}, fmt.Errorf("persist check: %w", err)
	}

	switch res.Significance {
	case detect.SignificanceMajor:
		o.setState(StateMajorChange)
		return o.handleMajor(ctx, rec, page.Items, res)
	case detect.SignificanceMinor:
		o.setState(StateMinorChange)
		if err := o.store.AddItems(ctx, rec.ID, page.Items); err != nil {
			return Summary{}, fmt.Errorf("persist items: %w", err)
		}
		return Summary{Success: true, HasUpdates: true, UpdateCount: len(page.Items)}, nil
	default:
		o.setState(StateNoChange)
		return Summary{Success: true}, nil
	}
}

func (o *Orchestrator) handleMajor(ctx context.Context, rec *store.CheckRecord, items []content.Item, res detect.Result) (Summary, error) {
	if err := o.store.AddItems(ctx, rec.ID, items); err != nil {
		return Summary{}, fmt.Errorf("persist items: %w", err)
	}

	sum := Summary{Success: true, HasUpdates: true, UpdateCount: len(items)}

	if o.dispatcher == nil || !o.dispatcher.Enabled() {
		o.log.Info("major change detected but notifications are disabled")
		o.alertMajor(ctx, sum, res.Details)
		return sum, nil
	}

	subs, err := o.store.ListActiveVerified(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list subscribers: %w", err)
	}
	if len(subs) == 0 {
		o.log.Info("major change detected but there are no subscribers")
		o.alertMajor(ctx, sum, res.Details)
		return sum, nil
	}

	recipients := make([]string, 0, len(subs))
	for _, s := range subs {
		recipients = append(recipients, s.Email)
	}

	out, derr := o.dispatcher.Dispatch(ctx, items, recipients)
	sum.NotificationsSent = out.Sent

	status := store.NotificationSent
	if out.Sent == 0 {
		status = store.NotificationFailed
	}
	if _, lerr := o.store.LogNotification(ctx, rec.ID, recipients, status, strings.Join(out.Errors, "; ")); lerr != nil {
		o.log.Error("failed to record notification outcome", logx.Err(lerr))
	}
	if derr != nil {
		// Context cancellation mid fan-out; the partial outcome is recorded.
		return sum, fmt.Errorf("dispatch: %w", derr)
	}

	o.log.Info("notifications dispatched",
		logx.Int("sent", out.Sent),
		logx.Int("failed", out.Failed),
		logx.Int("attempts", out.Attempts),
	)
	o.alertMajor(ctx, sum, res.Details)
	return sum, nil
}

func (o *Orchestrator) alertMajor(ctx context.Context, sum Summary, details string) {
	if o.alerter != nil {
		o.alerter.MajorChange(ctx, sum, details)
	}
}

func (o *Orchestrator) previousState(ctx context.Context) ([]content.Item, string, error) {
	var (
		items  []content.Item
		marker string
	)

	changed, err := o.store.MostRecentChangedCheck(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("load previous state: %w", err)
	}
	if changed != nil {
		items, err = o.store.ItemsForCheck(ctx, changed.ID)
		if err != nil {
			return nil, "", fmt.Errorf("load previous items: %w", err)
		}
	}

	latest, err := o.store.MostRecentCheck(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("load previous marker: %w", err)
	}
	if latest != nil {
		marker = latest.FreshnessMarker
	}
	return items, marker, nil
}

func (o *Orchestrator) setState(s State) {
	o.log.Debug("state", logx.String("state", string(s)))
}
