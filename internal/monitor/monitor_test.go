package monitor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"wingwatch/internal/content"
	"wingwatch/internal/detect"
	"wingwatch/internal/notify"
	"wingwatch/internal/scrape"
	"wingwatch/internal/store"
	logx "wingwatch/pkg/logx"
)

// fakeStore is an in-memory store.Store that records call order.
type fakeStore struct {
	mu     sync.Mutex
	checks []*store.CheckRecord
	items  map[string][]content.Item
	logs   []*store.NotificationRecord
	subs   []store.Subscriber
	calls  []string

	failCreate bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: map[string][]content.Item{}}
}

func (f *fakeStore) note(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeStore) MostRecentCheck(_ context.Context) (*store.CheckRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.note("MostRecentCheck")
	if len(f.checks) == 0 {
		return nil, nil
	}
	return f.checks[len(f.checks)-1], nil
}

func (f *fakeStore) MostRecentChangedCheck(_ context.Context) (*store.CheckRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.note("MostRecentChangedCheck")
	for i := len(f.checks) - 1; i >= 0; i-- {
		if f.checks[i].HasChanged {
			return f.checks[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ItemsForCheck(_ context.Context, checkID string) ([]content.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[checkID], nil
}

func (f *fakeStore) CreateCheck(_ context.Context, hash string, hasChanged bool, details, marker string) (*store.CheckRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.note("CreateCheck")
	if f.failCreate {
		return nil, errors.New("disk full")
	}
	rec := &store.CheckRecord{
		ID:              "check-" + time.Now().Format("150405.000000000"),
		CheckedAt:       time.Now(),
		ContentHash:     hash,
		HasChanged:      hasChanged,
		ChangeDetails:   details,
		FreshnessMarker: marker,
	}
	f.checks = append(f.checks, rec)
	return rec, nil
}

func (f *fakeStore) AddItems(_ context.Context, checkID string, items []content.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.note("AddItems")
	f.items[checkID] = items
	return nil
}

func (f *fakeStore) LogNotification(_ context.Context, checkID string, recipients []string, status store.NotificationStatus, errMsg string) (*store.NotificationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.note("LogNotification")
	rec := &store.NotificationRecord{
		CheckID:      checkID,
		Recipients:   recipients,
		Status:       status,
		ErrorMessage: errMsg,
	}
	f.logs = append(f.logs, rec)
	return rec, nil
}

func (f *fakeStore) ListActiveVerified(_ context.Context) ([]store.Subscriber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.note("ListActiveVerified")
	return f.subs, nil
}

func (f *fakeStore) Status(_ context.Context) (store.Status, error) {
	return store.Status{TotalChecks: len(f.checks)}, nil
}

func (f *fakeStore) Close() error { return nil }

// fakeSource hands out sessions with a canned result and counts closes.
type fakeSource struct {
	result     scrape.Result
	extractErr error
	acquireErr error

	mu     sync.Mutex
	closes int
}

func (f *fakeSource) Acquire(_ context.Context) (scrape.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	return &fakeSession{src: f}, nil
}

func (f *fakeSource) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

type fakeSession struct{ src *fakeSource }

func (s *fakeSession) Extract(_ context.Context) (scrape.Result, error) {
	if s.src.extractErr != nil {
		return scrape.Result{}, s.src.extractErr
	}
	return s.src.result, nil
}

func (s *fakeSession) Close() error {
	s.src.mu.Lock()
	s.src.closes++
	s.src.mu.Unlock()
	return nil
}

type stubMailer struct {
	mu      sync.Mutex
	sent    []string
	failFor string
}

func (m *stubMailer) Send(_ context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.To == m.failFor {
		return errors.New("mailbox does not exist")
	}
	m.sent = append(m.sent, msg.To)
	return nil
}

type fixedClassifier struct {
	cmp   detect.Comparison
	calls int
}

func (c *fixedClassifier) Compare(_ context.Context, _, _ []content.Item) (detect.Comparison, error) {
	c.calls++
	return c.cmp, nil
}

func newTestOrchestrator(st store.Store, src scrape.Source, cls detect.Classifier, mailer notify.Mailer) *Orchestrator {
	var dispatcher *notify.Dispatcher
	if mailer != nil {
		dispatcher = notify.NewDispatcher(notify.Config{
			Enabled:      true,
			From:         "updates@wingwatch.test",
			AppURL:       "https://wingwatch.test",
			SendDelay:    time.Millisecond,
			RetryBackoff: time.Millisecond,
			SendTimeout:  time.Second,
		}, mailer, logx.Nop())
	}
	return New(src, detect.New(cls, logx.Nop()), st, dispatcher, nil, logx.Nop())
}

func pageItems(titles ...string) []content.Item {
	out := make([]content.Item, 0, len(titles))
	for _, title := range titles {
		out = append(out, content.Item{Title: title, Body: "body of " + title})
	}
	return out
}

func TestRunFirstRunDispatchesToSubscribers(t *testing.T) {
	t.Parallel()
	st := newFakeStore()
	st.subs = []store.Subscriber{
		{Email: "a@x", IsActive: true, IsVerified: true},
		{Email: "b@x", IsActive: true, IsVerified: true},
	}
	src := &fakeSource{result: scrape.Result{Items: pageItems("one", "two"), Marker: "m1"}}
	mailer := &stubMailer{}
	cls := &fixedClassifier{}

	sum := newTestOrchestrator(st, src, cls, mailer).Run(context.Background())

	if !sum.Success || !sum.HasUpdates || sum.UpdateCount != 2 || sum.NotificationsSent != 2 {
		t.Fatalf("summary = %+v", sum)
	}
	if cls.calls != 0 {
		t.Fatal("classifier must not run on the first check")
	}
	if len(st.checks) != 1 || !st.checks[0].HasChanged {
		t.Fatalf("checks = %+v", st.checks)
	}
	if st.checks[0].FreshnessMarker != "m1" {
		t.Fatalf("marker not persisted: %+v", st.checks[0])
	}
	if len(st.logs) != 1 || st.logs[0].Status != store.NotificationSent {
		t.Fatalf("notification logs = %+v", st.logs)
	}
	if src.closeCount() != 1 {
		t.Fatalf("session closes = %d, want 1", src.closeCount())
	}
}

func TestRunPersistsCheckBeforeDispatch(t *testing.T) {
	t.Parallel()
	st := newFakeStore()
	st.subs = []store.Subscriber{{Email: "a@x", IsActive: true, IsVerified: true}}
	src := &fakeSource{result: scrape.Result{Items: pageItems("one")}}

	newTestOrchestrator(st, src, &fixedClassifier{}, &stubMailer{}).Run(context.Background())

	var createIdx, logIdx int
	for i, call := range st.calls {
		switch call {
		case "CreateCheck":
			createIdx = i
		case "LogNotification":
			logIdx = i
		}
	}
	if createIdx >= logIdx {
		t.Fatalf("check must be persisted before the fan-out outcome: %v", st.calls)
	}
}

func TestRunMarkerShortCircuit(t *testing.T) {
	t.Parallel()
	st := newFakeStore()
	seed, _ := st.CreateCheck(context.Background(), "h1", true, "seed", "stamp")
	_ = st.AddItems(context.Background(), seed.ID, pageItems("old"))
	st.calls = nil

	src := &fakeSource{result: scrape.Result{Items: pageItems("old"), Marker: "stamp"}}
	cls := &fixedClassifier{cmp: detect.Comparison{Changed: true, Significance: detect.SignificanceMajor}}

	sum := newTestOrchestrator(st, src, cls, &stubMailer{}).Run(context.Background())

	if !sum.Success || sum.HasUpdates {
		t.Fatalf("summary = %+v", sum)
	}
	if cls.calls != 0 {
		t.Fatal("classifier must not run when the marker is unchanged")
	}
	// The no-change check is still recorded.
	if len(st.checks) != 2 || st.checks[1].HasChanged {
		t.Fatalf("checks = %+v", st.checks)
	}
}

func TestRunMinorChangePersistsWithoutDispatch(t *testing.T) {
	t.Parallel()
	st := newFakeStore()
	seed, _ := st.CreateCheck(context.Background(), "h1", true, "seed", "s1")
	_ = st.AddItems(context.Background(), seed.ID, pageItems("old"))
	st.subs = []store.Subscriber{{Email: "a@x", IsActive: true, IsVerified: true}}

	src := &fakeSource{result: scrape.Result{Items: pageItems("old-reworded"), Marker: "s2"}}
	cls := &fixedClassifier{cmp: detect.Comparison{Changed: true, Significance: detect.SignificanceMinor, Details: "wording"}}
	mailer := &stubMailer{}

	sum := newTestOrchestrator(st, src, cls, mailer).Run(context.Background())

	if !sum.Success || !sum.HasUpdates || sum.NotificationsSent != 0 {
		t.Fatalf("summary = %+v", sum)
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("minor change must not notify, sent %v", mailer.sent)
	}
	if len(st.logs) != 0 {
		t.Fatalf("notification logs = %+v", st.logs)
	}
	newest := st.checks[len(st.checks)-1]
	if got := st.items[newest.ID]; len(got) != 1 {
		t.Fatalf("minor change items not persisted: %v", got)
	}
}

func TestRunExtractFailureClosesSession(t *testing.T) {
	t.Parallel()
	st := newFakeStore()
	src := &fakeSource{extractErr: errors.New("page timeout")}

	sum := newTestOrchestrator(st, src, &fixedClassifier{}, nil).Run(context.Background())

	if sum.Success || !strings.Contains(sum.Error, "page timeout") {
		t.Fatalf("summary = %+v", sum)
	}
	if len(st.checks) != 0 {
		t.Fatal("a failed extraction must not create a check record")
	}
	if src.closeCount() != 1 {
		t.Fatalf("session closes = %d, want 1", src.closeCount())
	}
}

func TestRunPersistFailureAborts(t *testing.T) {
	t.Parallel()
	st := newFakeStore()
	st.failCreate = true
	src := &fakeSource{result: scrape.Result{Items: pageItems("one")}}

	sum := newTestOrchestrator(st, src, &fixedClassifier{}, nil).Run(context.Background())
	if sum.Success || !strings.Contains(sum.Error, "disk full") {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestRunPartialSendStillRecordsSent(t *testing.T) {
	t.Parallel()
	st := newFakeStore()
	for _, e := range []string{"a@x", "bad@x", "c@x", "d@x", "e@x"} {
		st.subs = append(st.subs, store.Subscriber{Email: e, IsActive: true, IsVerified: true})
	}
	src := &fakeSource{result: scrape.Result{Items: pageItems("one")}}
	mailer := &stubMailer{failFor: "bad@x"}

	sum := newTestOrchestrator(st, src, &fixedClassifier{}, mailer).Run(context.Background())

	if !sum.Success || sum.NotificationsSent != 4 {
		t.Fatalf("summary = %+v", sum)
	}
	if len(st.logs) != 1 {
		t.Fatalf("notification logs = %+v", st.logs)
	}
	if st.logs[0].Status != store.NotificationSent {
		t.Fatalf("status = %s, want sent with partial failures noted", st.logs[0].Status)
	}
	if !strings.Contains(st.logs[0].ErrorMessage, "bad@x") {
		t.Fatalf("error message = %q", st.logs[0].ErrorMessage)
	}
}

func TestRunMajorWithoutDispatcher(t *testing.T) {
	t.Parallel()
	st := newFakeStore()
	src := &fakeSource{result: scrape.Result{Items: pageItems("one")}}

	sum := newTestOrchestrator(st, src, &fixedClassifier{}, nil).Run(context.Background())

	if !sum.Success || !sum.HasUpdates || sum.NotificationsSent != 0 {
		t.Fatalf("summary = %+v", sum)
	}
	if len(st.logs) != 0 {
		t.Fatal("no dispatcher means no notification log")
	}
}

func TestTryRunSkipsOverlap(t *testing.T) {
	t.Parallel()
	st := newFakeStore()
	src := &fakeSource{result: scrape.Result{Items: pageItems("one")}}
	o := newTestOrchestrator(st, src, &fixedClassifier{}, nil)

	o.runMu.Lock()
	_, err := o.TryRun(context.Background())
	o.runMu.Unlock()
	if !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}

	if _, err := o.TryRun(context.Background()); err != nil {
		t.Fatalf("TryRun after release: %v", err)
	}
}
