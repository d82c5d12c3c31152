package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/panelbridge/surveylink/internal/config"
	"github.com/panelbridge/surveylink/internal/models"
	"github.com/panelbridge/surveylink/internal/store"
)

// fakeLinkStore is an in-memory linkWriter that can fail on demand and
// tracks how many creates run at once.
type fakeLinkStore struct {
	mu          sync.Mutex
	created     map[string]bool
	pingErr     error
	createDelay time.Duration

	// failFn decides the outcome of one create attempt; nil means success.
	// Called with the uid and the attempt number for that uid (1-based).
	failFn func(uid string, attempt int) error

	attempts    map[string]int
	inFlight    int
	maxInFlight int
}

func newFakeLinkStore() *fakeLinkStore {
	return &fakeLinkStore{
		created:  make(map[string]bool),
		attempts: make(map[string]int),
	}
}

func (f *fakeLinkStore) Ping(ctx context.Context) error {
	return f.pingErr
}

func (f *fakeLinkStore) CreateSurveyLink(ctx context.Context, link *models.SurveyLink) error {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.attempts[link.UID]++
	attempt := f.attempts[link.UID]
	f.mu.Unlock()

	if f.createDelay > 0 {
		time.Sleep(f.createDelay)
	}

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.failFn != nil {
		if err := f.failFn(link.UID, attempt); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.created[link.UID] {
		return &store.StoreError{Kind: store.KindConflict, Op: "create survey link", Err: errors.New("duplicate uid")}
	}
	f.created[link.UID] = true
	return nil
}

// seqUIDGenerator returns scripted uids, then falls back to real ones.
type seqUIDGenerator struct {
	mu   sync.Mutex
	uids []string
	real UIDGenerator
}

func (g *seqUIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.uids) > 0 {
		uid := g.uids[0]
		g.uids = g.uids[1:]
		return uid
	}
	return g.real.Generate()
}

func testGenerationConfig() config.GenerationConfig {
	return config.GenerationConfig{
		Concurrency:         4,
		MaxRetries:          3,
		RetryBaseDelayMs:    1,
		FailureThreshold:    0.10,
		BatchTimeoutMinutes: 1,
	}
}

func testBuildContext() BuildContext {
	return BuildContext{
		ProjectID:    1,
		OriginalURL:  "https://thirdparty.example.com/survey",
		ShortURLBase: "https://sl.example.com",
		BatchID:      NewBatchID(),
		Method:       "batch",
	}
}

func transientErr() error {
	return &store.StoreError{Kind: store.KindTransient, Op: "create survey link", Err: errors.New("database is locked")}
}

func TestBatchRun_AllSucceed(t *testing.T) {
	st := newFakeLinkStore()
	o := NewBatchOrchestrator(st, NewUIDGenerator(), testGenerationConfig())

	plan, _ := PlanDistribution(2, 2, nil, false)
	result, err := o.Run(context.Background(), plan, testBuildContext())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.Requested != 4 {
		t.Errorf("Requested = %d, expected 4", result.Requested)
	}
	if result.Succeeded != 4 || result.Failed != 0 {
		t.Errorf("Succeeded/Failed = %d/%d, expected 4/0", result.Succeeded, result.Failed)
	}
	if len(result.Links) != result.Succeeded {
		t.Errorf("len(Links) = %d, must equal Succeeded %d", len(result.Links), result.Succeeded)
	}
	if result.ThresholdExceeded || result.TimedOut {
		t.Error("clean batch should not be marked failed or timed out")
	}
}

func TestBatchRun_VendorSplitTotals(t *testing.T) {
	st := newFakeLinkStore()
	o := NewBatchOrchestrator(st, NewUIDGenerator(), testGenerationConfig())

	plan, _ := PlanDistribution(10, 40, []uint{1, 2}, true)
	result, err := o.Run(context.Background(), plan, testBuildContext())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.Succeeded != 100 {
		t.Errorf("Succeeded = %d, expected 100", result.Succeeded)
	}

	byVendor := make(map[uint]int)
	byType := make(map[models.LinkType]int)
	for _, link := range result.Links {
		byVendor[*link.VendorID]++
		byType[link.LinkType]++
	}
	if byVendor[1] != 50 || byVendor[2] != 50 {
		t.Errorf("per-vendor counts = %v, expected 50 each", byVendor)
	}
	if byType[models.LinkTypeTest] != 20 || byType[models.LinkTypeLive] != 80 {
		t.Errorf("per-type counts = %v, expected 20 TEST / 80 LIVE", byType)
	}
}

func TestBatchRun_TransientErrorsRecover(t *testing.T) {
	st := newFakeLinkStore()
	// Every create fails once, then succeeds on retry.
	st.failFn = func(uid string, attempt int) error {
		if attempt == 1 {
			return transientErr()
		}
		return nil
	}
	o := NewBatchOrchestrator(st, NewUIDGenerator(), testGenerationConfig())

	plan, _ := PlanDistribution(0, 10, nil, false)
	result, err := o.Run(context.Background(), plan, testBuildContext())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.Succeeded != 10 || result.Failed != 0 {
		t.Errorf("Succeeded/Failed = %d/%d, expected 10/0 after retries", result.Succeeded, result.Failed)
	}
}

func TestBatchRun_ExhaustedRetriesSurface(t *testing.T) {
	st := newFakeLinkStore()
	st.failFn = func(uid string, attempt int) error {
		return transientErr()
	}
	cfg := testGenerationConfig()
	o := NewBatchOrchestrator(st, NewUIDGenerator(), cfg)

	plan, _ := PlanDistribution(0, 3, nil, false)
	result, err := o.Run(context.Background(), plan, testBuildContext())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.Failed != 3 {
		t.Fatalf("Failed = %d, expected 3", result.Failed)
	}
	if len(result.Failures) != 3 {
		t.Fatalf("len(Failures) = %d, expected 3", len(result.Failures))
	}
	for _, failure := range result.Failures {
		if failure.Kind != store.KindTransient {
			t.Errorf("failure kind = %s, expected transient", failure.Kind)
		}
		if failure.Attempts != cfg.MaxRetries+1 {
			t.Errorf("failure attempts = %d, expected %d", failure.Attempts, cfg.MaxRetries+1)
		}
		if failure.UID == "" {
			t.Error("failure should carry the intended uid")
		}
	}
	if !result.ThresholdExceeded {
		t.Error("100%% failure must exceed the threshold")
	}
}

func TestBatchRun_ConflictRegeneratesUID(t *testing.T) {
	st := newFakeLinkStore()
	st.created["taken"] = true

	gen := &seqUIDGenerator{uids: []string{"taken", "fresh"}, real: NewUIDGenerator()}
	o := NewBatchOrchestrator(st, gen, testGenerationConfig())

	plan, _ := PlanDistribution(0, 1, nil, false)
	result, err := o.Run(context.Background(), plan, testBuildContext())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.Succeeded != 1 {
		t.Fatalf("Succeeded = %d, expected 1", result.Succeeded)
	}
	if result.Links[0].UID != "fresh" {
		t.Errorf("link uid = %q, expected regenerated %q", result.Links[0].UID, "fresh")
	}
	if st.created["taken"] != true {
		t.Error("existing record must not be overwritten")
	}
}

func TestBatchRun_ValidationErrorIsTerminal(t *testing.T) {
	st := newFakeLinkStore()
	st.failFn = func(uid string, attempt int) error {
		return &store.StoreError{Kind: store.KindValidation, Op: "create survey link", Err: errors.New("uid is required")}
	}
	o := NewBatchOrchestrator(st, NewUIDGenerator(), testGenerationConfig())

	plan, _ := PlanDistribution(0, 1, nil, false)
	result, err := o.Run(context.Background(), plan, testBuildContext())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.Failed != 1 {
		t.Fatalf("Failed = %d, expected 1", result.Failed)
	}
	if result.Failures[0].Attempts != 1 {
		t.Errorf("validation failure attempts = %d, expected 1 (no retry)", result.Failures[0].Attempts)
	}
	if result.Failures[0].Kind != store.KindValidation {
		t.Errorf("failure kind = %s, expected validation", result.Failures[0].Kind)
	}
}

func TestBatchRun_PartialFailureBelowThreshold(t *testing.T) {
	st := newFakeLinkStore()
	failing := map[string]bool{"bad1": true}
	st.failFn = func(uid string, attempt int) error {
		if failing[uid] {
			return &store.StoreError{Kind: store.KindUnknown, Op: "create survey link", Err: errors.New("boom")}
		}
		return nil
	}

	uids := []string{"bad1"}
	gen := &seqUIDGenerator{uids: uids, real: NewUIDGenerator()}
	o := NewBatchOrchestrator(st, gen, config.GenerationConfig{
		Concurrency:         1,
		MaxRetries:          0,
		RetryBaseDelayMs:    1,
		FailureThreshold:    0.10,
		BatchTimeoutMinutes: 1,
	})

	plan, _ := PlanDistribution(0, 20, nil, false)
	result, err := o.Run(context.Background(), plan, testBuildContext())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.Succeeded != 19 || result.Failed != 1 {
		t.Fatalf("Succeeded/Failed = %d/%d, expected 19/1", result.Succeeded, result.Failed)
	}
	// 1/20 = 5% stays under the 10% threshold.
	if result.ThresholdExceeded {
		t.Error("5%% failure must not exceed the 10%% threshold")
	}
	if result.Requested != result.Succeeded+result.Failed {
		t.Error("accounting must balance: requested == succeeded + failed")
	}
}

func TestBatchRun_BoundedConcurrency(t *testing.T) {
	st := newFakeLinkStore()
	st.createDelay = 5 * time.Millisecond
	cfg := testGenerationConfig()
	cfg.Concurrency = 3
	o := NewBatchOrchestrator(st, NewUIDGenerator(), cfg)

	plan, _ := PlanDistribution(0, 30, nil, false)
	result, err := o.Run(context.Background(), plan, testBuildContext())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.Succeeded != 30 {
		t.Fatalf("Succeeded = %d, expected 30", result.Succeeded)
	}
	if st.maxInFlight > cfg.Concurrency {
		t.Errorf("observed %d concurrent creates, limit is %d", st.maxInFlight, cfg.Concurrency)
	}
}

func TestBatchRun_CancelledContextAccountsAllTasks(t *testing.T) {
	st := newFakeLinkStore()
	o := NewBatchOrchestrator(st, NewUIDGenerator(), testGenerationConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	plan, _ := PlanDistribution(0, 5, nil, false)
	result, err := o.Run(ctx, plan, testBuildContext())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if !result.TimedOut {
		t.Error("cancelled batch should report TimedOut")
	}
	if result.Succeeded+result.Failed != result.Requested {
		t.Errorf("abandoned tasks must be accounted: %d+%d != %d",
			result.Succeeded, result.Failed, result.Requested)
	}
	if len(result.Failures) == 0 {
		t.Error("abandoned tasks should appear in Failures")
	}
}

func TestBatchRun_PingFailureAbortsBeforeStart(t *testing.T) {
	st := newFakeLinkStore()
	st.pingErr = errors.New("connection refused")
	o := NewBatchOrchestrator(st, NewUIDGenerator(), testGenerationConfig())

	plan, _ := PlanDistribution(0, 5, nil, false)
	if _, err := o.Run(context.Background(), plan, testBuildContext()); err == nil {
		t.Fatal("unreachable store must fail the batch up front")
	}
	if len(st.created) != 0 {
		t.Errorf("no links should be created, got %d", len(st.created))
	}
}

func TestBatchResult_FailureRatio(t *testing.T) {
	empty := &BatchResult{}
	if ratio := empty.FailureRatio(); ratio != 0 {
		t.Errorf("empty batch ratio = %f, expected 0", ratio)
	}

	r := &BatchResult{Requested: 20, Failed: 3}
	if ratio := r.FailureRatio(); ratio != 0.15 {
		t.Errorf("FailureRatio = %f, expected 0.15", ratio)
	}
}
