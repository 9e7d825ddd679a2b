package sync

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"inbox_server/core/domain"
	"inbox_server/core/port/out"
	"inbox_server/core/service/classify"
	"inbox_server/core/service/dedup"
	"inbox_server/core/service/extract"
	"inbox_server/pkg/apperr"
	"inbox_server/pkg/logger"
	"inbox_server/pkg/snowflake"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeJobs struct {
	byID map[string]domain.SyncJob
	// hideActive makes GetActiveByOwner report no active job while Create
	// still enforces the one-active-per-owner constraint, mirroring the
	// race window the partial unique index closes.
	hideActive bool
}

func newFakeJobs() *fakeJobs { return &fakeJobs{byID: map[string]domain.SyncJob{}} }

func (f *fakeJobs) Create(ctx context.Context, job *domain.SyncJob) error {
	for _, j := range f.byID {
		if j.OwnerID == job.OwnerID && j.IsActive() {
			return out.ErrDuplicateActiveJob
		}
	}
	f.byID[job.ID] = *job
	return nil
}

func (f *fakeJobs) Update(ctx context.Context, job *domain.SyncJob) error {
	f.byID[job.ID] = *job
	return nil
}

func (f *fakeJobs) GetByID(ctx context.Context, id string) (*domain.SyncJob, error) {
	if j, ok := f.byID[id]; ok {
		cp := j
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeJobs) GetLatestByOwner(ctx context.Context, ownerID string) (*domain.SyncJob, error) {
	var latest *domain.SyncJob
	for _, j := range f.byID {
		if j.OwnerID != ownerID {
			continue
		}
		cp := j
		if latest == nil || cp.CreatedAt.After(latest.CreatedAt) {
			latest = &cp
		}
	}
	return latest, nil
}

func (f *fakeJobs) GetActiveByOwner(ctx context.Context, ownerID string) (*domain.SyncJob, error) {
	if f.hideActive {
		return nil, nil
	}
	for _, j := range f.byID {
		if j.OwnerID == ownerID && j.IsActive() {
			cp := j
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeJobs) ListStalled(ctx context.Context, cutoff time.Time) ([]*domain.SyncJob, error) {
	return nil, nil
}

type fakeDocs struct {
	bySource map[string]*domain.Document
	inserted []*domain.Document
}

func newFakeDocs() *fakeDocs { return &fakeDocs{bySource: map[string]*domain.Document{}} }

func (f *fakeDocs) Insert(ctx context.Context, doc *domain.Document) (bool, error) {
	key := doc.OwnerID + "/" + doc.SourceMessageID
	if _, ok := f.bySource[key]; ok {
		return false, nil
	}
	f.bySource[key] = doc
	f.inserted = append(f.inserted, doc)
	return true, nil
}

func (f *fakeDocs) Update(ctx context.Context, doc *domain.Document) error { return nil }

func (f *fakeDocs) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	return nil, nil
}

func (f *fakeDocs) GetBySourceMessageID(ctx context.Context, ownerID, sourceMessageID string) (*domain.Document, error) {
	return f.bySource[ownerID+"/"+sourceMessageID], nil
}

func (f *fakeDocs) GetBySubjectHash(ctx context.Context, ownerID, subjectHash string) (*domain.Document, error) {
	for _, d := range f.bySource {
		if d.OwnerID == ownerID && d.SubjectHash == subjectHash {
			return d, nil
		}
	}
	return nil, nil
}

func (f *fakeDocs) ListRecent(ctx context.Context, ownerID string, since time.Time) ([]*domain.Document, error) {
	var docs []*domain.Document
	for _, d := range f.bySource {
		if d.OwnerID == ownerID && d.CreatedAt.After(since) {
			docs = append(docs, d)
		}
	}
	return docs, nil
}

func (f *fakeDocs) List(ctx context.Context, ownerID string, status domain.DocumentStatus, limit, offset int) ([]*domain.Document, int, error) {
	return nil, 0, nil
}

type fakeRules struct {
	rules []*domain.ClassificationRule
}

func (f *fakeRules) ListEnabled(ctx context.Context, ownerID string) ([]*domain.ClassificationRule, error) {
	return f.rules, nil
}
func (f *fakeRules) Create(ctx context.Context, r *domain.ClassificationRule) error { return nil }
func (f *fakeRules) Update(ctx context.Context, r *domain.ClassificationRule) error { return nil }
func (f *fakeRules) Delete(ctx context.Context, ownerID, id string) error           { return nil }
func (f *fakeRules) GetByID(ctx context.Context, ownerID, id string) (*domain.ClassificationRule, error) {
	return nil, nil
}
func (f *fakeRules) List(ctx context.Context, ownerID string) ([]*domain.ClassificationRule, error) {
	return f.rules, nil
}

// fakeProvider serves a scripted sequence of pages keyed by continuation
// token; "" is the first page.
type fakeProvider struct {
	pages       map[string]*domain.MessagePage
	listCalls   []out.ListQuery
	fetchErr    error
	listErrOnce error
}

func (f *fakeProvider) ListMessages(ctx context.Context, ownerID string, q out.ListQuery) (*domain.MessagePage, error) {
	f.listCalls = append(f.listCalls, q)
	if f.listErrOnce != nil {
		err := f.listErrOnce
		f.listErrOnce = nil
		return nil, err
	}
	page, ok := f.pages[q.ContinuationToken]
	if !ok {
		return &domain.MessagePage{}, nil
	}
	// honor MaxResults: trim and keep the remainder reachable via the same token
	if len(page.Messages) > q.MaxResults {
		page = &domain.MessagePage{
			Messages:              page.Messages[:q.MaxResults],
			NextContinuationToken: page.NextContinuationToken,
		}
	}
	return page, nil
}

func (f *fakeProvider) FetchMessage(ctx context.Context, ownerID, messageID string) (*domain.InboundMessage, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	for _, page := range f.pages {
		for i := range page.Messages {
			if page.Messages[i].ID == messageID {
				cp := page.Messages[i]
				return &cp, nil
			}
		}
	}
	return nil, errors.New("message not found")
}

func (f *fakeProvider) FetchAttachmentBytes(ctx context.Context, ownerID, messageID, attachmentID string) ([]byte, error) {
	return []byte("%PDF-1.4"), nil
}

// fakeExtraction returns an invoice for any message whose text mentions
// "invoice", nil otherwise.
type fakeExtraction struct {
	err error
}

func (f *fakeExtraction) ExtractFromText(ctx context.Context, text, subjectHint string) (*domain.ExtractedDocument, error) {
	if f.err != nil {
		return nil, f.err
	}
	combined := strings.ToLower(text + " " + subjectHint)
	if !strings.Contains(combined, "invoice") {
		return nil, nil
	}
	amount := 1250.0
	return &domain.ExtractedDocument{
		DocumentType:  domain.DocTypeInvoice,
		Confidence:    85,
		Title:         subjectHint,
		InvoiceNumber: "INV-2024-001",
		Amount:        &amount,
		Currency:      "USD",
	}, nil
}

func (f *fakeExtraction) ExtractFromPDF(ctx context.Context, data []byte, filename string) (*domain.ExtractedDocument, error) {
	return nil, nil
}

type fakeBlob struct{}

func (f *fakeBlob) Put(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	return "blob://" + filename, nil
}
func (f *fakeBlob) Get(ctx context.Context, url string) ([]byte, error) { return nil, nil }
func (f *fakeBlob) Delete(ctx context.Context, url string) error        { return nil }

type fakeClassifier struct {
	eval *out.RuleEvaluation
	err  error
}

func (f *fakeClassifier) Evaluate(ctx context.Context, summary string, rules []*domain.ClassificationRule) (*out.RuleEvaluation, error) {
	return f.eval, f.err
}

type fakeScheduler struct{ reqs []*out.SchedulePaymentRequest }

func (f *fakeScheduler) Schedule(ctx context.Context, req *out.SchedulePaymentRequest) error {
	f.reqs = append(f.reqs, req)
	return nil
}

type fakeLedger struct{ entries []*domain.ActionEntry }

func (f *fakeLedger) Append(ctx context.Context, e *domain.ActionEntry) error {
	f.entries = append(f.entries, e)
	return nil
}
func (f *fakeLedger) ListByDocument(ctx context.Context, documentID string) ([]*domain.ActionEntry, error) {
	return f.entries, nil
}
func (f *fakeLedger) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.ActionEntry, error) {
	return f.entries, nil
}

type fakeProducer struct{ published []*out.SyncContinueJob }

func (f *fakeProducer) PublishSyncContinue(ctx context.Context, job *out.SyncContinueJob) error {
	f.published = append(f.published, job)
	return nil
}

// =============================================================================
// Harness
// =============================================================================

type harness struct {
	coord    *Coordinator
	jobs     *fakeJobs
	docs     *fakeDocs
	provider *fakeProvider
	producer *fakeProducer
	sched    *fakeScheduler
	ledger   *fakeLedger
}

func newHarness(t *testing.T, provider *fakeProvider, classifier out.RuleClassifier, rules []*domain.ClassificationRule) *harness {
	t.Helper()
	log := logger.New(logger.Config{Level: logger.LevelError, Output: io.Discard})
	jobs := newFakeJobs()
	docs := newFakeDocs()
	producer := &fakeProducer{}
	sched := &fakeScheduler{}
	ledger := &fakeLedger{}
	ids, _ := snowflake.NewGenerator(0)

	pipeline := extract.NewPipeline(provider, &fakeExtraction{}, &fakeBlob{}, 10, 2, log)
	engine := classify.NewRuleEngine(classifier, log)
	applier := classify.NewApplier(sched, ledger, ids, log)
	deduplicator := dedup.NewDeduplicator(docs, log)

	coord := NewCoordinator(jobs, docs, &fakeRules{rules: rules}, provider, pipeline, engine, applier, deduplicator, producer, nil,
		Options{SearchQuery: "(invoice OR receipt)", SearchDays: 90, MaxTotal: 500}, log)
	return &harness{coord: coord, jobs: jobs, docs: docs, provider: provider, producer: producer, sched: sched, ledger: ledger}
}

func msgWithSubject(id, subject string) domain.InboundMessage {
	return domain.InboundMessage{
		ID:      id,
		Subject: subject,
		From:    "billing@vendor.com",
		Date:    time.Now(),
		Snippet: "see " + id,
		TextBody: "Please find attached invoice for your records. " +
			"Amount due: $1,250.00. Ref " + id,
	}
}

// drain runs ContinueJob until the job leaves pending, with a safety cap.
func drain(t *testing.T, h *harness, jobID string) *domain.SyncJob {
	t.Helper()
	var job *domain.SyncJob
	for i := 0; i < 100; i++ {
		var err error
		job, err = h.coord.ContinueJob(context.Background(), jobID)
		if err != nil {
			t.Fatalf("ContinueJob: %v", err)
		}
		if job.Status != domain.JobStatusPending {
			return job
		}
	}
	t.Fatal("job never terminated")
	return nil
}

// =============================================================================
// Tests
// =============================================================================

func TestStartSync_SingleFlight(t *testing.T) {
	provider := &fakeProvider{pages: map[string]*domain.MessagePage{}}
	h := newHarness(t, provider, &fakeClassifier{eval: &out.RuleEvaluation{}}, nil)

	job, err := h.coord.StartSync(context.Background(), "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != domain.JobStatusPending {
		t.Errorf("new job status = %s, want pending", job.Status)
	}
	if len(h.producer.published) != 1 {
		t.Errorf("published %d continue jobs, want 1", len(h.producer.published))
	}

	// same owner: conflict
	if _, err := h.coord.StartSync(context.Background(), "owner-1"); !apperr.IsCode(err, apperr.CodeConflict) {
		t.Errorf("second sync for same owner: err = %v, want conflict", err)
	}

	// another owner: fine
	if _, err := h.coord.StartSync(context.Background(), "owner-2"); err != nil {
		t.Errorf("different owner should start independently: %v", err)
	}
}

func TestStartSync_DuplicateCreateMapsToConflict(t *testing.T) {
	// the active-job lookup and the insert are separate statements; when a
	// concurrent request slips between them the unique index rejects the
	// insert, and that rejection must surface as the same conflict
	provider := &fakeProvider{pages: map[string]*domain.MessagePage{}}
	h := newHarness(t, provider, &fakeClassifier{eval: &out.RuleEvaluation{}}, nil)

	if _, err := h.coord.StartSync(context.Background(), "owner-1"); err != nil {
		t.Fatal(err)
	}

	h.jobs.hideActive = true
	if _, err := h.coord.StartSync(context.Background(), "owner-1"); !apperr.IsCode(err, apperr.CodeConflict) {
		t.Errorf("racing sync start: err = %v, want conflict", err)
	}
}

func TestUnconfiguredProvider_RefusesSync(t *testing.T) {
	// no mailbox provider wired (OAuth unconfigured): both entry points must
	// refuse instead of panicking on first use
	log := logger.New(logger.Config{Level: logger.LevelError, Output: io.Discard})
	jobs := newFakeJobs()
	docs := newFakeDocs()
	ids, _ := snowflake.NewGenerator(0)
	pipeline := extract.NewPipeline(nil, &fakeExtraction{}, &fakeBlob{}, 10, 2, log)
	engine := classify.NewRuleEngine(&fakeClassifier{eval: &out.RuleEvaluation{}}, log)
	applier := classify.NewApplier(&fakeScheduler{}, &fakeLedger{}, ids, log)
	coord := NewCoordinator(jobs, docs, &fakeRules{}, nil, pipeline, engine, applier,
		dedup.NewDeduplicator(docs, log), &fakeProducer{}, nil, Options{}, log)

	if _, err := coord.StartSync(context.Background(), "owner-1"); !apperr.IsCode(err, apperr.CodePreconditionFailed) {
		t.Errorf("StartSync without provider: err = %v, want precondition failed", err)
	}

	// a job enqueued before the provider disappeared must be refused, not run
	stale := &domain.SyncJob{ID: "job-1", OwnerID: "owner-1", Status: domain.JobStatusPending}
	if err := jobs.Create(context.Background(), stale); err != nil {
		t.Fatal(err)
	}
	if _, err := coord.ContinueJob(context.Background(), "job-1"); !apperr.IsCode(err, apperr.CodePreconditionFailed) {
		t.Errorf("ContinueJob without provider: err = %v, want precondition failed", err)
	}
}

func TestContinueJob_RequiresPending(t *testing.T) {
	provider := &fakeProvider{pages: map[string]*domain.MessagePage{}}
	h := newHarness(t, provider, &fakeClassifier{eval: &out.RuleEvaluation{}}, nil)

	if _, err := h.coord.ContinueJob(context.Background(), "missing"); !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("missing job: err = %v, want not found", err)
	}

	job, _ := h.coord.StartSync(context.Background(), "owner-1")
	done := drain(t, h, job.ID)
	if done.Status != domain.JobStatusCompleted {
		t.Fatalf("empty mailbox should complete, got %s", done.Status)
	}
	if _, err := h.coord.ContinueJob(context.Background(), job.ID); !apperr.IsCode(err, apperr.CodePreconditionFailed) {
		t.Errorf("continuing a terminal job: err = %v, want precondition failed", err)
	}
}

func TestBatchProgression(t *testing.T) {
	// 30 messages across a paged listing; each page re-serves from the same
	// cursor so MaxResults drives consumption.
	msgs := make([]domain.InboundMessage, 30)
	for i := range msgs {
		msgs[i] = msgWithSubject(strings.Repeat("m", i+1), "Misc note") // no extraction hits
	}
	pages := map[string]*domain.MessagePage{}
	// simple paging script: token "p<N>" serves msgs[N:]
	pages[""] = &domain.MessagePage{Messages: msgs[:1], NextContinuationToken: "p1"}
	pages["p1"] = &domain.MessagePage{Messages: msgs[1:3], NextContinuationToken: "p3"}
	pages["p3"] = &domain.MessagePage{Messages: msgs[3:7], NextContinuationToken: "p7"}
	pages["p7"] = &domain.MessagePage{Messages: msgs[7:15], NextContinuationToken: "p15"}
	pages["p15"] = &domain.MessagePage{Messages: msgs[15:25], NextContinuationToken: "p25"}
	pages["p25"] = &domain.MessagePage{Messages: msgs[25:30]}

	provider := &fakeProvider{pages: pages}
	h := newHarness(t, provider, &fakeClassifier{eval: &out.RuleEvaluation{}}, nil)

	job, _ := h.coord.StartSync(context.Background(), "owner-1")
	done := drain(t, h, job.ID)

	if done.Status != domain.JobStatusCompleted {
		t.Fatalf("job status = %s (%s), want completed", done.Status, done.Error)
	}
	want := []int{1, 2, 4, 8, 10, 10}
	if len(provider.listCalls) != len(want) {
		t.Fatalf("made %d list calls, want %d", len(provider.listCalls), len(want))
	}
	for i, q := range provider.listCalls {
		if q.MaxResults != want[i] {
			t.Errorf("batch %d size = %d, want %d", i, q.MaxResults, want[i])
		}
	}
	if done.ProcessedCount != 30 {
		t.Errorf("processed = %d, want 30", done.ProcessedCount)
	}
}

func TestEndToEnd_AutoApproveInvoice(t *testing.T) {
	pages := map[string]*domain.MessagePage{
		"": {Messages: []domain.InboundMessage{msgWithSubject("msg-1", "Invoice #INV-2024-001")}},
	}
	provider := &fakeProvider{pages: pages}

	rules := []*domain.ClassificationRule{{
		ID: "rule-1", Name: "small invoices", Prompt: "auto-approve any invoice under $2000", Priority: 0, Enabled: true,
	}}
	classifier := &fakeClassifier{eval: &out.RuleEvaluation{
		MatchedRules: []domain.MatchedRule{
			{RuleID: "rule-1", RuleName: "small invoices", Confidence: 92, Actions: []string{"approve"}},
		},
		OverallConfidence: 92,
	}}
	h := newHarness(t, provider, classifier, rules)

	job, _ := h.coord.StartSync(context.Background(), "owner-1")
	done := drain(t, h, job.ID)

	if done.Status != domain.JobStatusCompleted {
		t.Fatalf("job status = %s (%s)", done.Status, done.Error)
	}
	if done.CardsAdded != 1 {
		t.Fatalf("cards added = %d, want 1", done.CardsAdded)
	}
	doc := h.docs.inserted[0]
	if doc.DocumentType != domain.DocTypeInvoice {
		t.Errorf("type = %s, want invoice", doc.DocumentType)
	}
	if doc.Amount == nil || *doc.Amount != 1250 {
		t.Errorf("amount = %v, want 1250", doc.Amount)
	}
	if doc.Status != domain.DocStatusAuto {
		t.Errorf("status = %s, want auto", doc.Status)
	}
	if len(doc.AppliedClassifications) != 1 {
		t.Errorf("applied classifications = %d, want 1", len(doc.AppliedClassifications))
	}
}

func TestIdempotence_SecondPassAddsNothing(t *testing.T) {
	// Page keeps returning a continuation token pointing at itself, so the
	// same message is served again on the next batch.
	pages := map[string]*domain.MessagePage{
		"":     {Messages: []domain.InboundMessage{msgWithSubject("msg-1", "Invoice #7")}, NextContinuationToken: "loop"},
		"loop": {Messages: []domain.InboundMessage{msgWithSubject("msg-1", "Invoice #7")}},
	}
	provider := &fakeProvider{pages: pages}
	h := newHarness(t, provider, &fakeClassifier{eval: &out.RuleEvaluation{}}, nil)

	job, _ := h.coord.StartSync(context.Background(), "owner-1")
	done := drain(t, h, job.ID)

	if done.Status != domain.JobStatusCompleted {
		t.Fatalf("job status = %s (%s)", done.Status, done.Error)
	}
	if done.CardsAdded != 1 {
		t.Errorf("cards added = %d, want 1 (re-served message dedupes)", done.CardsAdded)
	}
}

func TestDedup_SimilarMessagesYieldOneDocument(t *testing.T) {
	// same sender, normalized subject, attachment count, different ids
	m1 := msgWithSubject("msg-1", "Invoice #99")
	m2 := msgWithSubject("msg-2", "Re: Invoice #99")
	pages := map[string]*domain.MessagePage{
		"": {Messages: []domain.InboundMessage{m1}, NextContinuationToken: "p1"},
		"p1": {Messages: []domain.InboundMessage{m2}},
	}
	provider := &fakeProvider{pages: pages}
	h := newHarness(t, provider, &fakeClassifier{eval: &out.RuleEvaluation{}}, nil)

	job, _ := h.coord.StartSync(context.Background(), "owner-1")
	done := drain(t, h, job.ID)

	if done.CardsAdded != 1 {
		t.Errorf("cards added = %d, want 1 (reply variant is a duplicate)", done.CardsAdded)
	}
}

func TestEngineFailureContainment(t *testing.T) {
	pages := map[string]*domain.MessagePage{
		"": {Messages: []domain.InboundMessage{msgWithSubject("msg-1", "Invoice #5")}},
	}
	provider := &fakeProvider{pages: pages}
	rules := []*domain.ClassificationRule{{ID: "r1", Priority: 0, Enabled: true}}
	h := newHarness(t, provider, &fakeClassifier{err: errors.New("llm down")}, rules)

	job, _ := h.coord.StartSync(context.Background(), "owner-1")
	done := drain(t, h, job.ID)

	if done.Status != domain.JobStatusCompleted {
		t.Fatalf("engine failure must not fail the job, got %s (%s)", done.Status, done.Error)
	}
	if len(h.docs.inserted) != 1 {
		t.Fatalf("inserted %d docs, want 1", len(h.docs.inserted))
	}
	doc := h.docs.inserted[0]
	if doc.Status != domain.DocStatusPending || len(doc.AppliedClassifications) != 0 {
		t.Errorf("doc should stay pending with no classifications, got status=%s n=%d",
			doc.Status, len(doc.AppliedClassifications))
	}
}

func TestBatchError_FailsJob(t *testing.T) {
	provider := &fakeProvider{
		pages:       map[string]*domain.MessagePage{},
		listErrOnce: errors.New("mailbox unreachable"),
	}
	h := newHarness(t, provider, &fakeClassifier{eval: &out.RuleEvaluation{}}, nil)

	job, _ := h.coord.StartSync(context.Background(), "owner-1")
	got, err := h.coord.ContinueJob(context.Background(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.JobStatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if !strings.Contains(got.Error, "mailbox unreachable") {
		t.Errorf("error = %q, want the cause recorded", got.Error)
	}
	// manual retry is not automatic; the job stays failed
	if _, err := h.coord.ContinueJob(context.Background(), job.ID); !apperr.IsCode(err, apperr.CodePreconditionFailed) {
		t.Errorf("continuing a failed job: err = %v, want precondition failed", err)
	}
}

func TestCancelSync(t *testing.T) {
	provider := &fakeProvider{pages: map[string]*domain.MessagePage{}}
	h := newHarness(t, provider, &fakeClassifier{eval: &out.RuleEvaluation{}}, nil)

	job, _ := h.coord.StartSync(context.Background(), "owner-1")

	cancelled, err := h.coord.CancelSync(context.Background(), "owner-1", job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if cancelled.Status != domain.JobStatusFailed || cancelled.Error != domain.CancelledByUser {
		t.Errorf("cancel should fail the job with the sentinel, got %s %q", cancelled.Status, cancelled.Error)
	}
	if !cancelled.WasCancelled() {
		t.Error("WasCancelled should distinguish cancellation from errors")
	}

	// cancelled job cannot be continued
	if _, err := h.coord.ContinueJob(context.Background(), job.ID); !apperr.IsCode(err, apperr.CodePreconditionFailed) {
		t.Errorf("continue after cancel: err = %v, want precondition failed", err)
	}
	// cancelling a terminal job is rejected
	if _, err := h.coord.CancelSync(context.Background(), "owner-1", job.ID); !apperr.IsCode(err, apperr.CodePreconditionFailed) {
		t.Errorf("double cancel: err = %v, want precondition failed", err)
	}
	// wrong owner never sees the job
	if _, err := h.coord.CancelSync(context.Background(), "owner-2", job.ID); !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("foreign owner cancel: err = %v, want not found", err)
	}
}

func TestGetLatestJob(t *testing.T) {
	provider := &fakeProvider{pages: map[string]*domain.MessagePage{}}
	h := newHarness(t, provider, &fakeClassifier{eval: &out.RuleEvaluation{}}, nil)

	if job, err := h.coord.GetLatestJob(context.Background(), "owner-1"); err != nil || job != nil {
		t.Errorf("no history should yield nil, got %v %v", job, err)
	}

	created, _ := h.coord.StartSync(context.Background(), "owner-1")
	latest, err := h.coord.GetLatestJob(context.Background(), "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || latest.ID != created.ID {
		t.Errorf("latest job = %+v, want the one just created", latest)
	}
}
