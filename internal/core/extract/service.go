package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"verifront/internal/config"
	"verifront/internal/core/artifact"
	"verifront/internal/core/job"
	"verifront/internal/core/jobsource"
	"verifront/internal/core/record"
	"verifront/internal/core/resolve"
	"verifront/internal/core/session"
	"verifront/internal/logger"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/playwright-community/playwright-go"
)

const TaskTypeExtract = "extract:run"

// QueueExtract is served with concurrency 1: the browser session is a single
// shared viewport and cannot be driven by two runs at once.
const QueueExtract = "extract"

// NavigationError means an entity's target location could not be reached or
// did not resolve to the expected view. Entity-scoped: the run records a
// failed record for the entity and moves on.
type NavigationError struct {
	Entity string
	Target string
	Err    error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigate %s to %s: %v", e.Entity, e.Target, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

type Payload struct {
	JobID    string `json:"job_id"`
	JobsFile string `json:"jobs_file,omitempty"`
}

// JobStore is the run-state surface the orchestrator drives: one pending
// entry per enqueued run, transitioned through processing to a terminal
// status carrying the run summary.
type JobStore interface {
	InitPending(ctx context.Context, jobID string) error
	SetProcessing(ctx context.Context, jobID string) error
	Complete(ctx context.Context, jobID string, status job.Status, summary *job.RunSummary) error
}

// TaskEnqueuer queues one task for the worker.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, queue string, maxRetries int) error
}

type Service struct {
	log       *logger.Logger
	cfg       config.Config
	jobs      JobStore
	sessions  *session.Provider
	sink      *artifact.Service
	assembler *record.Assembler
	schema    []record.FieldDefinition
}

func NewService(cfg config.Config, jobs JobStore, sessions *session.Provider, sink *artifact.Service) *Service {
	return &Service{
		log:       logger.New("ExtractService"),
		cfg:       cfg,
		jobs:      jobs,
		sessions:  sessions,
		sink:      sink,
		assembler: record.NewAssembler(resolve.New()),
		schema:    record.DefaultSchema(),
	}
}

// Enqueue registers a new extraction run and queues it for the worker.
func (s *Service) Enqueue(ctx context.Context, t TaskEnqueuer, jobsFile string) (string, error) {
	jobID := uuid.NewString()
	if err := s.jobs.InitPending(ctx, jobID); err != nil {
		return "", err
	}
	payload, _ := json.Marshal(Payload{JobID: jobID, JobsFile: jobsFile})
	task := asynq.NewTask(TaskTypeExtract, payload)
	if err := t.Enqueue(task, QueueExtract, s.cfg.TaskMaxRetries); err != nil {
		// The run never reached the queue; don't strand the job as pending
		// until its TTL expires.
		_ = s.jobs.Complete(ctx, jobID, job.StatusFailed, &job.RunSummary{Error: "enqueue: " + err.Error()})
		return "", err
	}
	return jobID, nil
}

func (s *Service) HandleTask(ctx context.Context, task *asynq.Task) error {
	var p Payload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return err
	}
	if err := s.jobs.SetProcessing(ctx, p.JobID); err != nil {
		return err
	}

	summary, err := s.Run(ctx, p.JobsFile)
	if err != nil {
		// Run-scoped failure: session or configuration. Nothing was
		// extracted; record the reason and surface the failed status.
		s.log.LogError("extraction run aborted", err)
		if summary == nil {
			summary = &job.RunSummary{Error: err.Error()}
		} else {
			summary.Error = err.Error()
		}
		return s.jobs.Complete(ctx, p.JobID, job.StatusFailed, summary)
	}
	return s.jobs.Complete(ctx, p.JobID, job.StatusCompleted, summary)
}

// Run processes every configured entity strictly in source order. Session
// and configuration failures abort before any entity is touched; everything
// entity-scoped is caught at the iteration boundary and recorded instead.
func (s *Service) Run(ctx context.Context, jobsFile string) (*job.RunSummary, error) {
	if jobsFile == "" {
		jobsFile = s.cfg.JobsFile
	}

	entities, err := jobsource.Load(jobsFile)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Establish()
	if err != nil {
		return nil, err
	}
	defer s.sessions.Close()

	page, err := sess.Page()
	if err != nil {
		return nil, err
	}

	summary := &job.RunSummary{JobsFile: jobsFile, Total: len(entities)}
	for i, entity := range entities {
		s.log.LogInfof("[%d/%d] extracting %s", i+1, len(entities), entity.Name)
		res := s.processEntity(ctx, page, entity)
		if res.ExtractionSuccess {
			summary.Succeeded++
		}
		summary.Entities = append(summary.Entities, res)
	}
	s.log.LogInfof("run complete: %d/%d entities with extracted data", summary.Succeeded, summary.Total)
	return summary, nil
}

// processEntity never returns an error: failures become a failed record so
// a large batch survives individual bad entities.
func (s *Service) processEntity(_ context.Context, page playwright.Page, entity jobsource.EntityJob) job.EntityResult {
	rec, html, err := s.extract(page, entity)
	if err != nil {
		s.log.LogWarnf("entity %s failed: %v", entity.Name, err)
		rec = record.FailedRecord(entity, s.schema, time.Now().UTC(), err.Error())
	}

	result := job.EntityResult{
		EntityID:          entity.ID,
		Name:              entity.Name,
		FieldsExtracted:   rec.Metadata.FieldsExtracted,
		ExtractionSuccess: rec.Metadata.ExtractionSuccess,
		Outcomes:          rec.Outcomes,
	}
	if err != nil {
		result.Error = err.Error()
	}

	path, perr := s.sink.Write(entity, rec)
	if perr != nil {
		s.log.LogError("artifact write failed", perr)
		if result.Error == "" {
			result.Error = perr.Error()
		}
	} else {
		result.ArtifactPath = path
	}

	if s.cfg.SavePageSnapshots && html != "" {
		if serr := s.sink.WriteSnapshot(entity, html); serr != nil {
			s.log.LogWarnf("snapshot write failed for %s: %v", entity.Name, serr)
		}
	}
	return result
}

func (s *Service) extract(page playwright.Page, entity jobsource.EntityJob) (*record.VerificationRecord, string, error) {
	resp, err := page.Goto(entity.TargetLocation, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.cfg.NavTimeoutMs)),
	})
	if err != nil {
		return nil, "", &NavigationError{Entity: entity.ID, Target: entity.TargetLocation, Err: err}
	}
	if resp != nil && resp.Status() >= 400 {
		return nil, "", &NavigationError{Entity: entity.ID, Target: entity.TargetLocation, Err: fmt.Errorf("status %d", resp.Status())}
	}

	// Explicit readiness condition instead of a fixed settle sleep; bounded,
	// and a timeout here is not fatal since the DOM is already attached.
	_ = page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(float64(s.cfg.SettleTimeoutMs)),
	})

	if !landedOnTarget(page.URL(), entity.TargetLocation) {
		return nil, "", &NavigationError{Entity: entity.ID, Target: entity.TargetLocation, Err: fmt.Errorf("landed on unexpected page %s", page.URL())}
	}

	html, err := page.Content()
	if err != nil {
		return nil, "", &NavigationError{Entity: entity.ID, Target: entity.TargetLocation, Err: err}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, "", &NavigationError{Entity: entity.ID, Target: entity.TargetLocation, Err: err}
	}

	rec := s.assembler.Assemble(entity, s.schema, doc, time.Now().UTC())
	return rec, html, nil
}

// landedOnTarget checks the post-navigation URL still points at the
// entity's detail view. SPAs may append query, fragment, or sub-view path
// state, so the target path only needs to be a prefix of the landed path,
// but the prefix must end on a path-segment boundary: /companies/c1 must
// not accept a landing on /companies/c10.
func landedOnTarget(landed, target string) bool {
	lu, err := url.Parse(landed)
	if err != nil {
		return true
	}
	tu, err := url.Parse(target)
	if err != nil {
		return true
	}
	if tu.Host != "" && lu.Host != "" && !strings.EqualFold(lu.Host, tu.Host) {
		return false
	}
	if !strings.HasPrefix(lu.Path, tu.Path) {
		return false
	}
	rest := lu.Path[len(tu.Path):]
	return rest == "" || strings.HasPrefix(rest, "/")
}
