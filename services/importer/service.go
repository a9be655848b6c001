package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"incentivehub/internal/config"
	"incentivehub/pkg/db/option"
	"incentivehub/pkg/db/pagination"
	"incentivehub/pkg/errutil"
	"incentivehub/pkg/repository"
	"incentivehub/pkg/sequence"
	"incentivehub/services/campaign"
	"incentivehub/services/kit"
	"incentivehub/services/submission"
	"incentivehub/services/user"
)

// UserDirectory resolves sellers from the identity documents found in
// spreadsheet rows.
type UserDirectory interface {
	GetByDocument(ctx context.Context, document string) (*user.User, error)
}

// KitProvider enrolls sellers referenced by import rows.
type KitProvider interface {
	GetOrCreate(ctx context.Context, campaignID, sellerID string) (*kit.CampaignKit, error)
}

// SubmissionCreator files PENDING submissions for valid non-dry-run rows.
type SubmissionCreator interface {
	Create(ctx context.Context, p submission.CreateParams) (*submission.CampaignSubmission, error)
}

type Service struct {
	db        *gorm.DB
	seq       sequence.Generator
	logger    *zap.Logger
	cfg       *config.Config
	validator *Validator

	jobs repository.Repository[ValidationJob]

	campaigns   *campaign.Service
	users       UserDirectory
	kits        KitProvider
	submissions SubmissionCreator
}

type ServiceParams struct {
	fx.In

	DB          *gorm.DB
	Seq         sequence.Generator
	Logger      *zap.Logger
	Config      *config.Config
	Campaigns   *campaign.Service
	Users       UserDirectory
	Kits        KitProvider
	Submissions SubmissionCreator
}

func NewService(p ServiceParams) *Service {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:          p.DB,
		seq:         p.Seq,
		logger:      logger,
		cfg:         p.Config,
		validator:   NewValidator(logger),
		jobs:        repository.ProvideStore[ValidationJob](p.DB),
		campaigns:   p.Campaigns,
		users:       p.Users,
		kits:        p.Kits,
		submissions: p.Submissions,
	}
}

type CreateJobParams struct {
	FileName   string            `json:"fileName"`
	CampaignID string            `json:"campaignId"`
	DryRun     bool              `json:"dryRun"`
	Sheet      Sheet             `json:"sheet"`
	Mappings   []Mapping         `json:"mappings"`
	Config     *ValidationConfig `json:"config"`
}

// CreateJob persists a PENDING job. Omitted mappings fall back to the
// suggestion engine; an omitted config falls back to the process defaults.
func (s *Service) CreateJob(ctx context.Context, p CreateJobParams) (*ValidationJob, error) {
	if strings.TrimSpace(p.FileName) == "" {
		return nil, errutil.BadRequest("fileName is required", nil)
	}
	if len(p.Sheet.Headers) == 0 {
		return nil, errutil.BadRequest("sheet has no headers", nil)
	}
	if !p.DryRun {
		if p.CampaignID == "" {
			return nil, errutil.BadRequest("campaignId is required for non-dry-run jobs", nil)
		}
		if _, err := s.campaigns.Get(ctx, p.CampaignID); err != nil {
			return nil, err
		}
	}

	mappings := p.Mappings
	if mappings == nil {
		mappings = SuggestMappings(p.Sheet.Headers)
	}

	cfg := p.Config
	if cfg == nil {
		cfg = s.defaultConfig()
	}

	code, err := s.seq.NextJobCode(ctx)
	if err != nil {
		return nil, errutil.Internal("failed to generate job code", err)
	}

	job := &ValidationJob{
		JobID:      uuid.NewString(),
		Code:       code,
		FileName:   p.FileName,
		CampaignID: p.CampaignID,
		DryRun:     p.DryRun,
		Status:     JobPending,
		TotalRows:  len(p.Sheet.Rows),
	}
	if job.Sheet, err = json.Marshal(p.Sheet); err != nil {
		return nil, errutil.Internal("failed to encode sheet", err)
	}
	if job.Mappings, err = json.Marshal(mappings); err != nil {
		return nil, errutil.Internal("failed to encode mappings", err)
	}
	if job.Config, err = json.Marshal(cfg); err != nil {
		return nil, errutil.Internal("failed to encode config", err)
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *Service) defaultConfig() *ValidationConfig {
	cfg := &ValidationConfig{
		ValidateSellerDocument: true,
		ValidateDates:          true,
		GracePeriodDays:        30,
	}
	if s.cfg == nil {
		return cfg
	}
	if s.cfg.Import.GracePeriodDays > 0 {
		cfg.GracePeriodDays = s.cfg.Import.GracePeriodDays
	}
	if s.cfg.Import.MinValue > 0 {
		min := s.cfg.Import.MinValue
		cfg.MinValue = &min
	}
	if s.cfg.Import.MaxValue > 0 {
		max := s.cfg.Import.MaxValue
		cfg.MaxValue = &max
	}
	return cfg
}

// RunJob processes a PENDING job's rows sequentially. Rows never abort the
// job; cancellation between rows fails the job with a reason.
func (s *Service) RunJob(ctx context.Context, jobID string) (*ValidationJob, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != JobPending {
		return nil, errutil.UnprocessableEntity("only pending jobs may be run", nil)
	}

	// Guarded flip so two callers cannot run the same job concurrently.
	now := time.Now()
	result := s.db.WithContext(ctx).
		Model(&ValidationJob{}).
		Where("job_id = ? AND status = ?", jobID, JobPending).
		Updates(map[string]any{"status": JobProcessing, "started_at": now})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, errutil.Conflict("job is already running", nil)
	}
	job.Status = JobProcessing
	job.StartedAt = &now

	var sheet Sheet
	var mappings []Mapping
	var cfg ValidationConfig
	if err := json.Unmarshal(job.Sheet, &sheet); err != nil {
		return nil, s.failJob(ctx, job, "stored sheet is unreadable")
	}
	if err := json.Unmarshal(job.Mappings, &mappings); err != nil {
		return nil, s.failJob(ctx, job, "stored mappings are unreadable")
	}
	if err := json.Unmarshal(job.Config, &cfg); err != nil {
		return nil, s.failJob(ctx, job, "stored config is unreadable")
	}

	var c *campaign.Campaign
	if !job.DryRun {
		if c, err = s.campaigns.Get(ctx, job.CampaignID); err != nil {
			return nil, s.failJob(ctx, job, "campaign not found")
		}
	}

	details := make([]ValidationResultRow, 0, len(sheet.Rows))
	for i, row := range sheet.Rows {
		if err := ctx.Err(); err != nil {
			_ = s.failJob(ctx, job, "job canceled")
			return nil, fmt.Errorf("validation job %s canceled: %w", job.JobID, err)
		}

		// Header occupies line 1; data starts on line 2.
		lineNumber := i + 2
		mapped := MapRow(row, sheet.Headers, mappings)
		rowResult := s.validator.ValidateRow(mapped, cfg, lineNumber)

		if rowResult.Status != RowError && !job.DryRun {
			if err := s.fileSubmission(ctx, c, mapped); err != nil {
				s.logger.Warn("import row could not be filed",
					zap.String("job_id", job.JobID),
					zap.Int("line", lineNumber),
					zap.Error(err))
				rowResult.Status = RowError
				rowResult.Message = err.Error()
				rowResult.Points = 0
				rowResult.RuleTriggered = ""
			}
		}

		switch rowResult.Status {
		case RowValid:
			job.ValidatedSales++
		case RowWarning:
			job.ValidatedSales++
			job.Warnings++
		case RowError:
			job.Errors++
		}
		job.PointsDistributed += rowResult.Points
		details = append(details, rowResult)
	}

	completed := time.Now()
	job.Status = JobConcluded
	job.CompletedAt = &completed
	if job.Details, err = json.Marshal(details); err != nil {
		return nil, s.failJob(ctx, job, "failed to encode row details")
	}

	if err := s.jobs.Update(ctx, job.JobID, job); err != nil {
		return nil, err
	}

	span := trace.SpanFromContext(ctx)
	s.logger.Info("validation job concluded",
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("job_id", job.JobID),
		zap.Int("total_rows", job.TotalRows),
		zap.Int("validated", job.ValidatedSales),
		zap.Int("errors", job.Errors),
		zap.Int("warnings", job.Warnings))

	return job, nil
}

// fileSubmission turns a valid mapped row into a PENDING submission: seller
// by document, kit by enrollment, requirement by first condition match with
// the campaign's first requirement as fallback.
func (s *Service) fileSubmission(ctx context.Context, c *campaign.Campaign, mapped map[string]any) error {
	if len(c.Requirements) == 0 {
		return errutil.UnprocessableEntity("campaign has no requirements to file against", nil)
	}

	seller, err := s.users.GetByDocument(ctx, stringField(mapped, FieldSellerDocument))
	if err != nil {
		return err
	}

	enrolled, err := s.kits.GetOrCreate(ctx, c.CampaignID, seller.ID)
	if err != nil {
		return err
	}

	requirementID := c.Requirements[0].RequirementID
	source := mappedSource(mapped)
	for i := range c.Requirements {
		if c.Requirements[i].SatisfiedBy(source) {
			requirementID = c.Requirements[i].RequirementID
			break
		}
	}

	quantity, _ := mapped[FieldQuantity].(float64)
	value, _ := mapped[FieldValue].(float64)

	_, err = s.submissions.Create(ctx, submission.CreateParams{
		KitID:         enrolled.KitID,
		RequirementID: requirementID,
		OrderNumber:   stringField(mapped, FieldOrderID),
		Quantity:      quantity,
		Value:         value,
		Details:       mapped,
	})
	return err
}

func (s *Service) failJob(ctx context.Context, job *ValidationJob, reason string) error {
	now := time.Now()
	// Persist the FAILED mark even when the run was canceled.
	if err := s.db.WithContext(context.WithoutCancel(ctx)).
		Model(&ValidationJob{}).
		Where("job_id = ?", job.JobID).
		Updates(map[string]any{
			"status":         JobFailed,
			"failure_reason": reason,
			"completed_at":   now,
		}).Error; err != nil {
		s.logger.Error("failed to mark job as failed",
			zap.String("job_id", job.JobID), zap.Error(err))
	}
	return errutil.UnprocessableEntity(reason, nil)
}

// RerunJob resets a CONCLUDED job's counters and processes it again.
func (s *Service) RerunJob(ctx context.Context, jobID string) (*ValidationJob, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != JobConcluded {
		return nil, errutil.UnprocessableEntity("only concluded jobs may be re-run", nil)
	}

	if err := s.db.WithContext(ctx).
		Model(&ValidationJob{}).
		Where("job_id = ?", jobID).
		Updates(map[string]any{
			"status":             JobPending,
			"validated_sales":    0,
			"errors":             0,
			"warnings":           0,
			"points_distributed": 0,
			"details":            nil,
			"failure_reason":     "",
			"started_at":         nil,
			"completed_at":       nil,
		}).Error; err != nil {
		return nil, err
	}

	return s.RunJob(ctx, jobID)
}

func (s *Service) GetJob(ctx context.Context, jobID string) (*ValidationJob, error) {
	job, err := s.jobs.FindOne(ctx, &ValidationJob{JobID: jobID})
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, errutil.NotFound("validation job not found", nil)
	}
	return job, nil
}

func (s *Service) ListJobs(ctx context.Context, p pagination.Pagination) ([]*ValidationJob, *pagination.PageInfo, error) {
	if p.Limit <= 0 {
		p.Limit = 20
	}

	opts := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{Field: "created_at", OrderBy: "DESC"}),
		option.ApplyPagination(p),
	}

	jobs, err := s.jobs.Find(ctx, &ValidationJob{}, opts...)
	if err != nil {
		return nil, nil, err
	}

	jobs, pageInfo := pagination.BuildCursorPageInfo(jobs, p.Limit, func(j *ValidationJob) string {
		cursor, _ := pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: j.CreatedAt.UTC().Format(time.RFC3339Nano),
			ID:        j.JobID,
		})
		return cursor
	})

	return jobs, pageInfo, nil
}

// Report exposes a job's counters and per-row outcomes; the fields
// round-trip losslessly with the stored job.
func (s *Service) Report(ctx context.Context, jobID string) (*JobReport, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	report := &JobReport{
		JobID:             job.JobID,
		FileName:          job.FileName,
		Status:            job.Status,
		TotalRows:         job.TotalRows,
		ValidatedSales:    job.ValidatedSales,
		Errors:            job.Errors,
		Warnings:          job.Warnings,
		PointsDistributed: job.PointsDistributed,
	}
	if len(job.Details) > 0 {
		if err := json.Unmarshal(job.Details, &report.Details); err != nil {
			return nil, errutil.Internal("stored row details are unreadable", err)
		}
	}
	return report, nil
}

var Module = fx.Module("importer",
	fx.Provide(
		NewService,
		func(s *user.Service) UserDirectory { return s },
		func(s *kit.Service) KitProvider { return s },
		func(s *submission.Service) SubmissionCreator { return s },
	),
)
