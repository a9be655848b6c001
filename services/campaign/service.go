package campaign

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"incentivehub/pkg/celengine"
	"incentivehub/pkg/db/option"
	"incentivehub/pkg/errutil"
	"incentivehub/pkg/repository"
	"incentivehub/pkg/sequence"
	"incentivehub/services/user"
)

// ========================================================
// Service Definition
// ========================================================

type Service struct {
	db     *gorm.DB
	node   *snowflake.Node
	seq    sequence.Generator
	logger *zap.Logger

	campaigns    repository.Repository[Campaign]
	requirements repository.Repository[GoalRequirement]
	conditions   repository.Repository[GoalCondition]
}

type ServiceParams struct {
	fx.In

	DB     *gorm.DB
	Node   *snowflake.Node
	Seq    sequence.Generator
	Logger *zap.Logger
}

func NewService(p ServiceParams) *Service {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:     p.DB,
		node:   p.Node,
		seq:    p.Seq,
		logger: logger,

		campaigns:    repository.ProvideStore[Campaign](p.DB),
		requirements: repository.ProvideStore[GoalRequirement](p.DB),
		conditions:   repository.ProvideStore[GoalCondition](p.DB),
	}
}

// ========================================================
// Request parameters
// ========================================================

type ConditionParams struct {
	Field           string   `json:"field"`
	Operator        Operator `json:"operator"`
	ComparisonValue string   `json:"comparisonValue"`
}

type RequirementParams struct {
	Description   string            `json:"description"`
	Type          RequirementType   `json:"type"`
	TargetValue   float64           `json:"targetValue"`
	PointsAwarded float64           `json:"pointsAwarded"`
	Conditions    []ConditionParams `json:"conditions"`
}

type CreateParams struct {
	Title                   string              `json:"title"`
	Description             string              `json:"description"`
	StartDate               *time.Time          `json:"startDate"`
	EndDate                 *time.Time          `json:"endDate"`
	PointsOnCompletion      float64             `json:"pointsOnCompletion"`
	ManagerPointsPercentage float64             `json:"managerPointsPercentage"`
	EligibilityExpression   string              `json:"eligibilityExpression"`
	Requirements            []RequirementParams `json:"requirements"`
}

type UpdateParams struct {
	Title                   string     `json:"title"`
	Description             string     `json:"description"`
	StartDate               *time.Time `json:"startDate"`
	EndDate                 *time.Time `json:"endDate"`
	PointsOnCompletion      *float64   `json:"pointsOnCompletion"`
	ManagerPointsPercentage *float64   `json:"managerPointsPercentage"`
	EligibilityExpression   *string    `json:"eligibilityExpression"`
	// Requirements, when non-nil, fully replaces the existing set
	// (delete-all, recreate); requirements are never patched in place.
	Requirements []RequirementParams `json:"requirements"`
}

type ListParams struct {
	OnlyActive bool
	Limit      int
}

// ========================================================
// Operations
// ========================================================

func (s *Service) Create(ctx context.Context, p CreateParams) (*Campaign, error) {
	if strings.TrimSpace(p.Title) == "" {
		return nil, errutil.BadRequest("title is required", nil)
	}
	if err := validateWindow(p.StartDate, p.EndDate); err != nil {
		return nil, err
	}
	if p.ManagerPointsPercentage < 0 || p.ManagerPointsPercentage > 100 {
		return nil, errutil.BadRequest("managerPointsPercentage must be between 0 and 100", nil)
	}
	if err := s.validateEligibility(p.EligibilityExpression); err != nil {
		return nil, err
	}
	if err := validateRequirements(p.Requirements); err != nil {
		return nil, err
	}

	code, err := s.seq.NextCampaignCode(ctx)
	if err != nil {
		return nil, errutil.Internal("failed to generate campaign code", err)
	}

	c := &Campaign{
		CampaignID:              s.node.Generate().String(),
		Code:                    code,
		Title:                   p.Title,
		Description:             p.Description,
		Status:                  StatusDraft,
		StartDate:               p.StartDate,
		EndDate:                 p.EndDate,
		PointsOnCompletion:      p.PointsOnCompletion,
		ManagerPointsPercentage: p.ManagerPointsPercentage,
		EligibilityExpression:   p.EligibilityExpression,
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.campaigns.WithTrx(tx).Create(ctx, c); err != nil {
			return err
		}
		return s.createRequirements(ctx, tx, c.CampaignID, p.Requirements)
	}); err != nil {
		s.logger.Error("failed to create campaign", zap.Error(err))
		return nil, errutil.Internal("failed to create campaign", err)
	}

	return s.Get(ctx, c.CampaignID)
}

func (s *Service) Get(ctx context.Context, campaignID string) (*Campaign, error) {
	c, err := s.campaigns.FindOne(ctx, &Campaign{CampaignID: campaignID},
		option.WithPreload("Requirements", "Requirements.Conditions"))
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errutil.NotFound("campaign not found", nil)
	}

	if err := s.expireIfEnded(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) List(ctx context.Context, p ListParams) ([]*Campaign, error) {
	query := &Campaign{}
	if p.OnlyActive {
		query.Status = StatusActive
	}

	opts := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{Field: "created_at", OrderBy: "DESC"}),
		option.WithPreload("Requirements", "Requirements.Conditions"),
	}
	if p.Limit > 0 {
		opts = append(opts, option.WithLimit(p.Limit))
	}

	campaigns, err := s.campaigns.Find(ctx, query, opts...)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	result := campaigns[:0]
	for _, c := range campaigns {
		if err := s.expireIfEnded(ctx, c); err != nil {
			return nil, err
		}
		if p.OnlyActive && !c.IsActive(now) {
			continue
		}
		result = append(result, c)
	}

	return result, nil
}

func (s *Service) Update(ctx context.Context, campaignID string, p UpdateParams) (*Campaign, error) {
	c, err := s.Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if c.Status == StatusInactive {
		return nil, errutil.UnprocessableEntity("inactive campaigns may not be updated", nil)
	}

	if p.Title != "" {
		c.Title = p.Title
	}
	if p.Description != "" {
		c.Description = p.Description
	}
	if p.StartDate != nil {
		c.StartDate = p.StartDate
	}
	if p.EndDate != nil {
		c.EndDate = p.EndDate
	}
	if p.PointsOnCompletion != nil {
		c.PointsOnCompletion = *p.PointsOnCompletion
	}
	if p.ManagerPointsPercentage != nil {
		if *p.ManagerPointsPercentage < 0 || *p.ManagerPointsPercentage > 100 {
			return nil, errutil.BadRequest("managerPointsPercentage must be between 0 and 100", nil)
		}
		c.ManagerPointsPercentage = *p.ManagerPointsPercentage
	}
	if p.EligibilityExpression != nil {
		if err := s.validateEligibility(*p.EligibilityExpression); err != nil {
			return nil, err
		}
		c.EligibilityExpression = *p.EligibilityExpression
	}
	if err := validateWindow(c.StartDate, c.EndDate); err != nil {
		return nil, err
	}
	if p.Requirements != nil {
		if err := validateRequirements(p.Requirements); err != nil {
			return nil, err
		}
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).
			Model(&Campaign{}).
			Where("campaign_id = ?", c.CampaignID).
			Updates(map[string]any{
				"title":                     c.Title,
				"description":               c.Description,
				"start_date":                c.StartDate,
				"end_date":                  c.EndDate,
				"points_on_completion":      c.PointsOnCompletion,
				"manager_points_percentage": c.ManagerPointsPercentage,
				"eligibility_expression":    c.EligibilityExpression,
			}).Error; err != nil {
			return err
		}

		if p.Requirements == nil {
			return nil
		}
		if err := s.deleteRequirements(ctx, tx, c.CampaignID); err != nil {
			return err
		}
		return s.createRequirements(ctx, tx, c.CampaignID, p.Requirements)
	}); err != nil {
		s.logger.Error("failed to update campaign", zap.String("campaign_id", campaignID), zap.Error(err))
		return nil, errutil.Internal("failed to update campaign", err)
	}

	return s.Get(ctx, campaignID)
}

// Activate moves a DRAFT campaign to ACTIVE. A campaign whose end date has
// already passed cannot be activated.
func (s *Service) Activate(ctx context.Context, campaignID string) (*Campaign, error) {
	c, err := s.Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusDraft {
		return nil, errutil.UnprocessableEntity("only draft campaigns may be activated", nil)
	}
	if c.Ended(time.Now()) {
		return nil, errutil.UnprocessableEntity("campaign end date has already passed", nil)
	}

	if err := s.setStatus(ctx, campaignID, StatusActive); err != nil {
		return nil, err
	}
	c.Status = StatusActive
	return c, nil
}

// Deactivate moves an ACTIVE campaign to INACTIVE. INACTIVE is terminal.
func (s *Service) Deactivate(ctx context.Context, campaignID string) (*Campaign, error) {
	c, err := s.Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusActive {
		return nil, errutil.UnprocessableEntity("only active campaigns may be deactivated", nil)
	}

	if err := s.setStatus(ctx, campaignID, StatusInactive); err != nil {
		return nil, err
	}
	c.Status = StatusInactive
	return c, nil
}

// Clone copies a campaign, its requirements and conditions into a new DRAFT.
func (s *Service) Clone(ctx context.Context, campaignID, newTitle string) (*Campaign, error) {
	original, err := s.Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	code, err := s.seq.NextCampaignCode(ctx)
	if err != nil {
		return nil, errutil.Internal("failed to generate campaign code", err)
	}

	cloned := &Campaign{
		CampaignID:              s.node.Generate().String(),
		Code:                    code,
		Title:                   newTitle,
		Description:             original.Description,
		Status:                  StatusDraft,
		StartDate:               original.StartDate,
		EndDate:                 original.EndDate,
		PointsOnCompletion:      original.PointsOnCompletion,
		ManagerPointsPercentage: original.ManagerPointsPercentage,
		EligibilityExpression:   original.EligibilityExpression,
	}
	if cloned.Title == "" {
		cloned.Title = original.Title + " (copy)"
	}

	params := make([]RequirementParams, 0, len(original.Requirements))
	for _, req := range original.Requirements {
		rp := RequirementParams{
			Description:   req.Description,
			Type:          req.Type,
			TargetValue:   req.TargetValue,
			PointsAwarded: req.PointsAwarded,
		}
		for _, cond := range req.Conditions {
			rp.Conditions = append(rp.Conditions, ConditionParams{
				Field:           cond.Field,
				Operator:        cond.Operator,
				ComparisonValue: cond.ComparisonValue,
			})
		}
		params = append(params, rp)
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.campaigns.WithTrx(tx).Create(ctx, cloned); err != nil {
			return err
		}
		return s.createRequirements(ctx, tx, cloned.CampaignID, params)
	}); err != nil {
		s.logger.Error("failed to clone campaign", zap.String("campaign_id", campaignID), zap.Error(err))
		return nil, errutil.Internal("failed to clone campaign", err)
	}

	return s.Get(ctx, cloned.CampaignID)
}

// Delete removes a DRAFT campaign and its requirement set.
func (s *Service) Delete(ctx context.Context, campaignID string) error {
	c, err := s.Get(ctx, campaignID)
	if err != nil {
		return err
	}
	if c.Status != StatusDraft {
		return errutil.UnprocessableEntity("only draft campaigns may be deleted", nil)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.deleteRequirements(ctx, tx, campaignID); err != nil {
			return err
		}
		return s.campaigns.WithTrx(tx).Delete(ctx, &Campaign{CampaignID: campaignID})
	})
}

// ========================================================
// Helpers
// ========================================================

func (s *Service) setStatus(ctx context.Context, campaignID string, status Status) error {
	return s.db.WithContext(ctx).
		Model(&Campaign{}).
		Where("campaign_id = ?", campaignID).
		Update("status", status).Error
}

// expireIfEnded flips an ACTIVE campaign to INACTIVE once its end date has
// passed. Applied on read paths; there is no background scheduler.
func (s *Service) expireIfEnded(ctx context.Context, c *Campaign) error {
	if c.Status != StatusActive || !c.Ended(time.Now()) {
		return nil
	}
	if err := s.setStatus(ctx, c.CampaignID, StatusInactive); err != nil {
		return err
	}
	c.Status = StatusInactive
	return nil
}

func (s *Service) createRequirements(ctx context.Context, tx *gorm.DB, campaignID string, params []RequirementParams) error {
	for i, rp := range params {
		req := &GoalRequirement{
			RequirementID: s.node.Generate().String(),
			CampaignID:    campaignID,
			Description:   rp.Description,
			Type:          rp.Type,
			TargetValue:   rp.TargetValue,
			PointsAwarded: rp.PointsAwarded,
			Position:      i,
		}
		if err := s.requirements.WithTrx(tx).Create(ctx, req); err != nil {
			return err
		}

		conditions := make([]*GoalCondition, 0, len(rp.Conditions))
		for _, cp := range rp.Conditions {
			conditions = append(conditions, &GoalCondition{
				ConditionID:     s.node.Generate().String(),
				RequirementID:   req.RequirementID,
				Field:           cp.Field,
				Operator:        cp.Operator,
				ComparisonValue: cp.ComparisonValue,
			})
		}
		if err := s.conditions.WithTrx(tx).BatchCreate(ctx, conditions); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) deleteRequirements(ctx context.Context, tx *gorm.DB, campaignID string) error {
	if err := tx.WithContext(ctx).
		Where("requirement_id IN (?)", tx.Model(&GoalRequirement{}).
			Select("requirement_id").
			Where("campaign_id = ?", campaignID)).
		Delete(&GoalCondition{}).Error; err != nil {
		return err
	}
	return s.requirements.WithTrx(tx).Delete(ctx, &GoalRequirement{CampaignID: campaignID})
}

func (s *Service) validateEligibility(expression string) error {
	if strings.TrimSpace(expression) == "" {
		return nil
	}
	env, err := celengine.BuildEnvFromAttributes((&user.User{}).EligibilityAttributes())
	if err != nil {
		return errutil.Internal("failed to build eligibility environment", err)
	}
	if err := celengine.ValidateExpression(env, expression); err != nil {
		return errutil.BadRequest("invalid eligibility expression", err)
	}
	return nil
}

func validateWindow(start, end *time.Time) error {
	if start != nil && end != nil && !end.After(*start) {
		return errutil.BadRequest("endDate must be after startDate", nil)
	}
	return nil
}

func validateRequirements(params []RequirementParams) error {
	for _, rp := range params {
		if rp.Type != RequirementQuantity && rp.Type != RequirementValue {
			return errutil.BadRequest("requirement type must be QUANTITY or VALUE", nil)
		}
		if rp.TargetValue < 0 {
			return errutil.BadRequest("requirement target must not be negative", nil)
		}
		for _, cp := range rp.Conditions {
			if strings.TrimSpace(cp.Field) == "" {
				return errutil.BadRequest("condition field is required", nil)
			}
			if !ValidOperator(cp.Operator) {
				return errutil.BadRequest("unsupported condition operator", nil)
			}
		}
	}
	return nil
}
