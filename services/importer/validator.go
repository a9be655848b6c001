package importer

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"incentivehub/pkg/identity"
	"incentivehub/services/campaign"
)

// Validator runs the ordered per-row checks. It never returns an error:
// every failure mode, including panics, becomes a structured row result so
// a bulk job always terminates with a full report.
type Validator struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewValidator(logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{logger: logger, now: time.Now}
}

// mappedSource adapts a mapped row to the condition evaluator's field
// lookup.
type mappedSource map[string]any

func (m mappedSource) FieldValue(field string) any {
	v, ok := m[field]
	if !ok {
		return nil
	}
	return v
}

// ValidateRow applies the checks in order; the first failing hard check
// short-circuits to ERROR, soft checks downgrade to WARNING and accumulate.
func (v *Validator) ValidateRow(mapped map[string]any, cfg ValidationConfig, lineNumber int) (result ValidationResultRow) {
	result = ValidationResultRow{
		LineNumber: lineNumber,
		Status:     RowValid,
		MappedRow:  mapped,
	}

	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("row validation panicked",
				zap.Int("line", lineNumber), zap.Any("panic", r))
			result.Status = RowError
			result.Message = "internal validation failure"
		}
	}()

	if msg, ok := v.checkRequired(mapped); !ok {
		return errorRow(result, msg)
	}
	if msg, ok := v.checkIdentity(mapped, cfg); !ok {
		return errorRow(result, msg)
	}

	dateState := v.checkDate(mapped, cfg)
	if dateState.errMsg != "" {
		return errorRow(result, dateState.errMsg)
	}
	if dateState.warning != "" {
		result.Status = RowWarning
		result.Warnings = append(result.Warnings, dateState.warning)
	}

	if warning := v.checkBounds(mapped, cfg); warning != "" {
		result.Status = RowWarning
		result.Warnings = append(result.Warnings, warning)
	}

	v.applyCustomRules(mapped, cfg, &result)
	return result
}

func errorRow(row ValidationResultRow, message string) ValidationResultRow {
	row.Status = RowError
	row.Message = message
	row.Warnings = nil
	return row
}

func (v *Validator) checkRequired(mapped map[string]any) (string, bool) {
	if stringField(mapped, FieldOrderID) == "" {
		return "missing required field: order id", false
	}
	if stringField(mapped, FieldSellerDocument) == "" {
		return "missing required field: seller document", false
	}
	return "", true
}

func (v *Validator) checkIdentity(mapped map[string]any, cfg ValidationConfig) (string, bool) {
	if cfg.ValidateSellerDocument {
		if !identity.ValidatePersonalID(stringField(mapped, FieldSellerDocument)).Valid {
			return "invalid seller document", false
		}
	}
	if cfg.ValidateOrgDocument {
		if doc := stringField(mapped, FieldOrgDocument); doc != "" {
			if !identity.ValidateOrgID(doc).Valid {
				return "invalid organization document", false
			}
		}
	}
	return "", true
}

type dateCheck struct {
	errMsg  string
	warning string
}

func (v *Validator) checkDate(mapped map[string]any, cfg ValidationConfig) dateCheck {
	if !cfg.ValidateDates {
		return dateCheck{}
	}
	raw := stringField(mapped, FieldSaleDate)
	if raw == "" {
		return dateCheck{}
	}

	saleDate, ok := parseDate(raw)
	if !ok {
		return dateCheck{errMsg: "unparseable sale date: " + raw}
	}

	now := v.now()
	if cfg.GracePeriodDays > 0 {
		cutoff := now.AddDate(0, 0, -cfg.GracePeriodDays)
		if saleDate.Before(cutoff) {
			return dateCheck{errMsg: fmt.Sprintf(
				"sale date %s is older than the %d-day grace period",
				saleDate.Format("2006-01-02"), cfg.GracePeriodDays)}
		}
	}
	// A future sale date is suspicious but not fatal.
	if saleDate.After(now) {
		return dateCheck{warning: "sale date is in the future: " + saleDate.Format("2006-01-02")}
	}
	return dateCheck{}
}

func (v *Validator) checkBounds(mapped map[string]any, cfg ValidationConfig) string {
	raw, ok := mapped[FieldValue]
	if !ok {
		return ""
	}
	value, ok := raw.(float64)
	if !ok {
		return ""
	}

	if cfg.MinValue != nil && value < *cfg.MinValue {
		return fmt.Sprintf("value %.2f is below the configured minimum %.2f", value, *cfg.MinValue)
	}
	if cfg.MaxValue != nil && value > *cfg.MaxValue {
		return fmt.Sprintf("value %.2f is above the configured maximum %.2f", value, *cfg.MaxValue)
	}
	return ""
}

// applyCustomRules awards points for every matching active rule. Points sum
// across matches but only the last matched rule name is recorded; rules
// never change the row's status.
func (v *Validator) applyCustomRules(mapped map[string]any, cfg ValidationConfig, result *ValidationResultRow) {
	source := mappedSource(mapped)
	for _, rule := range cfg.CustomRules {
		if !rule.Active {
			continue
		}
		if !campaign.Evaluate(source.FieldValue(rule.Field), rule.Operator, rule.ComparisonValue) {
			continue
		}
		result.Points += rule.Points
		result.RuleTriggered = rule.Name
		result.Warnings = append(result.Warnings, "rule applied: "+rule.Name)
	}
}

func stringField(mapped map[string]any, field string) string {
	raw, ok := mapped[field]
	if !ok {
		return ""
	}
	if s, ok := raw.(string); ok {
		return s
	}
	return trimmedString(raw)
}
