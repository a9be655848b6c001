package importer

import (
	"time"

	"gorm.io/datatypes"

	"incentivehub/services/campaign"
)

// Canonical target fields a spreadsheet column can map to.
const (
	FieldOrderID        = "order_id"
	FieldSellerDocument = "seller_document"
	FieldOrgDocument    = "org_document"
	FieldSaleDate       = "sale_date"
	FieldValue          = "value"
	FieldQuantity       = "quantity"
	FieldProduct        = "product"

	// FieldIgnore is the sentinel for columns that map to nothing.
	FieldIgnore = "ignore"
)

// Sheet is the parsed spreadsheet handed to the importer. Binary formats are
// decoded upstream; the importer never sees them.
type Sheet struct {
	Headers []string `json:"headers"`
	Rows    [][]any  `json:"rows"`
}

// Mapping ties one source column to a canonical target field.
type Mapping struct {
	SourceColumn string `json:"sourceColumn"`
	TargetField  string `json:"targetField"`
	Confidence   int    `json:"confidence"`
}

// CustomRule awards points to rows matching a single field predicate. Rules
// share the goal-condition operator set.
type CustomRule struct {
	Name            string            `json:"name"`
	Field           string            `json:"field"`
	Operator        campaign.Operator `json:"operator"`
	ComparisonValue string            `json:"comparisonValue"`
	Points          float64           `json:"points"`
	Active          bool              `json:"active"`
}

// ValidationConfig controls the per-row checks. Nil bounds mean unbounded.
type ValidationConfig struct {
	ValidateSellerDocument bool         `json:"validateSellerDocument"`
	ValidateOrgDocument    bool         `json:"validateOrgDocument"`
	ValidateDates          bool         `json:"validateDates"`
	GracePeriodDays        int          `json:"gracePeriodDays"`
	MinValue               *float64     `json:"minValue,omitempty"`
	MaxValue               *float64     `json:"maxValue,omitempty"`
	CustomRules            []CustomRule `json:"customRules,omitempty"`
}

type RowStatus string

const (
	RowValid   RowStatus = "VALID"
	RowWarning RowStatus = "WARNING"
	RowError   RowStatus = "ERROR"
)

// ValidationResultRow is one row's outcome. Rows live only inside the job's
// Details JSON document.
type ValidationResultRow struct {
	LineNumber    int            `json:"lineNumber"`
	Status        RowStatus      `json:"status"`
	Message       string         `json:"message,omitempty"`
	Warnings      []string       `json:"warnings,omitempty"`
	MappedRow     map[string]any `json:"mappedRow,omitempty"`
	Points        float64        `json:"points,omitempty"`
	RuleTriggered string         `json:"ruleTriggered,omitempty"`
}

type JobStatus string

const (
	JobPending    JobStatus = "PENDING"
	JobProcessing JobStatus = "PROCESSING"
	JobConcluded  JobStatus = "CONCLUDED"
	JobFailed     JobStatus = "FAILED"
)

// ValidationJob is one bulk-import run. The source sheet, mappings and
// config are persisted with the job so CONCLUDED jobs can be re-run.
type ValidationJob struct {
	JobID      string `gorm:"column:job_id;primaryKey"`
	Code       string `gorm:"column:code;index"`
	FileName   string `gorm:"column:file_name"`
	CampaignID string `gorm:"column:campaign_id;index"`
	// DryRun jobs validate and report but never create submissions.
	DryRun bool      `gorm:"column:dry_run"`
	Status JobStatus `gorm:"column:status;default:PENDING"`

	TotalRows         int     `gorm:"column:total_rows"`
	ValidatedSales    int     `gorm:"column:validated_sales"`
	Errors            int     `gorm:"column:errors"`
	Warnings          int     `gorm:"column:warnings"`
	PointsDistributed float64 `gorm:"column:points_distributed"`

	Sheet    datatypes.JSON `gorm:"column:sheet"`
	Mappings datatypes.JSON `gorm:"column:mappings"`
	Config   datatypes.JSON `gorm:"column:config"`
	Details  datatypes.JSON `gorm:"column:details"`

	FailureReason string     `gorm:"column:failure_reason"`
	StartedAt     *time.Time `gorm:"column:started_at"`
	CompletedAt   *time.Time `gorm:"column:completed_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (ValidationJob) TableName() string {
	return "validation_jobs"
}

// JobReport is the polling/download view of a job. Its fields round-trip
// losslessly with the stored job.
type JobReport struct {
	JobID             string                `json:"jobId"`
	FileName          string                `json:"fileName"`
	Status            JobStatus             `json:"status"`
	TotalRows         int                   `json:"totalRows"`
	ValidatedSales    int                   `json:"validatedSales"`
	Errors            int                   `json:"errors"`
	Warnings          int                   `json:"warnings"`
	PointsDistributed float64               `json:"pointsDistributed"`
	Details           []ValidationResultRow `json:"details"`
}
