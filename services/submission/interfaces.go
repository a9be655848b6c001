package submission

import (
	"context"

	"gorm.io/gorm"
)

// KitInfo is the slice of kit state the submission workflow needs. The kit
// service owns the full record.
type KitInfo struct {
	KitID      string
	CampaignID string
	SellerID   string
	Completed  bool
}

// KitResolver looks up the kit a submission is filed against.
type KitResolver interface {
	ResolveKit(ctx context.Context, kitID string) (*KitInfo, error)
}

// CompletionRechecker re-evaluates kit completion after a submission is
// validated. It must run inside the caller's transaction so the kit flip
// commits or rolls back together with the submission.
type CompletionRechecker interface {
	RecheckCompletion(ctx context.Context, tx *gorm.DB, kitID string) (bool, error)
}
