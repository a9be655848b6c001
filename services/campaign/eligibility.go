package campaign

import (
	"incentivehub/pkg/celengine"
	"incentivehub/pkg/errutil"
)

// Eligible reports whether a participant, described by its attribute map,
// qualifies for the campaign. A campaign without an eligibility
// expression is open to everyone.
func Eligible(c *Campaign, attrs map[string]any) (bool, error) {
	if c.EligibilityExpression == "" {
		return true, nil
	}
	env, err := celengine.BuildEnvFromAttributes(attrs)
	if err != nil {
		return false, errutil.Internal("failed to build eligibility environment", err)
	}
	ok, err := celengine.Evaluate(env, c.EligibilityExpression, attrs)
	if err != nil {
		return false, errutil.UnprocessableEntity("failed to evaluate eligibility expression", err)
	}
	return ok, nil
}
