package ratelimit

import "github.com/ralphcore/ralph/internal/ghclient"

// Plan is an alias for ghclient's rate-limit plan, re-exported so callers
// that otherwise only depend on internal/ratelimit don't need a second
// import just to name the type.
type Plan = ghclient.RateLimitPlan

// DerivePlan classifies err into a rate-limit plan. See
// ghclient.DeriveRateLimitPlan for the derivation order (headers, then
// embedded timestamp, else a short fixed delay).
func DerivePlan(err error) Plan {
	return ghclient.DeriveRateLimitPlan(err)
}
