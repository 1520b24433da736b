package engine

import "github.com/atlasflow/engine/pkg/api"

// DeriveStatus folds terminal step results into the global run status.
// SUCCESS when no critical step landed failed, skipped, or blocked;
// FAILED when at least one critical step failed outright; PARTIAL
// otherwise, covering non-critical shortfalls and critical steps that
// were skipped or blocked without a critical failure
func DeriveStatus(
	results []*api.StepResult, critical func(api.StepID) bool,
) api.RunStatus {
	if critical == nil {
		critical = func(api.StepID) bool { return true }
	}

	status := api.RunSuccess
	for _, sr := range results {
		switch sr.Status {
		case api.StepFailed:
			if critical(sr.StepID) {
				return api.RunFailed
			}
			status = api.RunPartial
		case api.StepSkipped, api.StepBlocked:
			status = api.RunPartial
		}
	}
	return status
}

// Metrics tallies per-status counts and total duration across results
func Metrics(results []*api.StepResult) *api.RunMetrics {
	res := &api.RunMetrics{}
	for _, sr := range results {
		switch sr.Status {
		case api.StepSuccess:
			res.Succeeded++
		case api.StepFailed:
			res.Failed++
		case api.StepSkipped:
			res.Skipped++
		case api.StepBlocked:
			res.Blocked++
		}
		res.DurationMs += sr.Duration
	}
	return res
}
