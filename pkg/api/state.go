package api

import (
	"maps"
	"time"
)

type (
	// RunState is the event-sourced projection of one run: its planned
	// order, terminal results so far, and aggregate status
	RunState struct {
		CreatedAt    time.Time              `json:"created_at"`
		CompletedAt  time.Time              `json:"completed_at,omitempty"`
		LastUpdated  time.Time              `json:"last_updated"`
		Results      map[StepID]*StepResult `json:"results"`
		Planned      []StepID               `json:"planned"`
		ID           RunID                  `json:"id"`
		Status       RunStatus              `json:"status"`
		Metrics      *RunMetrics            `json:"metrics,omitempty"`
		TraceRef     string                 `json:"trace_ref,omitempty"`
		ConfigHash   string                 `json:"config_hash,omitempty"`
		ContractHash string                 `json:"contract_hash,omitempty"`
	}

	// RunInfo tracks registry metadata for a run
	RunInfo struct {
		StartedAt   time.Time `json:"started_at"`
		CompletedAt time.Time `json:"completed_at,omitempty"`
		RunID       RunID     `json:"run_id"`
		Status      RunStatus `json:"status"`
	}

	// RegistryState is the projection of the engine's run registry
	RegistryState struct {
		LastUpdated time.Time         `json:"last_updated"`
		Runs        map[RunID]*RunInfo `json:"runs"`
	}
)

// SetStatus returns a new RunState with the updated status
func (st *RunState) SetStatus(s RunStatus) *RunState {
	res := *st
	res.Status = s
	return &res
}

// SetResult returns a new RunState with the step result recorded
func (st *RunState) SetResult(id StepID, sr *StepResult) *RunState {
	res := *st
	res.Results = maps.Clone(st.Results)
	if res.Results == nil {
		res.Results = map[StepID]*StepResult{}
	}
	res.Results[id] = sr
	return &res
}

// SetMetrics returns a new RunState with the aggregate metrics set
func (st *RunState) SetMetrics(m *RunMetrics) *RunState {
	res := *st
	res.Metrics = m
	return &res
}

// SetCompletedAt returns a new RunState with the completion time set
func (st *RunState) SetCompletedAt(t time.Time) *RunState {
	res := *st
	res.CompletedAt = t
	return &res
}

// SetLastUpdated returns a new RunState with the last updated time set
func (st *RunState) SetLastUpdated(t time.Time) *RunState {
	res := *st
	res.LastUpdated = t
	return &res
}

// SetTraceRef returns a new RunState with the trace reference set
func (st *RunState) SetTraceRef(ref string) *RunState {
	res := *st
	res.TraceRef = ref
	return &res
}

// Result materializes the run-level result from the projection, one
// entry per planned step in execution order
func (st *RunState) Result() *RunResult {
	steps := make([]*StepResult, 0, len(st.Planned))
	for _, id := range st.Planned {
		if sr, ok := st.Results[id]; ok {
			steps = append(steps, sr)
			continue
		}
		steps = append(steps, &StepResult{
			StepID:  id,
			Status:  StepPending,
			Summary: "not yet executed",
		})
	}

	res := &RunResult{
		RunID:    st.ID,
		Status:   st.Status,
		Steps:    steps,
		TraceRef: st.TraceRef,
	}
	if st.Metrics != nil {
		res.Metrics = *st.Metrics
	}
	return res
}

// SetRun returns a new RegistryState with the run info recorded
func (st *RegistryState) SetRun(id RunID, info *RunInfo) *RegistryState {
	res := *st
	res.Runs = maps.Clone(st.Runs)
	if res.Runs == nil {
		res.Runs = map[RunID]*RunInfo{}
	}
	res.Runs[id] = info
	return &res
}

// SetLastUpdated returns a new RegistryState with last updated time set
func (st *RegistryState) SetLastUpdated(t time.Time) *RegistryState {
	res := *st
	res.LastUpdated = t
	return &res
}
