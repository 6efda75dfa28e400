// Package scheduler claims queued tasks per spec §4.D, drives each through
// a stage pipeline by invoking an external agent, and enforces guardrails,
// pause/drain, and error-classification transitions per spec §4.G.
package scheduler

// Stage is one step of the agent pipeline. Stages are data, not code, so
// the pipeline can be reconfigured without a rebuild.
type Stage struct {
	Name    string
	Message string
}

// DefaultStages is the stock pipeline: plan, build, verify, gate, pr.
func DefaultStages() []Stage {
	return []Stage{
		{Name: "plan", Message: "Produce an implementation plan for this issue."},
		{Name: "build", Message: "Implement the plan."},
		{Name: "verify", Message: "Run the project's checks and fix any failures."},
		{Name: "gate", Message: "Confirm the change is ready for review."},
		{Name: "pr", Message: "Open a pull request for this change."},
	}
}

// StepKey is a cache-bust key identifying one (task, stage) invocation,
// guaranteeing the agent doesn't silently reuse a stale cached response
// across stages.
func StepKey(taskPath, stage string, checkpointSeq int) string {
	return taskPath + ":" + stage + ":" + itoa(checkpointSeq)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
