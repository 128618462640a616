package domain

// RunState is a step of a comparison or baseline-creation run.
type RunState string

const (
	StateInit              RunState = "INIT"
	StateAcquireCurrent    RunState = "ACQUIRE_CURRENT"
	StateLoadBaseline      RunState = "LOAD_BASELINE"
	StateReconcile         RunState = "RECONCILE"
	StateStructuredCompare RunState = "STRUCTURED_COMPARE"
	StateReport            RunState = "REPORT"
	StateSave              RunState = "SAVE"
	StateDone              RunState = "DONE"
	StateFailed            RunState = "FAILED"
)

func (s RunState) String() string {
	return string(s)
}
