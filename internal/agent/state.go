package agent

// State is a pipeline stage. Runs move through them strictly in order;
// StateErrored is reachable from any of them.
type State int

const (
	StateInit State = iota
	StateRefinerReady
	StateCapabilitiesGathered
	StatePlanAcquired
	StateExecuting
	StateStepsDone
	StateSummarized
	StatePersisted
	StateDone
	StateErrored
)

var stateNames = [...]string{
	StateInit:                 "INIT",
	StateRefinerReady:         "REFINER_READY",
	StateCapabilitiesGathered: "CAPABILITIES_GATHERED",
	StatePlanAcquired:         "PLAN_ACQUIRED",
	StateExecuting:            "EXECUTING",
	StateStepsDone:            "STEPS_DONE",
	StateSummarized:           "SUMMARIZED",
	StatePersisted:            "PERSISTED",
	StateDone:                 "DONE",
	StateErrored:              "ERRORED",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}
