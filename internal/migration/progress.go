package migration

// Phase of a migration run.
type Phase int

const (
	PhaseCheck Phase = iota
	PhaseInsert
	PhaseSkip
	PhaseFinalize
)

func (p Phase) String() string {
	switch p {
	case PhaseCheck:
		return "check"
	case PhaseInsert:
		return "insert"
	case PhaseSkip:
		return "skip"
	case PhaseFinalize:
		return "finalize"
	default:
		return ""
	}
}

// ProgressUpdate reports one step of a run.
type ProgressUpdate struct {
	Phase      Phase
	Step       int // 1-based within Total
	Total      int
	PlaylistID string // local id
	Message    string
	Err        error
}

// sendProgress never blocks the run on a slow or absent reader.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
