package pipeline

// Stage is a step of one generate request.
type Stage int

const (
	StageIdle Stage = iota
	StageFetching
	StageExtracting
	StageMatching
	StageComposing
	StageDone
	StageError
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageFetching:
		return "fetching"
	case StageExtracting:
		return "extracting"
	case StageMatching:
		return "matching"
	case StageComposing:
		return "composing"
	case StageDone:
		return "done"
	case StageError:
		return "error"
	default:
		return "unknown"
	}
}

// Label is the human-readable progress text for s.
func (s Stage) Label() string {
	switch s {
	case StageFetching:
		return "Scraping job page"
	case StageExtracting:
		return "Extracting job details"
	case StageMatching:
		return "Matching portfolio links"
	case StageComposing:
		return "Writing cold email"
	case StageDone:
		return "Done"
	case StageError:
		return "Failed"
	default:
		return ""
	}
}

// Terminal reports whether no further stage follows s.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageError
}
