package chat

// Stage is a position in the SIGMA coaching protocol.
type Stage string

const (
	StageIntro     Stage = "intro"
	StageSituation Stage = "situation"
	StageIdentify  Stage = "identify"
	StageGut       Stage = "gut"
	StageMental    Stage = "mental"
	StageAction    Stage = "action"
	StageCompleted Stage = "completed"
)

var orderedStages = []Stage{
	StageIntro,
	StageSituation,
	StageIdentify,
	StageGut,
	StageMental,
	StageAction,
	StageCompleted,
}

// Stages returns every stage in protocol order.
func Stages() []Stage {
	return append([]Stage(nil), orderedStages...)
}

// Index returns the position of s in protocol order, or -1 for unknown values.
func (s Stage) Index() int {
	for i, candidate := range orderedStages {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the seven protocol stages.
func (s Stage) Valid() bool {
	return s.Index() >= 0
}

// ParseStage converts a caller supplied label into a Stage.
func ParseStage(raw string) (Stage, bool) {
	s := Stage(raw)
	if !s.Valid() {
		return "", false
	}
	return s, true
}
