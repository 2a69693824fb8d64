package snapshot

import (
	"regexp"
	"strings"

	"github.com/claritycoach/backend/internal/analysis/stage"
)

// Snapshot is the structured form of the summary the coach emits at the end of
// a session.
type Snapshot struct {
	RealIssue   string `json:"realIssue,omitempty"`
	Situation   string `json:"situation,omitempty"`
	Belief      string `json:"belief,omitempty"`
	Feeling     string `json:"feeling,omitempty"`
	Mental      string `json:"mental,omitempty"`
	Action      string `json:"action,omitempty"`
	Mantra      string `json:"mantra,omitempty"`
	Affirmation string `json:"affirmation,omitempty"`
	Journal     string `json:"journal,omitempty"`
}

// Empty reports whether no field was extracted.
func (s Snapshot) Empty() bool {
	return s == Snapshot{}
}

// Fields lists the labelled lines the coach is asked to print, in order.
var Fields = []string{"Situation", "Belief", "Feeling", "Mental", "Action", "Mantra", "Affirmation", "Journal"}

// Sentence starters from the snapshot template.
const (
	RealIssueStarter = "The real issue is not"
	BeliefStarter    = "The belief holding me back is"
	EmotionStarter   = "The emotion driving this is"
	ActionStarter    = "My next aligned action is"
)

// labelledLine accepts the bare field name and the step names printed in the
// prompt, e.g. "Gut Feeling:" or "🔄 Aligned Action:".
var labelledLine = regexp.MustCompile(`(?i)^(?:[^\p{L}\s]+\s+)?(?:\w+\s+)?(situation|belief|feeling|mental|action|mantra|affirmation|journal)(?:\s+\w+)?\s*:\s*(.+)$`)

// Parse extracts a Snapshot from a reply. The section between the snapshot
// heading and the first follow-up offer is inspected; ok is false when the
// heading is missing or nothing could be extracted.
func Parse(reply string) (Snapshot, bool) {
	section, found := extractSection(reply)
	if !found {
		return Snapshot{}, false
	}

	var snap Snapshot
	for _, raw := range strings.Split(section, "\n") {
		line := cleanLine(raw)
		if line == "" {
			continue
		}

		if m := labelledLine.FindStringSubmatch(line); m != nil {
			assign(&snap, strings.ToLower(m[1]), cleanValue(m[2]))
			continue
		}

		switch {
		case strings.HasPrefix(line, RealIssueStarter):
			setIfEmpty(&snap.RealIssue, cleanValue(line))
		case strings.HasPrefix(line, BeliefStarter):
			setIfEmpty(&snap.Belief, cleanValue(strings.TrimPrefix(line, BeliefStarter)))
		case strings.HasPrefix(line, EmotionStarter):
			setIfEmpty(&snap.Feeling, cleanValue(strings.TrimPrefix(line, EmotionStarter)))
		case strings.HasPrefix(line, ActionStarter):
			setIfEmpty(&snap.Action, cleanValue(strings.TrimPrefix(line, ActionStarter)))
		}
	}

	if snap.Empty() {
		return Snapshot{}, false
	}
	return snap, true
}

func extractSection(reply string) (string, bool) {
	start := strings.Index(reply, stage.SnapshotHeading)
	if start < 0 {
		return "", false
	}
	section := reply[start+len(stage.SnapshotHeading):]
	if end := strings.Index(section, "Would you like"); end >= 0 {
		section = section[:end]
	}
	return section, true
}

func assign(snap *Snapshot, label, value string) {
	switch label {
	case "situation":
		snap.Situation = value
	case "belief":
		snap.Belief = value
	case "feeling":
		snap.Feeling = value
	case "mental":
		snap.Mental = value
	case "action":
		snap.Action = value
	case "mantra":
		snap.Mantra = value
	case "affirmation":
		snap.Affirmation = value
	case "journal":
		snap.Journal = value
	}
}

func setIfEmpty(dst *string, value string) {
	if *dst == "" {
		*dst = value
	}
}

// cleanLine strips list bullets and markdown emphasis.
func cleanLine(raw string) string {
	line := strings.TrimSpace(raw)
	line = strings.TrimLeft(line, "-*•>#0123456789. ")
	line = strings.ReplaceAll(line, "**", "")
	line = strings.ReplaceAll(line, "__", "")
	return strings.TrimSpace(line)
}

func cleanValue(raw string) string {
	value := strings.TrimSpace(raw)
	value = strings.Trim(value, `"“”*_ `)
	return strings.TrimSpace(value)
}
