package stage

import "github.com/claritycoach/backend/internal/model/chat"

// Marker ties a SIGMA step to the literal text the coach is told to emit when it
// enters that step. The prompt is rendered from these values and the classifier
// searches for them, so the two cannot drift apart.
type Marker struct {
	Stage    chat.Stage `json:"id"`
	Icon     string     `json:"icon"`
	Letter   string     `json:"letter"`
	Name     string     `json:"name"`
	Question string     `json:"question"`
	// Probe is the leading part of Question that is matched in generated text.
	Probe string `json:"-"`
}

// Code is the letter codename without the icon, e.g. "S – Situation".
func (m Marker) Code() string {
	return m.Letter + " – " + m.Name
}

// Label is the heading the coach prints, e.g. "🔍 S – Situation".
func (m Marker) Label() string {
	return m.Icon + " " + m.Code()
}

// Phrases lists the substrings that count as evidence for the marker's stage.
func (m Marker) Phrases() []string {
	return []string{m.Code(), m.Probe}
}

// Completion contract. Callers look for these literal substrings in replies.
const (
	SnapshotHeading = "Clarity Snapshot"
	SnapshotIntro   = "Here's your Clarity Snapshot from today's session:"
	CopyOffer       = "Would you like a copy sent to your email so you can revisit it later?"
	EmailPrompt     = "If yes, just drop your best email below. I'll send your Clarity Report right over."
	SaveOffer       = "Would you like to save this Clarity Snapshot? (Premium feature)"
	SnapshotIcon    = "📸"
)

// completionProbes are the offer fragments that, together with SnapshotHeading,
// mark a finished session.
var completionProbes = []string{
	"Would you like a copy",
	"Would you like to save",
}

var sigmaMarkers = []Marker{
	{
		Stage:    chat.StageSituation,
		Icon:     "🔍",
		Letter:   "S",
		Name:     "Situation",
		Question: "What triggered you? What happened?",
		Probe:    "What triggered you",
	},
	{
		Stage:    chat.StageIdentify,
		Icon:     "🧭",
		Letter:   "I",
		Name:     "Identify",
		Question: "What belief, fear, or inner story did this activate?",
		Probe:    "What belief, fear, or inner story",
	},
	{
		Stage:    chat.StageGut,
		Icon:     "💢",
		Letter:   "G",
		Name:     "Gut Feeling",
		Question: "What is real right now in your body—not imagined or assumed?",
		Probe:    "What is real right now in your body",
	},
	{
		Stage:    chat.StageMental,
		Icon:     "🧠",
		Letter:   "M",
		Name:     "Mental Response",
		Question: "How is your mind justifying this feeling? What stories, assumptions, or judgments surface?",
		Probe:    "How is your mind justifying",
	},
	{
		Stage:    chat.StageAction,
		Icon:     "🔄",
		Letter:   "A",
		Name:     "Aligned Action",
		Question: "What small, empowered action can you choose now that is different from the reaction you had?",
		Probe:    "What small, empowered action",
	},
}

// Markers returns the five SIGMA step markers in protocol order.
func Markers() []Marker {
	return append([]Marker(nil), sigmaMarkers...)
}

// MarkerFor looks up the marker of a SIGMA step. intro and completed have none.
func MarkerFor(s chat.Stage) (Marker, bool) {
	for _, m := range sigmaMarkers {
		if m.Stage == s {
			return m, true
		}
	}
	return Marker{}, false
}
