package types

// Domain tags the kind of payload a session was derived from. It is mixed
// into the session key so an audio file and a textually identical transcript
// never collide.
type Domain string

const (
	DomainAudio Domain = "audio"
	DomainText  Domain = "text"
)

// Segment status constants
const (
	SegmentOK       = "ok"
	SegmentFallback = "fallback"
	SegmentError    = "error"
)

// Window is one time slice of the source audio. Windows may overlap.
type Window struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// SegmentResult is the transcription of one window, tagged with its index so
// order can be restored regardless of completion order.
type SegmentResult struct {
	Index  int    `json:"index"`
	Text   string `json:"text"`
	Status string `json:"status"`
}

// Transcript is the sole durable text output of stage one.
type Transcript struct {
	Text   string `json:"text"`
	SHA256 string `json:"sha256"`
	Length int    `json:"length"`
}

// ResearchMeta carries session context through the research stage.
type ResearchMeta struct {
	SessionID string `json:"session_id"`
	Hash      string `json:"hash"`
	Date      string `json:"date"`
	Prenom    string `json:"prenom"`
	Register  string `json:"register"`
}

// LensReading is one entry of the critical sheet: what a named analytical
// lens picked up in the transcript. Reading may be empty.
type LensReading struct {
	Lens    string `json:"lens"`
	Reading string `json:"reading"`
}

// Chapter labels a time band of the session with a short summary.
type Chapter struct {
	Label   string  `json:"label"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Summary string  `json:"summary"`
}

// ResearchPayload is the structured extraction produced by the research
// stage. Every field is always populated, possibly with its empty value.
type ResearchPayload struct {
	Meta              ResearchMeta  `json:"meta"`
	EvidenceSheet     string        `json:"evidence_sheet"`
	CriticalSheet     []LensReading `json:"critical_sheet"`
	LensesUsed        []string      `json:"lenses_used"`
	ReperesCandidates []string      `json:"reperes_candidates"`
	PointsMail        []string      `json:"points_mail"`
	Chapters          []Chapter     `json:"chapters"`
}

// Analysis is the structured half of the final stage output.
type Analysis struct {
	Lenses          []string `json:"lenses"`
	ReperesSelected []string `json:"reperes_selected"`
	Contradictions  []string `json:"contradictions"`
	Objectives      []string `json:"objectives"`
}

// FinalPayload is the terminal output: plan, analysis and the mail text that
// passed the style contract.
type FinalPayload struct {
	PlanMarkdown string   `json:"plan_markdown"`
	Analysis     Analysis `json:"analysis"`
	MailMarkdown string   `json:"mail_markdown"`
}

// Bundle is the unit of persistence: one committed session directory and the
// relative paths of its fixed set of files.
type Bundle struct {
	SessionID string            `json:"session_id"`
	Patient   string            `json:"patient,omitempty"`
	Date      string            `json:"date"`
	Paths     map[string]string `json:"paths"`
}
