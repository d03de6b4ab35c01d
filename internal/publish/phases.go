package publish

// Phase names, in canonical execution order. PROCESS_IMAGES through
// INSERT_FAQ_SCHEMA are skipped when their inputs are empty or the active
// provider lacks the capability; SAFETY_GATE is skipped for draft intents.
const (
	PhaseInitialize      = "INITIALIZE"
	PhaseLogin           = "LOGIN"
	PhaseFillContent     = "FILL_CONTENT"
	PhaseSaveDraft       = "SAVE_DRAFT"
	PhaseProcessImages   = "PROCESS_IMAGES"
	PhaseSetSEO          = "SET_SEO"
	PhaseSetTaxonomy     = "SET_TAXONOMY"
	PhaseInsertRelated   = "INSERT_RELATED"
	PhaseInsertFAQSchema = "INSERT_FAQ_SCHEMA"
	PhaseSafetyGate      = "SAFETY_GATE"
	PhaseTerminal        = "TERMINAL"
	PhaseCaptureURL      = "CAPTURE_URL"

	// PhaseClose is teardown: always attempted, audited, and never part of
	// the run's pass/fail decision.
	PhaseClose = "CLOSE"
)

// PhaseOrder is the canonical sequence without the teardown phase.
var PhaseOrder = []string{
	PhaseInitialize,
	PhaseLogin,
	PhaseFillContent,
	PhaseSaveDraft,
	PhaseProcessImages,
	PhaseSetSEO,
	PhaseSetTaxonomy,
	PhaseInsertRelated,
	PhaseInsertFAQSchema,
	PhaseSafetyGate,
	PhaseTerminal,
	PhaseCaptureURL,
}
