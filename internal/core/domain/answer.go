package domain

type VerdictOutcome string

const (
	VerdictClean        VerdictOutcome = "clean"
	VerdictHallucinated VerdictOutcome = "hallucinated"
	// VerdictUnavailable is the fail-open outcome: the detector could not
	// produce a usable verdict and the answer is accepted as-is.
	VerdictUnavailable VerdictOutcome = "unavailable"
)

const ReasonVerificationUnavailable = "verification unavailable"

type Verdict struct {
	Outcome      VerdictOutcome `json:"outcome"`
	Hallucinated bool           `json:"hallucinated"`
	Reason       string         `json:"reason,omitempty"`
}

type HealResult struct {
	FinalAnswer string
	Healed      bool
	Reason      string
	Outcome     VerdictOutcome
}

// AnswerRecord is the response of a single question. HealReason is null
// unless the answer was healed.
type AnswerRecord struct {
	Question    string            `json:"question"`
	RawAnswer   string            `json:"raw_answer"`
	FinalAnswer string            `json:"final_answer"`
	Healed      bool              `json:"healed"`
	HealReason  *string           `json:"heal_reason"`
	Retrieved   []RetrievalResult `json:"retrieved"`
	Detection   VerdictOutcome    `json:"-"`
}
