package models

// SourceLayer records which resolution layer produced a result.
type SourceLayer string

const (
	SourceEmbedding SourceLayer = "embedding"
	SourcePattern   SourceLayer = "pattern"
	SourceFollowUp  SourceLayer = "follow_up"
	SourceExternal  SourceLayer = "external_fallback"
	SourceNone      SourceLayer = "none"
)

// UtteranceContext is everything the pipeline knows about one incoming
// message. Identity arrives pre-verified from the session layer.
type UtteranceContext struct {
	RequestID string   `json:"request_id"`
	SessionID string   `json:"session_id"`
	Text      string   `json:"text"`
	Identity  Identity `json:"identity"`

	// PreviousIntent is the last intent resolved in this session, if any.
	// Used to interpret terse follow-ups such as a bare date range.
	PreviousIntent string `json:"previous_intent,omitempty"`
}

// ResolutionResult is the outcome of the layered intent resolution. An empty
// IntentID means no layer was confident and the utterance is deferred.
type ResolutionResult struct {
	IntentID     string               `json:"intent_id,omitempty"`
	Confidence   float64              `json:"confidence"`
	Source       SourceLayer          `json:"source"`
	Slots        map[string]SlotValue `json:"slots,omitempty"`
	MissingSlots []string             `json:"missing_slots,omitempty"`
}

// Resolved reports whether a concrete intent was identified.
func (r ResolutionResult) Resolved() bool {
	return r.IntentID != ""
}

// FetchedData carries whatever account data the resolved intent needed. Only
// the fields relevant to the intent are populated.
type FetchedData struct {
	Accounts     []Account          `json:"accounts,omitempty"`
	Transactions []Transaction      `json:"transactions,omitempty"`
	Payments     []ScheduledPayment `json:"payments,omitempty"`
	Mortgage     *Mortgage          `json:"mortgage,omitempty"`
	Spending     []CategorySpend    `json:"spending,omitempty"`

	// ExternalAnswer holds text sourced from the external knowledge service
	// for advisory intents and deferred utterances.
	ExternalAnswer string `json:"external_answer,omitempty"`
}

// Reply is the final formatted response handed back to the conversation
// channel.
type Reply struct {
	RequestID string      `json:"request_id"`
	SessionID string      `json:"session_id"`
	IntentID  string      `json:"intent_id,omitempty"`
	Source    SourceLayer `json:"source"`
	Text      string      `json:"text"`
	Denied    bool        `json:"denied,omitempty"`
}
