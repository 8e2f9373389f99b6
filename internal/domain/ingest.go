package domain

import "github.com/google/uuid"

// Outcome is the result of pushing one raw record through the pipeline.
// Exactly one of Trip or Reason is meaningful: Accepted records carry the
// persisted trip, rejected ones carry the reason code and message.
type Outcome struct {
	Index    int        `json:"index"`
	Accepted bool       `json:"accepted"`
	Trip     *Trip      `json:"trip,omitempty"`
	Reason   ReasonCode `json:"reason,omitempty"`
	Message  string     `json:"message,omitempty"`
}

// BatchResult groups the per-record outcomes of one batch. A batch never fails
// as a whole because of a bad record; the caller decides what to do with the
// rejected ones.
type BatchResult struct {
	BatchID  uuid.UUID `json:"batch_id"`
	Accepted int       `json:"accepted"`
	Rejected int       `json:"rejected"`
	Outcomes []Outcome `json:"outcomes"`
}
