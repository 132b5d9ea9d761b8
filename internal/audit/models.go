package audit

import "time"

// Event captures a compliance-relevant action. Events never carry raw
// identity fields, only opaque identifiers and commitment material, so the
// audit trail itself stays free of personal data.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Identity  string    `json:"identity"`
	Action    string    `json:"action"`
	Outcome   string    `json:"outcome"`
	Reason    string    `json:"reason,omitempty"`
}

const (
	ActionProofSubmitted     = "proof_submitted"
	ActionPaymentAuthorized  = "payment_authorized"
	ActionComplianceRevoked  = "compliance_revoked"
	ActionScreeningPerformed = "screening_performed"
)

const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
)
