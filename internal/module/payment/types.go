package payment

// CompletionEvent carries the provider-reported facts of a completed charge.
// Deliveries are at-least-once; duplicates for the same payment are expected.
type CompletionEvent struct {
	// UserID is the paying principal embedded in the event; it must match the
	// stored record.
	UserID int64
	// Provider is the payment channel tag carried by the event.
	Provider string
	// StarsAmount is the charged amount in provider units; it must match the
	// invoiced stars amount on the record.
	StarsAmount int64
}

// Outcome classifies a completion attempt.
type Outcome string

const (
	// OutcomeCompleted means this caller won the transition and the credit was
	// attempted.
	OutcomeCompleted Outcome = "completed"
	// OutcomeAlreadyCompleted is success-shaped with zero side effects: the
	// record had already flipped, so nothing is credited again.
	OutcomeAlreadyCompleted Outcome = "already_completed"
	// OutcomeRejected means a validation gate failed; no transition, no credit.
	OutcomeRejected Outcome = "rejected"
)

// RejectReason names the gate a rejected completion failed.
type RejectReason string

const (
	ReasonNotFound         RejectReason = "not_found"
	ReasonProviderMismatch RejectReason = "provider_mismatch"
	ReasonUserMismatch     RejectReason = "user_mismatch"
	ReasonAmountMismatch   RejectReason = "amount_mismatch"
)

// CompletionResult is the observable result of a completion attempt.
type CompletionResult struct {
	Outcome Outcome
	Reason  RejectReason
	// Payment is the record as read during processing; nil when not found.
	Payment *Payment
	// Credited reports whether the credit was applied by this call.
	Credited bool
}

// Ok reports whether the provider should see this attempt as a success, which
// includes the already-completed duplicate case.
func (r *CompletionResult) Ok() bool {
	return r.Outcome == OutcomeCompleted || r.Outcome == OutcomeAlreadyCompleted
}
