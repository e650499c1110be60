package auth

// Outcome labels a Result for logs and metrics
type Outcome string

const (
	OutcomeVerified  Outcome = "verified"
	OutcomeTrusted   Outcome = "trusted"
	OutcomeAnonymous Outcome = "anonymous"
	OutcomeRejected  Outcome = "rejected"
)

// Result is the outcome of one extraction. Claims is never nil: it holds the
// full decoded payload on success and is empty otherwise.
type Result struct {
	Claims   Claims
	Verified bool
	KeyID    string
	Reason   FailureReason
}

// anonymousResult is the empty-claims result carrying why
func anonymousResult(reason FailureReason, kid string) Result {
	return Result{
		Claims: Claims{},
		KeyID:  kid,
		Reason: reason,
	}
}

// Anonymous reports whether the request carries no usable identity
func (r Result) Anonymous() bool {
	return len(r.Claims) == 0
}

// Subject returns the "sub" claim, or ""
func (r Result) Subject() string {
	return r.Claims.String("sub")
}

// Outcome classifies the result
func (r Result) Outcome() Outcome {
	switch {
	case r.Reason == ReasonMissingHeader:
		return OutcomeAnonymous
	case r.Reason != "":
		return OutcomeRejected
	case r.Verified:
		return OutcomeVerified
	default:
		return OutcomeTrusted
	}
}
