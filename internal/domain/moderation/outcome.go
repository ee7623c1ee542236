package moderation

type OutcomeKind string

const (
	OutcomeOk        OutcomeKind = "ok"
	OutcomeRetryable OutcomeKind = "retryable"
	OutcomeFatal     OutcomeKind = "fatal"
)

// Outcome is the result of one analysis attempt. Result is set only for OutcomeOk.
type Outcome struct {
	Kind   OutcomeKind
	Result *FusedResult
	Reason string
	Err    error
}

func Ok(res *FusedResult) Outcome {
	return Outcome{Kind: OutcomeOk, Result: res}
}

func Retryable(reason string, err error) Outcome {
	return Outcome{Kind: OutcomeRetryable, Reason: reason, Err: err}
}

func Fatal(reason string, err error) Outcome {
	return Outcome{Kind: OutcomeFatal, Reason: reason, Err: err}
}

// OutcomeFromError maps transient errors to Retryable and everything else to Fatal.
func OutcomeFromError(err error) Outcome {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	if IsTransient(err) {
		return Retryable(reason, err)
	}
	return Fatal(reason, err)
}

func (o Outcome) IsOk() bool        { return o.Kind == OutcomeOk && o.Result != nil }
func (o Outcome) IsRetryable() bool { return o.Kind == OutcomeRetryable }
func (o Outcome) IsFatal() bool     { return o.Kind == OutcomeFatal }
