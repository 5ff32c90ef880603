package model

// Outcome is the classified result of a single login attempt.
// The set is closed: adapters must map every native failure onto one of
// these kinds and must not invent new ones.
//
// The kinds are ordered by decreasing specificity.
type Outcome int

const (
	// OutcomeSuccess means the server accepted the credentials.
	OutcomeSuccess Outcome = iota + 1

	// OutcomeBadPassword means the credentials were rejected because the
	// password did not match a username that exists (or is assumed to).
	OutcomeBadPassword

	// OutcomeBadUsername means the username itself was rejected,
	// independent of the password.
	OutcomeBadUsername

	// OutcomeTimeout means the attempt did not complete before its deadline.
	OutcomeTimeout

	// OutcomeError covers every other failure: resets, protocol errors,
	// unrecognized server errors and recovered panics.
	OutcomeError
)

// String returns a human-readable representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeBadPassword:
		return "bad_password"
	case OutcomeBadUsername:
		return "bad_username"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// AllOutcomes returns every outcome kind in order of decreasing specificity.
func AllOutcomes() []Outcome {
	return []Outcome{
		OutcomeSuccess,
		OutcomeBadPassword,
		OutcomeBadUsername,
		OutcomeTimeout,
		OutcomeError,
	}
}

// Attempt is what an adapter reports for one login attempt.
// Host, Username and Password are echoed back so that a result arriving out
// of order can be traced to the credential that produced it.
type Attempt struct {
	// Outcome is the classification assigned by the adapter.
	// Upstream code never reinterprets it.
	Outcome Outcome

	// Host is the address the attempt was made against.
	Host string

	// Username is the (possibly suffixed) username that was tried.
	Username string

	// Password is the password that was tried.
	Password string

	// Err is the native error, kept for diagnostics only.
	// It is nil for OutcomeSuccess.
	Err error
}
