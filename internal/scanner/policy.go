package scanner

import "github.com/nao1215/hathi/internal/model"

// Action is what a session does after observing an outcome.
type Action int

const (
	// ActionContinue keeps waiting for the rest of the batch.
	ActionContinue Action = iota

	// ActionNextUsername cancels the batch and moves to the next username.
	ActionNextUsername

	// ActionStopSession cancels the batch and ends the session.
	ActionStopSession
)

// String returns the name of the action.
func (a Action) String() string {
	switch a {
	case ActionContinue:
		return "continue"
	case ActionNextUsername:
		return "next_username"
	case ActionStopSession:
		return "stop_session"
	default:
		return "unknown"
	}
}

// Policy maps an outcome to the session action. multiple only changes how
// Success is handled.
func Policy(outcome model.Outcome, multiple bool) Action {
	switch outcome {
	case model.OutcomeSuccess:
		if multiple {
			return ActionNextUsername
		}
		return ActionStopSession
	case model.OutcomeBadPassword:
		return ActionContinue
	case model.OutcomeBadUsername:
		return ActionNextUsername
	default:
		// Timeout, Error and anything unrecognized.
		return ActionStopSession
	}
}
