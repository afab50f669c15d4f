package trip

// Phase is the derived conversation state reported to the caller after every
// turn. It is computed from the requirement state and task statuses, never
// stored.
type Phase string

const (
	// PhaseGathering: required fields are still missing; the next user
	// message is expected to fill them in.
	PhaseGathering Phase = "gathering"
	// PhaseDrafting: requirements are complete and the search wave is
	// still producing the draft itinerary.
	PhaseDrafting Phase = "drafting"
	// PhaseAwaitingConfirmation: the draft is ready; the compliance wave
	// is locked until the traveller confirms.
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation"
	// PhaseEnriching: confirmed; visa, health, insurance and seat-map
	// checks are running.
	PhaseEnriching Phase = "enriching"
	// PhaseComplete: every applicable task has succeeded or exhausted its
	// retries.
	PhaseComplete Phase = "complete"
)

// Accepting reports whether the conversation still accepts requirement
// changes. Once the compliance wave has started there is no way back to
// gathering; a correction means a new session.
func (p Phase) Accepting() bool {
	return p == PhaseGathering || p == PhaseDrafting || p == PhaseAwaitingConfirmation
}
