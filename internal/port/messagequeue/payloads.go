package messagequeue

// TurnCompletedPayload is the schema for sessions.turn.completed messages.
type TurnCompletedPayload struct {
	SessionID   string   `json:"session_id"`
	TurnID      string   `json:"turn_id"`
	Phase       string   `json:"phase"`
	Missing     []string `json:"missing"`
	FailedTasks []string `json:"failed_tasks"`
}

// SessionConfirmedPayload is the schema for sessions.confirmed messages.
type SessionConfirmedPayload struct {
	SessionID string `json:"session_id"`
	Phase     string `json:"phase"`
}

// SessionCompletePayload is the schema for sessions.complete messages.
type SessionCompletePayload struct {
	SessionID string `json:"session_id"`
}

// TaskResultPayload is the schema for tasks.result messages.
type TaskResultPayload struct {
	SessionID string `json:"session_id"`
	Task      string `json:"task"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
}
