package types

// Event types sent over the streaming search socket.
const (
	EventResults = "results"
	EventPage    = "page"
	EventDone    = "done"
	EventError   = "error"
)

type StreamEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type PageEvent struct {
	Index int           `json:"index"`
	Page  *EnrichedPage `json:"page"`
}

type StreamError struct {
	Error  string       `json:"error"`
	Status SearchStatus `json:"status,omitempty"`
}
