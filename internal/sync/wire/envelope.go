package wire

// Server status strings carried in response envelopes. The literals are
// part of the protocol.
const (
	ServerStatusOK         = "ok"
	ServerStatusBadAuth    = "invalidUserPass"
	ServerStatusOldVersion = "oldVersion"
	ServerStatusBusy       = "server busy"
	ServerStatusError      = "error"
)

// LoginResponse is the envelope returned by the login operation.
// Timestamp is the server clock in epoch seconds, used by the client to
// estimate skew; Token authenticates subsequent calls as the k form
// field.
type LoginResponse struct {
	Status    string  `json:"status"`
	Timestamp float64 `json:"timestamp"`
	Token     string  `json:"token,omitempty"`
}

// DecksResponse is the envelope returned by the getDecks operation.
type DecksResponse struct {
	Status string                `json:"status"`
	Decks  map[string]DeckStatus `json:"decks"`
}

// StatusResponse is the envelope for operations with no other result.
type StatusResponse struct {
	Status string `json:"status"`
}
