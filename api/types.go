package api

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateNodeRequest registers a ledger node. ID is optional and generated
// when empty.
type CreateNodeRequest struct {
	ID        string `json:"id,omitempty"`
	Ledger    string `json:"ledger"`
	Owner     string `json:"owner,omitempty"`
	Consensus string `json:"consensus"`
	Storage   string `json:"storage,omitempty"`
}
