package dto

// TurnRequest is the body of the send-* endpoints. Data holds free-form
// steering lines for this turn only.
type TurnRequest struct {
	// No binding tag: content is checked after thread ownership so a 401 wins over a 400.
	Content string   `json:"content"`
	Data    []string `json:"data,omitempty"`
}

type ErrorResponse struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}
