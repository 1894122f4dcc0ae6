package api

// MessageRequest is the body of POST /api/messages.
type MessageRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// MessageResponse acknowledges a relayed message.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ValidationErrorResponse names the first field the visitor has to fix.
type ValidationErrorResponse struct {
	Message string `json:"message"`
	Field   string `json:"field"`
}

// ErrorResponse carries a generic failure, never internal detail.
type ErrorResponse struct {
	Error string `json:"error"`
}

const (
	MsgSent           = "Message sent successfully"
	MsgSendFailed     = "Failed to send message"
	MsgInvalidBody    = "Invalid request body"
	MsgBodyTooLarge   = "Request body too large"
	FieldBody         = "body"
	healthStatusReady = "ok"
)
