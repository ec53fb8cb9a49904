package http

type ErrorResponse struct {
	Message string `json:"message"`
}

// lnurlErrorResponse is the LNURL error shape, always sent with status 200.
type lnurlErrorResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type triggerResponse struct {
	Payload string `json:"payload"`
}
