package api

// Result is the envelope returned by every mutating endpoint. Business-rule
// failures come back as Success=false with a human-readable message; only
// infrastructure failures turn into HTTP 5xx.
type Result struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(message string, data interface{}) Result {
	return Result{Success: true, Message: message, Data: data}
}

func Fail(message string) Result {
	return Result{Success: false, Message: message}
}

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}
