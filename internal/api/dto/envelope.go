package dto

// Response is the success envelope every handler returns.
type Response[T any] struct {
	StatusCode int    `json:"statusCode"`
	Data       T      `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// NewResponse builds the envelope; success follows the status code.
func NewResponse[T any](status int, data T, message string) Response[T] {
	return Response[T]{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < 400,
	}
}

// ErrorResponse is the failure envelope produced by the error middleware.
type ErrorResponse struct {
	StatusCode int            `json:"statusCode"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Errors     []string       `json:"errors"`
	Details    map[string]any `json:"details,omitempty"`
	Success    bool           `json:"success"`
}

// NewErrorResponse builds the failure envelope. errors is never null.
func NewErrorResponse(status int, code, message string, errs []string, details map[string]any) ErrorResponse {
	if errs == nil {
		errs = []string{}
	}
	return ErrorResponse{
		StatusCode: status,
		Code:       code,
		Message:    message,
		Errors:     errs,
		Details:    details,
		Success:    false,
	}
}
