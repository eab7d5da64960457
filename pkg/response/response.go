package response

// Response is the JSON envelope returned by every endpoint
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorData  `json:"error,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

// ErrorData describes a failed request
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func Success(data interface{}) Response {
	return Response{Success: true, Data: data}
}

func Error(code, message string) Response {
	return Response{
		Success: false,
		Error:   &ErrorData{Code: code, Message: message},
	}
}

// ErrorWithDetails is Error with an extra human-readable detail string
func ErrorWithDetails(code, message, details string) Response {
	resp := Error(code, message)
	resp.Error.Details = details
	return resp
}

func BadRequest(message string) Response {
	return Error("BAD_REQUEST", message)
}

func ValidationError(details string) Response {
	return ErrorWithDetails("VALIDATION_ERROR", "Request validation failed", details)
}

func Unauthorized(message string) Response {
	return Error("UNAUTHORIZED", message)
}

func Forbidden(message string) Response {
	return Error("FORBIDDEN", message)
}

func NotFound(message string) Response {
	return Error("NOT_FOUND", message)
}

func Conflict(message string) Response {
	return Error("CONFLICT", message)
}

func InternalError(message string) Response {
	return Error("INTERNAL_ERROR", message)
}
