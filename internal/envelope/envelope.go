// Package envelope defines the uniform result shape returned by every tool
// and orchestrator boundary: {success, data, error}.
package envelope

// Error codes shared across the tool layer, the chat orchestrator and the
// HTTP surface.
const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeUserNotFound         = "USER_NOT_FOUND"
	CodeConversationNotFound = "CONVERSATION_NOT_FOUND"
	CodeNotFound             = "NOT_FOUND"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeDatabase             = "DATABASE_ERROR"
	CodeUnknownTool          = "UNKNOWN_TOOL"
	CodeInternal             = "INTERNAL_ERROR"
	CodeDuplicateEmail       = "DUPLICATE_EMAIL"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
)

type ErrorInfo struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

type Result struct {
	Success bool       `json:"success"`
	Data    any        `json:"data"`
	Error   *ErrorInfo `json:"error"`
}

func OK(data any) Result {
	return Result{Success: true, Data: data}
}

func Err(code, message string, details map[string]any) Result {
	if details == nil {
		details = map[string]any{}
	}
	return Result{Error: &ErrorInfo{Code: code, Message: message, Details: details}}
}
