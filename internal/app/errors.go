package app

import "fmt"

// DomainError is the error contract of the portal API. Status is the HTTP
// status the handler layer writes, Code the stable machine-readable code
// clients branch on.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// noOp reports a request that was already satisfied, e.g. joining a group
// twice. It travels as an error but maps to a 200 response.
func noOp(message string, details any) *DomainError {
	return domainError(200, "NO_OP", message, details)
}
