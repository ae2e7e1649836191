package app

import "fmt"

// DomainError is the API error contract: Status becomes the HTTP status,
// Code is the stable machine-readable identifier clients switch on, and
// Details carries optional field-level context.
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

// domainError builds a *DomainError for handlers that reject a request
// before any service sentinel is involved.
func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}
