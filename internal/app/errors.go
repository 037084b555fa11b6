package app

import "fmt"

// DomainError is a failure the HTTP layer can serialize directly:
// Status becomes the response code and Code/Message/Details fill the
// error envelope. Correction workflow failures stay sentinel errors in
// the correction package; DomainError covers cases only this layer can
// classify, like auth flows, unconfigured subsystems and terminal
// correction states.
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
