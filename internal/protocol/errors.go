package protocol

import "fmt"

// Domain error codes the service reports in-band as {code, message}.
const (
	// Dig found nothing at the requested depth (also plain not-found).
	CodeNotFound = 404
	// The license id is unknown or expired.
	CodeInvalidLicense = 403
	// Too many active licenses for the account.
	CodeLicenseCap = 409
	// Terminal codes once a cell's useful depth is spent.
	CodeDepthSpent = 608
	CodeRunOver    = 1000
)

// ServerError is a domain rejection carried inside a response body. It is
// the non-success branch of every client call: roles switch on Code, the
// resilient layer never retries it.
type ServerError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}

// Transient reports whether an HTTP status should be recovered by the
// retry loop rather than surfaced as a domain rejection.
func Transient(status int) bool {
	switch status {
	case 500, 502, 504:
		return true
	}
	return status > 500 && status < 600
}
