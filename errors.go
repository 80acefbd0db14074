package authopener

import (
	"errors"
	"strconv"
)

// LocalFileMessage is recorded when a local file URL is refused.
const LocalFileMessage = "Local file URL not accepted"

var (
	// ErrChallengeSent means a 401 challenge was written to the client and the exchange is complete.
	ErrChallengeSent = errors.New("authorization challenge sent")
	// ErrSchemeRejected is returned for challenges of URLs other than http and https.
	ErrSchemeRejected = errors.New("challenge scheme is not supported")
	// ErrNotModified means upstream responded with 304 and it was written to the client.
	ErrNotModified = errors.New("not modified")
	// ErrLocalFileRejected is returned for file URLs and URLs without scheme.
	ErrLocalFileRejected = errors.New("local file URL not accepted")
	// ErrUnknownScheme is returned for URLs the opener cannot fetch.
	ErrUnknownScheme = errors.New("unknown url scheme")
)

// HTTPError is returned when upstream responded with an error status.
type HTTPError struct {
	Code    int
	Message string
}

// Error returns "code message".
func (e *HTTPError) Error() string {
	return strconv.Itoa(e.Code) + " " + e.Message
}
