package linky

import (
	"errors"
	"fmt"
)

// ErrInvalidCredentials is returned when the login response doesn't set the
// session cookie, either because the credentials are wrong or because the
// portal changed its login flow.
var ErrInvalidCredentials = errors.New("could not connect, check your credentials")

// ErrPortal is wrapped by every error caused by a portal answer. Callers can
// skip a failed window on ErrPortal and keep fetching the others.
var ErrPortal = errors.New("portal error")

var (
	ErrServerError        = fmt.Errorf("%w: portal returned an error", ErrPortal)
	ErrNoData             = fmt.Errorf("%w: portal returned a nonActive answer, no data retrieved", ErrPortal)
	ErrRangeTooLarge      = fmt.Errorf("%w: number of days cannot exceed %d", ErrPortal, maxDailyRangeDays)
	ErrUnexpectedResponse = fmt.Errorf("%w: unexpected response", ErrPortal)
)

// ErrIncompleteWindow is returned for a window with only one of its bounds
// set. It is a caller mistake, not a portal answer.
var ErrIncompleteWindow = errors.New("window needs both a start and an end")
