package badgedomain

import "errors"

var (
	// ErrAccessDenied is returned when the chosen data channel rejects the
	// caller and no permitted fallback exists.
	ErrAccessDenied = errors.New("access denied")
	// ErrChannelUnavailable is returned when no data channel could serve the call.
	ErrChannelUnavailable = errors.New("data channel unavailable")
	// ErrDataUnavailable is returned when activity history could not be read.
	ErrDataUnavailable = errors.New("activity data unavailable")
	// ErrNotConfigured is returned when the store lacks the badge tables or functions.
	ErrNotConfigured = errors.New("badge system not configured")
	// ErrDuplicateIgnored marks an insert that lost to an existing award.
	ErrDuplicateIgnored = errors.New("duplicate award ignored")
	// ErrMemberNotFound is returned when the member does not exist in the team.
	ErrMemberNotFound = errors.New("member not found")
	// ErrInvalidQuery is returned for malformed listing requests.
	ErrInvalidQuery = errors.New("invalid query")
)

// ErrorKind classifies errors for callers that map them to responses.
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindNotConfigured      ErrorKind = "not_configured"
	KindAccessDenied       ErrorKind = "access_denied"
	KindChannelUnavailable ErrorKind = "channel_unavailable"
	KindDataUnavailable    ErrorKind = "data_unavailable"
	KindDuplicateIgnored   ErrorKind = "duplicate_ignored"
	KindMemberNotFound     ErrorKind = "member_not_found"
	KindInvalidQuery       ErrorKind = "invalid_query"
	KindInternal           ErrorKind = "internal"
)

// KindOf returns the most specific kind found in err's chain.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotConfigured):
		return KindNotConfigured
	case errors.Is(err, ErrMemberNotFound):
		return KindMemberNotFound
	case errors.Is(err, ErrInvalidQuery):
		return KindInvalidQuery
	case errors.Is(err, ErrAccessDenied):
		return KindAccessDenied
	case errors.Is(err, ErrChannelUnavailable):
		return KindChannelUnavailable
	case errors.Is(err, ErrDataUnavailable):
		return KindDataUnavailable
	case errors.Is(err, ErrDuplicateIgnored):
		return KindDuplicateIgnored
	default:
		return KindInternal
	}
}
