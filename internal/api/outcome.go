package api

import "github.com/lockerroom/lockerroom/internal/domain/user"

// FetchKind classifies what GET /api/users/me told us. The caller's reaction
// differs sharply between kinds: unauthorized/deactivated force a session
// teardown, transient falls back to the cached identity.
type FetchKind int

const (
	FetchOK FetchKind = iota
	FetchUnauthorized
	FetchForbiddenDeactivated
	FetchForbidden
	FetchTransient
)

func (k FetchKind) String() string {
	switch k {
	case FetchOK:
		return "ok"
	case FetchUnauthorized:
		return "unauthorized"
	case FetchForbiddenDeactivated:
		return "deactivated"
	case FetchForbidden:
		return "forbidden"
	case FetchTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// FetchResult is the tagged outcome of an identity fetch. User is set only
// for FetchOK; Message carries the server's human-readable reason for
// FetchForbiddenDeactivated.
type FetchResult struct {
	Kind    FetchKind
	User    user.User
	Message string
	Err     error // underlying cause for FetchTransient, for logging only
}
