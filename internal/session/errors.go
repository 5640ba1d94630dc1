package session

// Kind classifies what went wrong at the session boundary. Everything the
// facade surfaces is one of these; raw network/storage errors never escape.
type Kind int

const (
	// KindInvalidCredentials: login/register rejected; message is shown to
	// the user verbatim.
	KindInvalidCredentials Kind = iota
	// KindTokenExpiredOrInvalid: silent teardown, user lands back at login.
	KindTokenExpiredOrInvalid
	// KindAccountDeactivated: teardown plus an explicit redirect carrying
	// the server's reason.
	KindAccountDeactivated
	// KindTransient: network or server trouble; degrade to cached identity,
	// never a hard failure when a cache exists.
	KindTransient
)

type AuthError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Err != nil {
		return e.Err.Error()
	}

	return "auth error"
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
