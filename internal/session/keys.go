package session

import "time"

// Durable storage keys. The logout sweep removes KeyToken, KeySchoolID and
// every key carrying the auth prefix, so auxiliary auth keys written by
// other parts of the app are caught too.
const (
	KeyToken         = "token"
	KeyUser          = "auth_user"
	KeyUserTimestamp = "auth_user_timestamp"
	KeySchoolID      = "schoolId"

	// KeySessionRev takes a fresh nonce on every auth mutation. Watchers
	// diff snapshots between polls, so mutations that revert a key inside
	// one interval (login then logout) would otherwise be invisible to
	// them. Deliberately outside the auth prefix: the logout sweep must
	// leave it behind as the very evidence of the logout.
	KeySessionRev = "session_rev"

	authKeyPrefix = "auth"
)

// UserCacheTTL is how long a cached identity is trusted without
// revalidation: 300_000 ms.
const UserCacheTTL = 5 * time.Minute

// WatchedKeys are the keys whose remote changes mean "auth state changed".
func WatchedKeys() []string {
	return []string{KeyToken, KeyUser, KeySessionRev}
}
