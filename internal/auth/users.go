package auth

import "crypto/subtle"

// UserStore holds the configured username-to-password mapping and answers
// credential checks in constant time with respect to the supplied
// password, so a timing side-channel cannot be used to guess it
// character-by-character.
type UserStore struct {
	passwords map[string]string
}

// NewUserStore builds a UserStore from the `users` map in the configuration
// snapshot.
func NewUserStore(users map[string]string) *UserStore {
	passwords := make(map[string]string, len(users))
	for u, p := range users {
		passwords[u] = p
	}
	return &UserStore{passwords: passwords}
}

// Lookup reports whether username is configured at all, independent of any
// password check.
func (s *UserStore) Lookup(username string) (known bool) {
	_, known = s.passwords[username]
	return known
}

// Check reports whether password matches the stored password for username.
// Returns false if the user is not known. The comparison itself is
// constant-time; the map lookup and "known" branch are not, which matches
// the threat model of §4.3 (only credential guessing for an already-known
// username needs to resist timing analysis).
func (s *UserStore) Check(username, password string) bool {
	stored, known := s.passwords[username]
	if !known {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

// Empty reports whether the store has no configured users, which gates
// whether `allow_any_user` is reachable (spec.md §4.3: "reachable only when
// users is non-empty and the admin has opted in").
func (s *UserStore) Empty() bool {
	return len(s.passwords) == 0
}
