package catalog

// Scope selects whose watch state a view or statistic reads. The zero value
// aggregates across all users: an item counts as played or visible when any
// known user has it played or visible.
type Scope struct {
	user *User
}

// AllUsers returns the library-wide scope.
func AllUsers() Scope {
	return Scope{}
}

// ForUser returns a scope bound to u.
func ForUser(u User) Scope {
	return Scope{user: &u}
}

// User returns the scoped user, if any.
func (s Scope) User() (User, bool) {
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// IsUser reports whether the scope is bound to a single user.
func (s Scope) IsUser() bool {
	return s.user != nil
}

func (s Scope) key() string {
	if s.user == nil {
		return "*"
	}
	return "u:" + s.user.ID
}
