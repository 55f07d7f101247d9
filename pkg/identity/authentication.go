package identity

import (
	"sort"
	"strings"
)

// Profile holds optional personal details of a user principal.
type Profile struct {
	City        string `json:"city,omitempty"`
	Country     string `json:"country,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	GivenName   string `json:"given_name,omitempty"`
	FamilyName  string `json:"family_name,omitempty"`
	Nickname    string `json:"nickname,omitempty"`
}

// IsEmpty reports whether no profile field is set.
func (p Profile) IsEmpty() bool {
	return p == Profile{}
}

// Set is an unordered collection of unique strings.
type Set map[string]struct{}

// NewSet returns a Set holding items.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Has reports whether item is in the set.
func (s Set) Has(item string) bool {
	_, ok := s[item]
	return ok
}

// Sorted returns the items in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for item := range s {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

// ParseList splits a comma separated list, trimming and lower-casing each
// item and dropping empty ones.
func ParseList(s string) Set {
	out := make(Set)
	for _, item := range strings.Split(s, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			out[item] = struct{}{}
		}
	}
	return out
}

// Authentication is a resolved principal. It is built once per request and
// must not be mutated afterwards.
type Authentication struct {
	Username    string
	TenantID    string
	Application string

	// Principal is passed through untouched from the principal claim or
	// the authority that produced the authentication.
	Principal any

	Profile     Profile
	Roles       Set
	Permissions Set
	Claims      map[string]any
	LiveMode    bool
}

// HasRole reports whether role is held.
func (a *Authentication) HasRole(role string) bool {
	return a != nil && a.Roles.Has(role)
}

// HasPermission reports whether permission is held.
func (a *Authentication) HasPermission(permission string) bool {
	return a != nil && a.Permissions.Has(permission)
}
