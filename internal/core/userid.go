package core

import "regexp"

var userIDUnsafe = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// UserIDFromEmail derives the directory and storage key for a user. Every
// character outside [A-Za-z0-9_-] becomes an underscore, so "a.b@x.com"
// maps to "a_b_x_com". Distinct emails may collide.
func UserIDFromEmail(email string) string {
	return userIDUnsafe.ReplaceAllString(email, "_")
}
