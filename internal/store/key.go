package store

import "strings"

// Key derives the composite identity for a user. The same (region, username)
// pair always maps to the same key, so rows for one user coming from the
// ranking pages, the historical snapshot and live lookups all land on a
// single record. Regions are short codes like "CN" or "US" and never contain
// the separator, usernames may contain anything but '/'.
func Key(region, username string) string {
	return strings.ToUpper(region) + "/" + username
}
