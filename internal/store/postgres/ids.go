package postgres

import "github.com/google/uuid"

// parseID returns id in canonical form so lookups hit the primary key
// index. Anything that is not a UUID cannot name a stored row.
func parseID(id string) (string, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return u.String(), true
}
