package id

import "github.com/google/uuid"

// UUID generates a random UUID v4.
func UUID() string {
	return uuid.NewString()
}

// Short returns the first 8 hex characters of a random UUID.
func Short() string {
	return UUID()[:8]
}

// TimeOrdered generates a UUID v7. IDs created later sort after earlier
// ones within the same process.
func TimeOrdered() string {
	u, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does.
		return UUID()
	}
	return u.String()
}
