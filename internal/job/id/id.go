// Package id provides unique identifier generation for jobs.
package id

import (
	"fmt"

	"github.com/google/uuid"
)

// Generate creates a new unique job ID.
// Format: job-<uuid>
// Example: job-9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d
func Generate() string {
	return fmt.Sprintf("job-%s", uuid.NewString())
}
