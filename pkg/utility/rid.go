package utility

import "github.com/google/uuid"

// RunID identifies one batch run. Every row a run persists is stamped with
// its RunID so dashboards can trace results back to the producing job.
type RunID = uuid.UUID

func NewRunID() RunID {
	return uuid.Must(uuid.NewV7())
}
