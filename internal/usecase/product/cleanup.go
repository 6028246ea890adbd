package product

// CleanupOutcome records what happened to a product's image file during a
// secondary cleanup step. Cleanup never fails the enclosing operation; the
// outcome only exists so callers can see and log it.
type CleanupOutcome int

const (
	// CleanupNone means the product referenced no image.
	CleanupNone CleanupOutcome = iota
	// CleanupRemoved means the file was deleted.
	CleanupRemoved
	// CleanupAbsent means the referenced file was already gone.
	CleanupAbsent
	// CleanupIgnored means cleanup failed and the failure was ignored.
	CleanupIgnored
)

func (o CleanupOutcome) String() string {
	switch o {
	case CleanupNone:
		return "none"
	case CleanupRemoved:
		return "removed"
	case CleanupAbsent:
		return "absent"
	case CleanupIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// CleanupResult is the outcome of a best-effort image cleanup.
type CleanupResult struct {
	Filename string
	Outcome  CleanupOutcome
	Err      error
}

// DeleteResult describes a product deletion: the row delete is primary and
// always attempted, the image cleanup is secondary.
type DeleteResult struct {
	ProductID int64
	// Existed is false when there was no row to delete.
	Existed bool
	Image   CleanupResult
}
