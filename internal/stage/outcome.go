// Package stage implements the three pipeline stages: resolve, delete,
// verify. Each stage processes records strictly in order, one at a time,
// classifying every backend response into a closed outcome enum via a
// status table shared between the two services.
package stage

import "net/http"

// DeleteOutcome classifies one delete attempt against one service.
type DeleteOutcome int

const (
	DeleteDeleted DeleteOutcome = iota
	DeleteNotFound
	DeleteUnauthorized
	DeleteForbidden
	DeleteError
	DeleteSkipped
)

func (o DeleteOutcome) String() string {
	switch o {
	case DeleteDeleted:
		return "deleted"
	case DeleteNotFound:
		return "not_found"
	case DeleteUnauthorized:
		return "unauthorized"
	case DeleteForbidden:
		return "forbidden"
	case DeleteSkipped:
		return "skipped"
	default:
		return "error"
	}
}

// VerifyOutcome classifies one existence check against one service.
type VerifyOutcome int

const (
	VerifyGone VerifyOutcome = iota
	VerifyStillExists
	VerifyCheckError
	VerifySkipped
)

func (o VerifyOutcome) String() string {
	switch o {
	case VerifyGone:
		return "gone"
	case VerifyStillExists:
		return "still_exists"
	case VerifySkipped:
		return "skipped"
	default:
		return "check_error"
	}
}

// classify maps an HTTP status into an outcome via a per-service table,
// falling back for any status the table does not name. Both services share
// this one operation; only the tables differ.
func classify[T ~int](status int, table map[int]T, fallback T) T {
	if o, ok := table[status]; ok {
		return o
	}
	return fallback
}

// Directory semantics: 200 deleted, 404 already absent (idempotent success).
var directoryDeleteStatus = map[int]DeleteOutcome{
	http.StatusOK:       DeleteDeleted,
	http.StatusNotFound: DeleteNotFound,
}

// Provider semantics additionally single out auth failures, since a bad or
// under-scoped token will likely recur for every remaining record.
var idpDeleteStatus = map[int]DeleteOutcome{
	http.StatusOK:           DeleteDeleted,
	http.StatusNoContent:    DeleteDeleted,
	http.StatusNotFound:     DeleteNotFound,
	http.StatusUnauthorized: DeleteUnauthorized,
	http.StatusForbidden:    DeleteForbidden,
}

// Verification trichotomy, identical for both services: 200 means the user
// still exists (discrepancy), 404 means gone, anything else is inconclusive.
var verifyStatus = map[int]VerifyOutcome{
	http.StatusOK:       VerifyStillExists,
	http.StatusNotFound: VerifyGone,
}
