package stage

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"example.com/offboard-template/internal/config"
	"example.com/offboard-template/internal/gateway"
	"example.com/offboard-template/internal/report"
)

// Deps carries the collaborators of a stage run. History may be nil (no
// Postgres sink configured).
type Deps struct {
	Cfg  *config.Config
	IDP  gateway.IdentityProvider
	Dir  gateway.Directory
	Hist *report.History
	Log  *zap.SugaredLogger
}

const (
	serviceDirectory = "directory"
	serviceIDP       = "idp"
)

// canceled reports whether err means the run itself was interrupted, as
// opposed to a per-record backend failure.
func canceled(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
