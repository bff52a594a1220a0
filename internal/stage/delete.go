package stage

import (
	"context"

	"example.com/offboard-template/internal/artifact"
	"example.com/offboard-template/internal/gateway"
	"example.com/offboard-template/internal/report"
)

// ServiceDeleteStats are the per-service running totals for Stage 2.
// AuthFailed is a subset of Failed, tallied separately because 401/403
// signal a systemic token problem worth the operator's attention.
type ServiceDeleteStats struct {
	Deleted    int
	NotFound   int
	Failed     int
	AuthFailed int
	Skipped    int
}

func (s *ServiceDeleteStats) apply(o DeleteOutcome) {
	switch o {
	case DeleteDeleted:
		s.Deleted++
	case DeleteNotFound:
		s.NotFound++
	case DeleteUnauthorized, DeleteForbidden:
		s.Failed++
		s.AuthFailed++
	case DeleteSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
}

type DeleteStats struct {
	Processed int
	Directory ServiceDeleteStats
	Provider  ServiceDeleteStats
}

type deleteLogs struct {
	ok, errs *report.Log
}

// attemptDelete runs one delete call and classifies it. A transport-level
// error (no HTTP status) is a generic failure with status 0.
func attemptDelete(ctx context.Context, call func(context.Context) (gateway.Result, error), table map[int]DeleteOutcome) (DeleteOutcome, gateway.Result, error) {
	res, err := call(ctx)
	if err != nil {
		if canceled(ctx, err) {
			return DeleteError, res, err
		}
		res.Detail = gateway.CompactDetail([]byte(err.Error()))
		return DeleteError, res, nil
	}
	return classify(res.Status, table, DeleteError), res, nil
}

func (d Deps) recordDeleteOutcome(ctx context.Context, service string, rec artifact.Record, o DeleteOutcome, res gateway.Result, logs deleteLogs, stats *ServiceDeleteStats) {
	stats.apply(o)
	d.Hist.Record(ctx, service, rec.Email, rec.ProviderID, o.String(), res.Status, res.Detail)

	switch o {
	case DeleteDeleted:
		logs.ok.Printf("DELETED email=%s status=%d", rec.Email, res.Status)
		d.Log.Infow("deleted", "service", service, "email", rec.Email)
	case DeleteNotFound:
		logs.ok.Printf("NOT_FOUND email=%s (already absent)", rec.Email)
		d.Log.Infow("already absent", "service", service, "email", rec.Email)
	case DeleteUnauthorized:
		logs.errs.Printf("UNAUTHORIZED email=%s status=%d detail=%q", rec.Email, res.Status, res.Detail)
		d.Log.Warnw("unauthorized", "service", service, "email", rec.Email)
	case DeleteForbidden:
		logs.errs.Printf("FORBIDDEN email=%s status=%d detail=%q", rec.Email, res.Status, res.Detail)
		d.Log.Warnw("forbidden", "service", service, "email", rec.Email)
	default:
		logs.errs.Printf("ERROR email=%s status=%d detail=%q", rec.Email, res.Status, res.Detail)
		d.Log.Warnw("delete failed", "service", service, "email", rec.Email, "status", res.Status)
	}
}

// Delete is Stage 2: for each artifact record, delete from the directory by
// email and, when a provider ID was resolved, from the identity provider by
// ID. The two attempts are independent; failure of one never skips the
// other, and no per-record failure aborts the batch.
func Delete(ctx context.Context, records []artifact.Record, d Deps) (DeleteStats, error) {
	var stats DeleteStats

	dirOK, err := report.CreateLog(d.Cfg.LogDir, "directory_deleted.log")
	if err != nil {
		return stats, err
	}
	dirErrs, err := report.CreateLog(d.Cfg.LogDir, "directory_errors.log")
	if err != nil {
		return stats, err
	}
	idpOK, err := report.CreateLog(d.Cfg.LogDir, "idp_deleted.log")
	if err != nil {
		return stats, err
	}
	idpErrs, err := report.CreateLog(d.Cfg.LogDir, "idp_errors.log")
	if err != nil {
		return stats, err
	}
	defer report.CloseAll(dirOK, dirErrs, idpOK, idpErrs)

	dirLogs := deleteLogs{ok: dirOK, errs: dirErrs}
	idpLogs := deleteLogs{ok: idpOK, errs: idpErrs}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		// Directory first, always keyed by email.
		o, res, err := attemptDelete(ctx, func(c context.Context) (gateway.Result, error) {
			return d.Dir.DeleteByEmail(c, rec.Email)
		}, directoryDeleteStatus)
		if err != nil {
			return stats, err
		}
		d.recordDeleteOutcome(ctx, serviceDirectory, rec, o, res, dirLogs, &stats.Directory)

		// Provider second, only when Stage 1 resolved an ID.
		if rec.ProviderID == "" {
			stats.Provider.apply(DeleteSkipped)
			d.Hist.Record(ctx, serviceIDP, rec.Email, "", DeleteSkipped.String(), 0, "no provider id")
			d.Log.Infow("provider delete skipped", "email", rec.Email, "reason", "no provider id")
		} else {
			o, res, err = attemptDelete(ctx, func(c context.Context) (gateway.Result, error) {
				return d.IDP.DeleteUser(c, rec.ProviderID)
			}, idpDeleteStatus)
			if err != nil {
				return stats, err
			}
			d.recordDeleteOutcome(ctx, serviceIDP, rec, o, res, idpLogs, &stats.Provider)
		}

		stats.Processed++
	}
	return stats, nil
}
