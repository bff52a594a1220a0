package stage

import (
	"context"

	"example.com/offboard-template/internal/artifact"
	"example.com/offboard-template/internal/gateway"
	"example.com/offboard-template/internal/report"
)

type ServiceVerifyStats struct {
	Gone        int
	StillExists int
	CheckErrors int
	Skipped     int
}

func (s *ServiceVerifyStats) apply(o VerifyOutcome) {
	switch o {
	case VerifyGone:
		s.Gone++
	case VerifyStillExists:
		s.StillExists++
	case VerifySkipped:
		s.Skipped++
	default:
		s.CheckErrors++
	}
}

type VerifyStats struct {
	Processed int
	Directory ServiceVerifyStats
	Provider  ServiceVerifyStats
}

// Failed reports the overall verdict: any user still present in either
// service is a hard failure. Inconclusive checks do not fail the run.
func (v VerifyStats) Failed() bool {
	return v.Directory.StillExists+v.Provider.StillExists > 0
}

// Inconclusive reports whether any check could not give a yes/no answer.
func (v VerifyStats) Inconclusive() bool {
	return v.Directory.CheckErrors+v.Provider.CheckErrors > 0
}

func attemptVerify(ctx context.Context, call func(context.Context) (gateway.Result, error)) (VerifyOutcome, gateway.Result, error) {
	res, err := call(ctx)
	if err != nil {
		if canceled(ctx, err) {
			return VerifyCheckError, res, err
		}
		res.Detail = gateway.CompactDetail([]byte(err.Error()))
		return VerifyCheckError, res, nil
	}
	return classify(res.Status, verifyStatus, VerifyCheckError), res, nil
}

func (d Deps) recordVerifyOutcome(ctx context.Context, service string, rec artifact.Record, o VerifyOutcome, res gateway.Result, still, checkErrs *report.Log, stats *ServiceVerifyStats) {
	stats.apply(o)
	d.Hist.Record(ctx, service, rec.Email, rec.ProviderID, o.String(), res.Status, res.Detail)

	switch o {
	case VerifyGone:
		d.Log.Infow("gone", "service", service, "email", rec.Email)
	case VerifyStillExists:
		still.Printf("STILL_EXISTS service=%s email=%s detail=%q", service, rec.Email, res.Detail)
		d.Log.Warnw("still exists", "service", service, "email", rec.Email)
	default:
		checkErrs.Printf("CHECK_ERROR service=%s email=%s status=%d detail=%q", service, rec.Email, res.Status, res.Detail)
		d.Log.Warnw("check inconclusive", "service", service, "email", rec.Email, "status", res.Status)
	}
}

// Verify is Stage 3: re-query both services for every record of the same
// artifact Stage 2 consumed. This is independent confirmation, not a replay
// of the deleter's self-reported results.
func Verify(ctx context.Context, records []artifact.Record, d Deps) (VerifyStats, error) {
	var stats VerifyStats

	still, err := report.CreateLog(d.Cfg.LogDir, "still_present.log")
	if err != nil {
		return stats, err
	}
	checkErrs, err := report.CreateLog(d.Cfg.LogDir, "verify_errors.log")
	if err != nil {
		return stats, err
	}
	defer report.CloseAll(still, checkErrs)

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		o, res, err := attemptVerify(ctx, func(c context.Context) (gateway.Result, error) {
			return d.Dir.GetByEmail(c, rec.Email)
		})
		if err != nil {
			return stats, err
		}
		d.recordVerifyOutcome(ctx, serviceDirectory, rec, o, res, still, checkErrs, &stats.Directory)

		if rec.ProviderID == "" {
			stats.Provider.apply(VerifySkipped)
			d.Hist.Record(ctx, serviceIDP, rec.Email, "", VerifySkipped.String(), 0, "no provider id")
		} else {
			o, res, err = attemptVerify(ctx, func(c context.Context) (gateway.Result, error) {
				return d.IDP.GetUser(c, rec.ProviderID)
			})
			if err != nil {
				return stats, err
			}
			d.recordVerifyOutcome(ctx, serviceIDP, rec, o, res, still, checkErrs, &stats.Provider)
		}

		stats.Processed++
	}
	return stats, nil
}
