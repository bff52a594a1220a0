package stage

import (
	"context"
	"net/http"

	"example.com/offboard-template/internal/artifact"
	"example.com/offboard-template/internal/gateway"
	"example.com/offboard-template/internal/report"
)

type ResolveStats struct {
	Processed int
	Found     int
	NotFound  int
	Errors    int
}

// Resolve is Stage 1: look each email up in the identity provider and write
// the three-column artifact. Every input record yields exactly one artifact
// row, in input order, even when the lookup fails — Stage 2 always gets a
// complete worklist.
func Resolve(ctx context.Context, records []artifact.Record, d Deps) (ResolveStats, error) {
	var stats ResolveStats

	out, err := artifact.NewWriter(d.Cfg.ArtifactPath)
	if err != nil {
		return stats, err
	}
	defer out.Close()

	found, err := report.CreateLog(d.Cfg.LogDir, "resolved.log")
	if err != nil {
		return stats, err
	}
	notFound, err := report.CreateLog(d.Cfg.LogDir, "not_found.log")
	if err != nil {
		return stats, err
	}
	lookupErrs, err := report.CreateLog(d.Cfg.LogDir, "lookup_errors.log")
	if err != nil {
		return stats, err
	}
	defer report.CloseAll(found, notFound, lookupErrs)

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		rec.Name = artifact.DeriveName(rec.Email, rec.Name)
		rec.ProviderID = ""

		id, res, lerr := d.IDP.LookupByEmail(ctx, rec.Email)
		switch {
		case lerr != nil:
			if canceled(ctx, lerr) {
				return stats, lerr
			}
			stats.Errors++
			detail := gateway.CompactDetail([]byte(lerr.Error()))
			lookupErrs.Printf("LOOKUP_ERROR email=%s name=%q detail=%q", rec.Email, rec.Name, detail)
			d.Hist.Record(ctx, serviceIDP, rec.Email, "", "lookup_error", 0, detail)
			d.Log.Warnw("lookup failed", "email", rec.Email, "err", lerr)
		case res.Status != http.StatusOK:
			stats.Errors++
			lookupErrs.Printf("LOOKUP_ERROR email=%s name=%q status=%d detail=%q", rec.Email, rec.Name, res.Status, res.Detail)
			d.Hist.Record(ctx, serviceIDP, rec.Email, "", "lookup_error", res.Status, res.Detail)
			d.Log.Warnw("lookup failed", "email", rec.Email, "status", res.Status)
		case id == "":
			stats.NotFound++
			notFound.Printf("NOT_FOUND email=%s name=%q", rec.Email, rec.Name)
			d.Hist.Record(ctx, serviceIDP, rec.Email, "", "not_found", res.Status, "")
			d.Log.Infow("not found in provider", "email", rec.Email)
		default:
			rec.ProviderID = id
			stats.Found++
			found.Printf("FOUND email=%s name=%q id=%s", rec.Email, rec.Name, id)
			d.Hist.Record(ctx, serviceIDP, rec.Email, id, "found", res.Status, "")
			d.Log.Infow("resolved", "email", rec.Email, "id", id)
		}

		if err := out.Append(rec); err != nil {
			return stats, err
		}
		stats.Processed++
	}
	return stats, nil
}
