package retrieval

import (
	log "github.com/sirupsen/logrus"

	"github.com/PvGGit/pv-retrieval/internal/backend"
	"github.com/PvGGit/pv-retrieval/internal/correlation"
	applog "github.com/PvGGit/pv-retrieval/internal/log"
	"github.com/PvGGit/pv-retrieval/internal/report"
)

func logRecord(logger *log.Entry, rec *correlation.Record) {
	fields := log.Fields{"status": string(rec.Status)}
	if rec.Mapped {
		fields["mapped"] = true
	}

	if rec.Status == correlation.Matched && rec.SourceBackend.Equal(*rec.TargetBackend) {
		fields["same_backend"] = true
	}

	if !applog.IsFancy(logger) {
		recordFields(fields, rec)
	}

	l := logger.WithFields(fields)

	switch rec.Status {
	case correlation.Matched:
		l.Infof(":check_mark_button: Matched source PV %s (%s) for PVC %s with target PV %s (%s) for PVC %s (%s -> %s)",
			rec.SourceVolume, kind(rec.SourceBackend), report.RefString(rec.Source),
			rec.TargetVolume, kind(rec.TargetBackend), report.RefString(rec.Target),
			report.LocationString(rec.SourceBackend), report.LocationString(rec.TargetBackend))
	case correlation.SourceUnsupported:
		l.Warnf(":no_entry: Source PV %s for PVC %s has an unsupported backend %s, target PVC %s",
			rec.SourceVolume, report.RefString(rec.Source), report.LocationString(rec.SourceBackend), report.RefString(rec.Target))
	case correlation.TargetUnsupported:
		l.Warnf(":no_entry: Target PV %s for PVC %s has an unsupported backend %s, source PVC %s",
			rec.TargetVolume, report.RefString(rec.Target), report.LocationString(rec.TargetBackend), report.RefString(rec.Source))
	case correlation.TargetMissing:
		l.Warnf(":large_orange_diamond: No target PVC %s found for source PVC %s (PV %s, %s)",
			report.RefString(rec.Target), report.RefString(rec.Source), rec.SourceVolume, report.LocationString(rec.SourceBackend))
	case correlation.AmbiguousMapping:
		l.Warnf(":warning: Target PVC %s is claimed by more than one source PVC, including %s",
			report.RefString(rec.Target), report.RefString(rec.Source))
	case correlation.SourceMissing:
		l.Infof(":fox: Target PVC %s (PV %s, %s) has no source PVC",
			report.RefString(rec.Target), rec.TargetVolume, report.LocationString(rec.TargetBackend))
	}
}

// recordFields adds the record as structured fields for machine readable
// log formats.
func recordFields(fields log.Fields, rec *correlation.Record) {
	if rec.Source != nil {
		fields["source"] = report.RefString(rec.Source)
		fields["source_volume"] = rec.SourceVolume
	}

	if rec.Target != nil {
		fields["target"] = report.RefString(rec.Target)
	}

	if rec.TargetVolume != "" {
		fields["target_volume"] = rec.TargetVolume
	}

	if rec.SourceBackend != nil {
		fields["source_location"] = report.LocationString(rec.SourceBackend)
	}

	if rec.TargetBackend != nil {
		fields["target_location"] = report.LocationString(rec.TargetBackend)
	}
}

func kind(id *backend.Identity) string {
	if id == nil {
		return "-"
	}

	return string(id.Kind)
}
