// Package pvretrieval resolves the PersistentVolumeClaims of a source and a
// target cluster to their storage backends and pairs them, so that the data
// of each source claim can be located on the target cluster.
package pvretrieval

import (
	"context"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/PvGGit/pv-retrieval/internal/backend"
	"github.com/PvGGit/pv-retrieval/internal/correlation"
	"github.com/PvGGit/pv-retrieval/internal/report"
	"github.com/PvGGit/pv-retrieval/internal/retrieval"
)

// Side selects the clusters to write PVC list files for.
type Side string

const (
	None   Side = ""
	Source Side = Side(report.SideSource)
	Target Side = Side(report.SideTarget)
	Both   Side = Side(report.SideBoth)
)

// Format is the encoding of the correlation report file.
type Format string

const (
	JSONLines Format = Format(report.FormatJSONLines)
	YAML      Format = Format(report.FormatYAML)
	Text      Format = Format(report.FormatText)
)

// Status classifies a correlation record.
type Status = correlation.Status

// Record is one entry of the correlation report.
type Record = correlation.Record

var (
	ErrTargetContextRequired = retrieval.ErrTargetContextRequired
	ErrNothingToDo           = retrieval.ErrNothingToDo

	DefaultRBDDrivers = backend.DefaultRBDDrivers
)

// Retrieval holds all configuration of a run.
type Retrieval struct {
	KubeconfigPath string
	SourceContext  string
	TargetContext  string
	Namespace      string

	RetrievePVCs      Side
	SourcePVCListPath string
	TargetPVCListPath string

	MappingFile  string
	ReportPath   string
	ReportFormat Format

	// RBDDrivers are CSI driver names recognized as CephRBD in addition to
	// DefaultRBDDrivers.
	RBDDrivers      []string
	ShowProgressBar bool

	Writer io.Writer
	Logger *log.Entry
}

// Result is the outcome of a run.
type Result struct {
	SourceContext string
	TargetContext string
	// Records is empty if no target context was given.
	Records  []Record
	Warnings []string
}

// NewRetrieval creates a Retrieval with sensible defaults.
func NewRetrieval() Retrieval {
	return Retrieval{
		SourcePVCListPath: report.DefaultSourcePVCListPath,
		TargetPVCListPath: report.DefaultTargetPVCListPath,
		ReportFormat:      JSONLines,
		Writer:            os.Stderr,
	}
}

// Run reads both clusters and writes the requested files.
func Run(ctx context.Context, r *Retrieval) (*Result, error) {
	r.applyDefaults()

	res, err := retrieval.New().Run(ctx, toInternalRequest(r))
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	return fromInternalResult(res), nil
}

func (r *Retrieval) applyDefaults() {
	defaults := NewRetrieval()

	if r.SourcePVCListPath == "" {
		r.SourcePVCListPath = defaults.SourcePVCListPath
	}

	if r.TargetPVCListPath == "" {
		r.TargetPVCListPath = defaults.TargetPVCListPath
	}

	if r.ReportFormat == "" {
		r.ReportFormat = defaults.ReportFormat
	}

	if r.Writer == nil {
		r.Writer = defaults.Writer
	}
}

func toInternalRequest(r *Retrieval) *retrieval.Request {
	return &retrieval.Request{
		KubeconfigPath:    r.KubeconfigPath,
		SourceContext:     r.SourceContext,
		TargetContext:     r.TargetContext,
		Namespace:         r.Namespace,
		RetrievePVCs:      report.Side(r.RetrievePVCs),
		SourcePVCListPath: r.SourcePVCListPath,
		TargetPVCListPath: r.TargetPVCListPath,
		MappingFile:       r.MappingFile,
		ReportPath:        r.ReportPath,
		ReportFormat:      report.Format(r.ReportFormat),
		RBDDrivers:        r.RBDDrivers,
		ShowProgressBar:   r.ShowProgressBar,
		ProgressWriter:    r.Writer,
		Logger:            r.Logger,
	}
}

func fromInternalResult(res *retrieval.Result) *Result {
	out := Result{
		SourceContext: res.SourceContext,
		TargetContext: res.TargetContext,
	}

	for _, w := range res.SourceWarnings {
		out.Warnings = append(out.Warnings, "source: "+w.String())
	}

	for _, w := range res.TargetWarnings {
		out.Warnings = append(out.Warnings, "target: "+w.String())
	}

	if res.Correlation != nil {
		out.Records = res.Correlation.Records

		for _, w := range res.Correlation.Warnings {
			out.Warnings = append(out.Warnings, w.String())
		}
	}

	return &out
}
