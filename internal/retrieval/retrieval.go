package retrieval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/kyokomi/emoji/v2"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	corev1 "k8s.io/api/core/v1"

	"github.com/PvGGit/pv-retrieval/internal/backend"
	"github.com/PvGGit/pv-retrieval/internal/binding"
	"github.com/PvGGit/pv-retrieval/internal/claim"
	"github.com/PvGGit/pv-retrieval/internal/correlation"
	"github.com/PvGGit/pv-retrieval/internal/k8s"
	"github.com/PvGGit/pv-retrieval/internal/mapping"
	"github.com/PvGGit/pv-retrieval/internal/report"
	"github.com/PvGGit/pv-retrieval/internal/warning"
)

const (
	sideSource = "source"
	sideTarget = "target"
)

var (
	ErrTargetContextRequired = errors.New("a target context is required to retrieve target PVCs or to use a mapping file")
	ErrNothingToDo           = errors.New("nothing to do: neither a target context nor a PVC list retrieval was requested")
)

// ClusterHandle reads the claims and volumes of one cluster.
type ClusterHandle interface {
	ListPVCs(ctx context.Context, namespace string) ([]corev1.PersistentVolumeClaim, error)
	ListPVs(ctx context.Context) ([]corev1.PersistentVolume, error)
}

type handleGetter func(kubeconfigPath string, kubeContext string) (ClusterHandle, string, error)

// Request describes one retrieval run.
type Request struct {
	KubeconfigPath string
	SourceContext  string
	// TargetContext enables correlation. It has no default.
	TargetContext string
	// Namespace restricts the claims listed on both clusters, all namespaces
	// if empty. The target also lists the namespaces of mapped target claims.
	Namespace string

	// RetrievePVCs selects the PVC list files to write, none if empty.
	RetrievePVCs      report.Side
	SourcePVCListPath string
	TargetPVCListPath string

	MappingFile  string
	ReportPath   string
	ReportFormat report.Format

	RBDDrivers      []string
	ShowProgressBar bool
	ProgressWriter  io.Writer

	Logger *log.Entry
}

// Result is the outcome of a run. Correlation is nil if no target context
// was given.
type Result struct {
	SourceContext string
	TargetContext string

	// SourcePVCs and TargetPVCs are the claims bound to an existing volume.
	SourcePVCs []claim.Ref
	TargetPVCs []claim.Ref

	SourceWarnings []warning.Warning
	TargetWarnings []warning.Warning

	Correlation *correlation.Result
}

type inventory struct {
	pvcs []corev1.PersistentVolumeClaim
	pvs  []corev1.PersistentVolume
}

type Retriever struct {
	getHandle handleGetter
}

func New() *Retriever {
	return &Retriever{getHandle: clusterHandle}
}

func clusterHandle(kubeconfigPath string, kubeContext string) (ClusterHandle, string, error) {
	client, err := k8s.GetClusterClient(kubeconfigPath, kubeContext)
	if err != nil {
		return nil, "", err
	}

	return client.Inventory(), client.Context, nil
}

func Validate(req *Request) error {
	if req.TargetContext == "" {
		if req.RetrievePVCs.IncludesTarget() || req.MappingFile != "" {
			return ErrTargetContextRequired
		}

		if !req.RetrievePVCs.IncludesSource() {
			return ErrNothingToDo
		}
	}

	if req.ReportFormat != "" {
		if _, err := report.ParseFormat(string(req.ReportFormat)); err != nil {
			return err
		}
	}

	return nil
}

func (r *Retriever) Run(ctx context.Context, req *Request) (*Result, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	applyDefaults(req)

	logger := req.Logger
	logger.Debugf(":key: Using kubeconfig %s", k8s.KubeconfigSource(req.KubeconfigPath))

	m, err := loadMapping(req.MappingFile, logger)
	if err != nil {
		return nil, err
	}

	sourceHandle, sourceContext, err := r.getHandle(req.KubeconfigPath, req.SourceContext)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to source cluster: %w", err)
	}

	result := Result{SourceContext: sourceContext}

	var targetHandle ClusterHandle

	correlate := req.TargetContext != ""
	if correlate {
		targetHandle, result.TargetContext, err = r.targetHandle(req, sourceHandle, sourceContext)
		if err != nil {
			return nil, err
		}
	}

	logger.WithFields(log.Fields{
		"source_context": result.SourceContext,
		"target_context": result.TargetContext,
		"namespace":      req.Namespace,
	}).Info(":thought_balloon: Reading persistent volume claims and volumes")

	sourceInv, targetInv, err := readClusters(ctx, req, sourceHandle, targetHandle, m, &result)
	if err != nil {
		return nil, err
	}

	classifier := backend.NewClassifier(req.RBDDrivers...)

	sourceTable, sourceWarnings := resolve(classifier, sourceInv, sideSource, result.SourceContext, logger)
	result.SourceWarnings = sourceWarnings
	result.SourcePVCs = sourceTable.Refs()

	var targetTable *binding.Table

	if correlate {
		var targetWarnings []warning.Warning

		targetTable, targetWarnings = resolve(classifier, targetInv, sideTarget, result.TargetContext, logger)
		result.TargetWarnings = targetWarnings
		result.TargetPVCs = targetTable.Refs()
	}

	if err := writePVCLists(req, &result, logger); err != nil {
		return nil, err
	}

	if !correlate {
		logger.Info(":check_mark_button: Retrieval succeeded")

		return &result, nil
	}

	result.Correlation = correlation.Correlate(sourceTable, targetTable, m)
	logWarnings(logger, "", result.Correlation.Warnings)

	if err := emitRecords(req, result.Correlation.Records, logger); err != nil {
		return nil, err
	}

	logSummary(logger, result.Correlation, m)

	return &result, nil
}

func (r *Retriever) targetHandle(req *Request, sourceHandle ClusterHandle,
	sourceContext string,
) (ClusterHandle, string, error) {
	if req.TargetContext == req.SourceContext || req.TargetContext == sourceContext {
		return sourceHandle, sourceContext, nil
	}

	handle, name, err := r.getHandle(req.KubeconfigPath, req.TargetContext)
	if err != nil {
		return nil, "", fmt.Errorf("failed to connect to target cluster: %w", err)
	}

	return handle, name, nil
}

func applyDefaults(req *Request) {
	if req.SourcePVCListPath == "" {
		req.SourcePVCListPath = report.DefaultSourcePVCListPath
	}

	if req.TargetPVCListPath == "" {
		req.TargetPVCListPath = report.DefaultTargetPVCListPath
	}

	if req.ReportFormat == "" {
		req.ReportFormat = report.FormatJSONLines
	}

	if req.ProgressWriter == nil {
		req.ProgressWriter = os.Stderr
	}

	if req.Logger == nil {
		discard := log.New()
		discard.SetOutput(io.Discard)
		req.Logger = log.NewEntry(discard)
	}
}

func loadMapping(path string, logger *log.Entry) (*mapping.Mapping, error) {
	if path == "" {
		return nil, nil
	}

	m, err := mapping.ReadFile(path)
	if err != nil {
		return nil, err
	}

	logger.WithField("mapping_file", path).
		Infof(":page_facing_up: Loaded %d mapping entries", m.Len())

	return m, nil
}

// readClusters lists both clusters concurrently. A nil target handle skips
// the target cluster.
func readClusters(ctx context.Context, req *Request, sourceHandle ClusterHandle,
	targetHandle ClusterHandle, m *mapping.Mapping, result *Result,
) (*inventory, *inventory, error) {
	steps := 2
	if targetHandle != nil {
		steps = 4
	}

	bar := newProgressBar(req, steps)

	var (
		eg        errgroup.Group
		mu        sync.Mutex
		errs      *multierror.Error
		sourceInv *inventory
		targetInv *inventory
	)

	read := func(side string, name string, handle ClusterHandle, namespaces []string, dst **inventory) func() error {
		return func() error {
			inv, err := readCluster(ctx, handle, namespaces, bar)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("failed to read %s cluster (context %s): %w", side, name, err))

				return nil
			}

			*dst = inv

			return nil
		}
	}

	eg.Go(read(sideSource, result.SourceContext, sourceHandle, scope(req.Namespace), &sourceInv))

	if targetHandle != nil {
		eg.Go(read(sideTarget, result.TargetContext, targetHandle, targetNamespaces(req.Namespace, m), &targetInv))
	}

	_ = eg.Wait()

	if bar != nil {
		_ = bar.Finish()
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, nil, err
	}

	return sourceInv, targetInv, nil
}

// scope returns the namespaces to list, nil for all namespaces.
func scope(namespace string) []string {
	if namespace == "" {
		return nil
	}

	return []string{namespace}
}

// targetNamespaces widens the namespace filter by the namespaces of the
// mapped target claims.
func targetNamespaces(namespace string, m *mapping.Mapping) []string {
	if namespace == "" {
		return nil
	}

	seen := map[string]bool{namespace: true}
	namespaces := []string{namespace}

	for _, e := range m.Entries() {
		if !seen[e.Target.Namespace] {
			seen[e.Target.Namespace] = true
			namespaces = append(namespaces, e.Target.Namespace)
		}
	}

	sort.Strings(namespaces)

	return namespaces
}

// readCluster lists the claims of the given namespaces, all namespaces if
// none are given. More than one namespace is read as a single cluster-wide
// list filtered afterwards.
func readCluster(ctx context.Context, handle ClusterHandle, namespaces []string,
	bar *progressbar.ProgressBar,
) (*inventory, error) {
	namespace := ""
	if len(namespaces) == 1 {
		namespace = namespaces[0]
	}

	pvcs, err := handle.ListPVCs(ctx, namespace)
	if err != nil {
		return nil, err
	}

	if len(namespaces) > 1 {
		pvcs = inNamespaces(pvcs, namespaces)
	}

	advance(bar)

	pvs, err := handle.ListPVs(ctx)
	if err != nil {
		return nil, err
	}

	advance(bar)

	return &inventory{pvcs: pvcs, pvs: pvs}, nil
}

func inNamespaces(pvcs []corev1.PersistentVolumeClaim, namespaces []string) []corev1.PersistentVolumeClaim {
	keep := make(map[string]bool, len(namespaces))
	for _, ns := range namespaces {
		keep[ns] = true
	}

	filtered := make([]corev1.PersistentVolumeClaim, 0, len(pvcs))

	for i := range pvcs {
		if keep[pvcs[i].Namespace] {
			filtered = append(filtered, pvcs[i])
		}
	}

	return filtered
}

func newProgressBar(req *Request, steps int) *progressbar.ProgressBar {
	if !req.ShowProgressBar {
		return nil
	}

	return progressbar.NewOptions(steps,
		progressbar.OptionSetWriter(req.ProgressWriter),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionOnCompletion(func() { _, _ = fmt.Fprintln(req.ProgressWriter) }),
		progressbar.OptionSetDescription(emoji.Sprint(":open_file_folder: Reading clusters...")),
	)
}

func advance(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Add(1)
	}
}

func resolve(classifier *backend.Classifier, inv *inventory, side string, kubeContext string,
	logger *log.Entry,
) (*binding.Table, []warning.Warning) {
	sideLogger := logger.WithFields(log.Fields{"cluster": side, "context": kubeContext})

	if len(inv.pvs) == 0 {
		sideLogger.Warn(":large_orange_diamond: No persistent volumes found in cluster")
	}

	table, warnings := binding.Resolve(classifier, inv.pvcs, inv.pvs)

	sideLogger.Debugf(":link: Resolved %d of %d claims to their volumes", table.Len(), len(inv.pvcs))
	logWarnings(logger, side, warnings)

	return table, warnings
}

func logWarnings(logger *log.Entry, side string, warnings []warning.Warning) {
	for _, w := range warnings {
		fields := log.Fields{"kind": string(w.Kind)}
		if side != "" {
			fields["cluster"] = side
		}

		if !w.Claim.IsZero() {
			fields["claim"] = w.Claim.String()
		}

		if w.Volume != "" {
			fields["volume"] = w.Volume
		}

		logger.WithFields(fields).Warnf(":warning: %s", w.Message)
	}
}

func writePVCLists(req *Request, result *Result, logger *log.Entry) error {
	if req.RetrievePVCs.IncludesSource() {
		header := fmt.Sprintf("PVCs for %s-context %s:", sideSource, result.SourceContext)
		if err := report.WritePVCList(req.SourcePVCListPath, header, result.SourcePVCs); err != nil {
			return err
		}

		logger.WithField("path", req.SourcePVCListPath).
			Infof(":floppy_disk: Wrote %d source PVCs", len(result.SourcePVCs))
	}

	if req.RetrievePVCs.IncludesTarget() {
		header := fmt.Sprintf("PVCs for %s-context %s:", sideTarget, result.TargetContext)
		if err := report.WritePVCList(req.TargetPVCListPath, header, result.TargetPVCs); err != nil {
			return err
		}

		logger.WithField("path", req.TargetPVCListPath).
			Infof(":floppy_disk: Wrote %d target PVCs", len(result.TargetPVCs))
	}

	return nil
}

func emitRecords(req *Request, records []correlation.Record, logger *log.Entry) error {
	if req.ReportPath != "" {
		if err := report.WriteRecords(req.ReportPath, req.ReportFormat, records); err != nil {
			return err
		}

		logger.WithFields(log.Fields{"path": req.ReportPath, "format": string(req.ReportFormat)}).
			Infof(":floppy_disk: Wrote %d correlation records", len(records))

		return nil
	}

	for i := range records {
		logRecord(logger, &records[i])
	}

	return nil
}

func logSummary(logger *log.Entry, res *correlation.Result, m *mapping.Mapping) {
	summary := res.Summary()

	fields := log.Fields{}
	for _, s := range correlation.Statuses {
		fields[string(s)] = summary[s]
	}

	logger.WithFields(fields).Infof(":bar_chart: Correlated %d records", len(res.Records))

	paired := summary[correlation.Matched] + summary[correlation.SourceUnsupported] +
		summary[correlation.TargetUnsupported] + summary[correlation.AmbiguousMapping]
	if m == nil && summary[correlation.TargetMissing] > 0 && paired == 0 {
		logger.Info(":bulb: No claim matched by namespace and name, " +
			"provide a mapping file to pair source and target claims explicitly")
	}
}
