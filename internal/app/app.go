package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/PvGGit/pv-retrieval/internal/backend"
	applog "github.com/PvGGit/pv-retrieval/internal/log"
	"github.com/PvGGit/pv-retrieval/internal/report"
	"github.com/PvGGit/pv-retrieval/internal/retrieval"
)

type cliAppContextKey string

const (
	appName     = "pv-retrieval"
	appUsage    = "Resolve the PersistentVolumeClaims of two Kubernetes clusters to their NFS and CephRBD " +
		"backends and pair source claims with target claims"
	envPrefix   = "PV_RETRIEVAL_"
	authorName  = "PvGGit"
	authorEmail = "pvggit@users.noreply.github.com"

	FlagLogLevel      = "log-level"
	FlagLogFormat     = "log-format"
	FlagKubeconfig    = "kube-config"
	FlagSourceContext = "source-context"
	FlagTargetContext = "target-context"
	FlagNamespace     = "namespace"
	FlagRetrievePVCs  = "retrieve-pvcs"
	FlagSourcePVCList = "source-pvc-list"
	FlagTargetPVCList = "target-pvc-list"
	FlagMappingFile   = "mapping-file"
	FlagReportFile    = "report-file"
	FlagReportFormat  = "report-format"
	FlagRBDDriver     = "rbd-driver"
	FlagNoProgressBar = "no-progress-bar"

	loggerContextKey cliAppContextKey = "logger"
)

func New(rootLogger *log.Entry, version string, commit string) *cli.App {
	return &cli.App{
		Name:                 appName,
		Usage:                appUsage,
		Version:              fmt.Sprintf("%s (commit: %s)", version, commit),
		EnableBashCompletion: true,
		BashComplete:         bashComplete,
		Action: func(c *cli.Context) error {
			logger := extractLogger(c.Context)

			req, err := buildRequest(c, logger)
			if err != nil {
				return err
			}

			_, err = retrieval.New().Run(c.Context, req)

			return err
		},
		Commands: []*cli.Command{completionCommand()},
		Flags:    flags(),
		Before: func(c *cli.Context) error {
			if err := applog.Configure(rootLogger, c.String(FlagLogLevel), c.String(FlagLogFormat)); err != nil {
				return err
			}

			c.Context = context.WithValue(c.Context, loggerContextKey, rootLogger)

			return nil
		},
		Authors: []*cli.Author{
			{
				Name:  authorName,
				Email: authorEmail,
			},
		},
		CommandNotFound: func(c *cli.Context, s string) {
			logger := extractLogger(c.Context)
			logger.Errorf(":cross_mark: Error: no help topic for '%s'", s)
			os.Exit(3)
		},
	}
}

func flags() []cli.Flag {
	return []cli.Flag{
		cli.HelpFlag,
		cli.VersionFlag,
		&cli.StringFlag{
			Name:        FlagKubeconfig,
			Aliases:     []string{"k"},
			Usage:       "Path of the kubeconfig file holding both contexts",
			DefaultText: "~/.kube/config or KUBECONFIG env variable",
			EnvVars:     envVars(FlagKubeconfig),
			TakesFile:   true,
		},
		&cli.StringFlag{
			Name:        FlagSourceContext,
			Aliases:     []string{"s"},
			Usage:       "Context of the source cluster",
			DefaultText: "currently selected context in the kubeconfig",
			EnvVars:     envVars(FlagSourceContext),
		},
		&cli.StringFlag{
			Name:    FlagTargetContext,
			Aliases: []string{"t"},
			Usage:   "Context of the target cluster, required for correlation, target PVC lists and mapping files",
			EnvVars: envVars(FlagTargetContext),
		},
		&cli.StringFlag{
			Name:        FlagNamespace,
			Aliases:     []string{"n"},
			Usage:       "Only list the PVCs of this namespace, plus the namespaces of mapped target PVCs on the target cluster",
			DefaultText: "all namespaces",
			EnvVars:     envVars(FlagNamespace),
		},
		&cli.StringFlag{
			Name:    FlagRetrievePVCs,
			Aliases: []string{"r"},
			Usage: fmt.Sprintf("Write the PVC list files of the given clusters. Must be one of: %s",
				strings.Join(report.Sides, ", ")),
			EnvVars: envVars(FlagRetrievePVCs),
		},
		&cli.StringFlag{
			Name:      FlagSourcePVCList,
			Usage:     "Path of the source PVC list file",
			Value:     report.DefaultSourcePVCListPath,
			EnvVars:   envVars(FlagSourcePVCList),
			TakesFile: true,
		},
		&cli.StringFlag{
			Name:      FlagTargetPVCList,
			Usage:     "Path of the target PVC list file",
			Value:     report.DefaultTargetPVCListPath,
			EnvVars:   envVars(FlagTargetPVCList),
			TakesFile: true,
		},
		&cli.StringFlag{
			Name:    FlagMappingFile,
			Aliases: []string{"m"},
			Usage: "File mapping source PVCs to target PVCs, " +
				"one sourceNs:sourcePvc,targetNs:targetPvc per line",
			EnvVars:   envVars(FlagMappingFile),
			TakesFile: true,
		},
		&cli.StringFlag{
			Name:        FlagReportFile,
			Aliases:     []string{"o"},
			Usage:       "Write the correlation report to this file",
			DefaultText: "log the correlation records",
			EnvVars:     envVars(FlagReportFile),
			TakesFile:   true,
		},
		&cli.StringFlag{
			Name: FlagReportFormat,
			Usage: fmt.Sprintf("Format of the correlation report. Must be one of: %s",
				strings.Join(report.Formats, ", ")),
			Value:   string(report.FormatJSONLines),
			EnvVars: envVars(FlagReportFormat),
		},
		&cli.StringSliceFlag{
			Name: FlagRBDDriver,
			Usage: fmt.Sprintf("Additional CSI driver name to treat as CephRBD, can be repeated. "+
				"Always recognized: %s", strings.Join(backend.DefaultRBDDrivers, ", ")),
			EnvVars: envVars(FlagRBDDriver),
		},
		&cli.BoolFlag{
			Name:    FlagNoProgressBar,
			Aliases: []string{"b"},
			Usage:   "Do not display a progress bar while reading the clusters",
			EnvVars: envVars(FlagNoProgressBar),
		},
		&cli.StringFlag{
			Name:    FlagLogLevel,
			Aliases: []string{"l"},
			Usage: fmt.Sprintf("Log level. Must be one of: %s",
				strings.Join(applog.Levels, ", ")),
			Value:   applog.LevelInfo,
			EnvVars: envVars(FlagLogLevel),
		},
		&cli.StringFlag{
			Name:    FlagLogFormat,
			Aliases: []string{"f"},
			Usage: fmt.Sprintf("Log format. Must be one of: %s",
				strings.Join(applog.Formats, ", ")),
			Value:   applog.FormatFancy,
			EnvVars: envVars(FlagLogFormat),
		},
	}
}

func buildRequest(c *cli.Context, logger *log.Entry) (*retrieval.Request, error) {
	if c.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(c.Args().Slice(), " "))
	}

	var side report.Side

	if s := c.String(FlagRetrievePVCs); s != "" {
		parsed, err := report.ParseSide(s)
		if err != nil {
			return nil, err
		}

		side = parsed
	}

	format, err := report.ParseFormat(c.String(FlagReportFormat))
	if err != nil {
		return nil, err
	}

	showProgressBar := !c.Bool(FlagNoProgressBar) && isatty.IsTerminal(os.Stderr.Fd())

	return &retrieval.Request{
		KubeconfigPath:    c.String(FlagKubeconfig),
		SourceContext:     c.String(FlagSourceContext),
		TargetContext:     c.String(FlagTargetContext),
		Namespace:         c.String(FlagNamespace),
		RetrievePVCs:      side,
		SourcePVCListPath: c.String(FlagSourcePVCList),
		TargetPVCListPath: c.String(FlagTargetPVCList),
		MappingFile:       c.String(FlagMappingFile),
		ReportPath:        c.String(FlagReportFile),
		ReportFormat:      format,
		RBDDrivers:        c.StringSlice(FlagRBDDriver),
		ShowProgressBar:   showProgressBar,
		ProgressWriter:    os.Stderr,
		Logger:            logger,
	}, nil
}

func envVars(flag string) []string {
	return []string{envPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))}
}

func extractLogger(c context.Context) *log.Entry {
	return c.Value(loggerContextKey).(*log.Entry)
}
