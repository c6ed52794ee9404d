package main

import (
	"os"

	"github.com/PvGGit/pv-retrieval/internal/app"
	applog "github.com/PvGGit/pv-retrieval/internal/log"

	// needed for k8s oidc and gcp auth
	_ "k8s.io/client-go/plugin/pkg/client/auth/gcp"
	_ "k8s.io/client-go/plugin/pkg/client/auth/oidc"
)

var (
	// will be overridden by goreleaser: https://goreleaser.com/environment/#using-the-mainversion
	version = "dev"
	commit  = "none"
)

func main() {
	rootLogger, err := applog.New()
	if err != nil {
		panic(err)
	}

	cliApp := app.New(rootLogger, version, commit)
	if err := cliApp.Run(os.Args); err != nil {
		rootLogger.Fatalf(":cross_mark: Error: %s", err.Error())
	}
}
