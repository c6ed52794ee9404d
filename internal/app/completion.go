package app

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/PvGGit/pv-retrieval/internal/k8s"
	applog "github.com/PvGGit/pv-retrieval/internal/log"
	"github.com/PvGGit/pv-retrieval/internal/report"
)

const (
	commandCompletion = "completion"
	flagBash          = "bash"
	flagZsh           = "zsh"

	generateCompletionFlag = "--generate-bash-completion"

	// completionCodeBash is adapted from https://github.com/urfave/cli/blob/master/autocomplete/bash_autocomplete
	completionCodeBash = `
#! /bin/bash
PROG=pv-retrieval
: ${PROG:=$(basename ${BASH_SOURCE})}

_cli_bash_autocomplete() {
  if [[ "${COMP_WORDS[0]}" != "source" ]]; then
    local cur opts base
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"
    if [[ "$cur" == "-"* ]]; then
      opts=$( ${COMP_WORDS[@]:0:$COMP_CWORD} ${cur} --generate-bash-completion )
    else
      opts=$( ${COMP_WORDS[@]:0:$COMP_CWORD} --generate-bash-completion )
    fi
    COMPREPLY=( $(compgen -W "${opts}" -- ${cur}) )
    return 0
  fi
}

complete -o bashdefault -o default -o nospace -F _cli_bash_autocomplete $PROG
unset PROG`

	// completionCodeZsh is adapted from https://github.com/urfave/cli/blob/master/autocomplete/zsh_autocomplete
	completionCodeZsh = `
PROG=pv-retrieval
#compdef $PROG

_cli_zsh_autocomplete() {

  local -a opts
  local cur
  cur=${words[-1]}
  if [[ "$cur" == "-"* ]]; then
    opts=("${(@f)$(_CLI_ZSH_AUTOCOMPLETE_HACK=1 ${words[@]:0:#words[@]-1} ${cur} --generate-bash-completion)}")
  else
    opts=("${(@f)$(_CLI_ZSH_AUTOCOMPLETE_HACK=1 ${words[@]:0:#words[@]-1} --generate-bash-completion)}")
  fi

  if [[ "${opts[1]}" != "" ]]; then
    _describe 'values' opts
  else
    _files
  fi

  return
}

compdef _cli_zsh_autocomplete $PROG
unset PROG`
)

func completionCommand() *cli.Command {
	return &cli.Command{
		Name:  commandCompletion,
		Usage: "Output shell completion code for the specified shell (bash or zsh)",
		Subcommands: []*cli.Command{
			{
				Name:  flagBash,
				Usage: "Output bash completion code",
				Action: func(c *cli.Context) error {
					_, err := fmt.Fprintln(c.App.Writer, completionCodeBash)

					return err
				},
			},
			{
				Name:  flagZsh,
				Usage: "Output zsh completion code",
				Action: func(c *cli.Context) error {
					_, err := fmt.Fprintln(c.App.Writer, completionCodeZsh)

					return err
				},
			},
		},
	}
}

// bashComplete completes the values of the flag preceding the cursor, and
// falls back to completing commands and flags.
func bashComplete(c *cli.Context) {
	values, ok := flagValueCompletions(c.Context, previousArg(os.Args),
		c.String(FlagKubeconfig), c.String(FlagSourceContext))
	if !ok {
		cli.DefaultAppComplete(c)

		return
	}

	for _, v := range values {
		_, _ = fmt.Fprintln(c.App.Writer, v)
	}
}

func flagValueCompletions(ctx context.Context, flag string, kubeconfigPath string,
	sourceContext string,
) ([]string, bool) {
	switch flag {
	case "--" + FlagSourceContext, "-s", "--" + FlagTargetContext, "-t":
		contexts, _ := k8s.GetContexts(kubeconfigPath)

		return contexts, true
	case "--" + FlagNamespace, "-n":
		namespaces, _ := k8s.GetNamespaces(ctx, kubeconfigPath, sourceContext)

		return namespaces, true
	case "--" + FlagRetrievePVCs, "-r":
		return report.Sides, true
	case "--" + FlagReportFormat:
		return report.Formats, true
	case "--" + FlagLogLevel, "-l":
		return applog.Levels, true
	case "--" + FlagLogFormat, "-f":
		return applog.Formats, true
	}

	return nil, false
}

func previousArg(args []string) string {
	n := len(args)
	if n >= 2 && args[n-1] == generateCompletionFlag {
		return args[n-2]
	}

	return ""
}
