package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/condor/ck3save/pkg/ck3melt"
	"github.com/condor/ck3save/pkg/ck3tokens"
)

// globalFlags are the persistent flags shared by every subcommand,
// threaded through as a single small options struct rather than a
// pile of individually-passed parameters.
type globalFlags struct {
	configPath      string
	dictPath        string
	dictEnv         string
	onFailedResolve string
	verbatim        bool
	verbose         bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "ck3save",
		Short:         "Read, melt, and inspect Crusader Kings III save files",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "optional YAML config file with shared defaults")
	root.PersistentFlags().StringVar(&flags.dictPath, "dict", "", "token dictionary file (id name per line)")
	root.PersistentFlags().StringVar(&flags.dictEnv, "dict-env", "", "environment variable naming the token dictionary path")
	root.PersistentFlags().StringVar(&flags.onFailedResolve, "on-failed-resolve", "stringify", "error|ignore|stringify")
	root.PersistentFlags().BoolVar(&flags.verbatim, "verbatim", false, "do not suppress ironman keys when melting")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable structured diagnostics on stderr")

	root.AddCommand(newMeltCmd(flags))
	root.AddCommand(newJSONCmd(flags))
	root.AddCommand(newDebugSaveCmd(flags))

	return root
}

// logger builds the CLI's zerolog diagnostics sink. The core packages
// never log; only this command layer does.
func (f *globalFlags) logger() zerolog.Logger {
	level := zerolog.InfoLevel
	if f.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(level).
		With().Timestamp().Logger()
}

// resolver builds the token Resolver for this invocation, applying
// --config defaults under explicit flags.
func (f *globalFlags) resolver() (ck3tokens.Resolver, error) {
	cfg, err := loadFileConfig(f.configPath)
	if err != nil {
		return nil, err
	}

	dictPath := f.dictPath
	if dictPath == "" {
		dictPath = cfg.DictPath
	}
	dictEnv := f.dictEnv
	if dictEnv == "" {
		dictEnv = cfg.DictEnv
	}

	switch {
	case dictPath != "":
		return ck3tokens.LoadFile(dictPath)
	case dictEnv != "":
		return ck3tokens.LoadFromEnv(dictEnv)
	default:
		return ck3tokens.Map{}, nil
	}
}

// policy resolves the effective on-failed-resolve setting, applying
// --config as the fallback.
func (f *globalFlags) policy() (ck3melt.Policy, error) {
	cfg, err := loadFileConfig(f.configPath)
	if err != nil {
		return 0, err
	}
	val := f.onFailedResolve
	if val == "stringify" && cfg.OnFailedResolve != "" {
		val = cfg.OnFailedResolve
	}
	switch val {
	case "error":
		return ck3melt.PolicyError, nil
	case "ignore":
		return ck3melt.PolicyIgnore, nil
	case "stringify", "":
		return ck3melt.PolicyStringify, nil
	default:
		return 0, errUnknownPolicy(val)
	}
}

type errUnknownPolicy string

func (e errUnknownPolicy) Error() string {
	return "unknown --on-failed-resolve value: " + string(e)
}
