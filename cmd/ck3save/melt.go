package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/condor/ck3save/pkg/ck3melt"
)

func newMeltCmd(flags *globalFlags) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "melt <path>",
		Short: "Write the textual form of a save to stdout (or --out)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := flags.logger()

			dict, err := flags.resolver()
			if err != nil {
				return err
			}
			policy, err := flags.policy()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			log.Debug().Str("path", args[0]).Int("bytes", len(data)).Msg("read save")

			melter := ck3melt.NewMelter(dict)
			melter.OnFailedResolve = policy
			melter.Verbatim = flags.verbatim

			out, doc, err := melter.Melt(data)
			if err != nil {
				return err
			}
			for id := range doc.UnknownTokens {
				log.Warn().Uint16("token", id).Msg("unresolved token")
			}
			log.Debug().Int("bytes", len(out)).Msg("melted")

			w := os.Stdout
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			_, err = w.Write(out)
			return err
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "", "write melted output to this file instead of stdout")
	return cmd
}
