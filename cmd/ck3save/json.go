package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/condor/ck3save/pkg/ck3deserial"
	"github.com/condor/ck3save/pkg/ck3save"
)

func newJSONCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "json <path>",
		Short: "Decode a save and print it as JSON (binary saves are decoded from their tokens, not melted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := flags.logger()

			dict, err := flags.resolver()
			if err != nil {
				return err
			}

			env, err := ck3save.Open(args[0])
			if err != nil {
				return err
			}
			defer env.Close()
			log.Debug().Str("kind", env.Kind().String()).Msg("classified save")

			dec, err := ck3deserial.NewDecoder(env, dict)
			if err != nil {
				return err
			}

			tree := map[string]any{}
			if err := dec.Decode(&tree); err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(tree); err != nil {
				return fmt.Errorf("writing json: %w", err)
			}
			return nil
		},
	}
	return cmd
}
