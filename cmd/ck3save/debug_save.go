package main

import (
	"os"

	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/condor/ck3save/pkg/ck3deserial"
	"github.com/condor/ck3save/pkg/ck3save"
)

// debugSave is the small fixed subset debug_save deserializes: the
// meta_data block every CK3 save carries at its top level.
type debugSave struct {
	MetaData struct {
		Version    string `ck3:"version"`
		PlayerName string `ck3:"player_name"`
	} `ck3:"meta_data"`
}

func newDebugSaveCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug_save <path>",
		Short: "Deserialize a fixed subset of a save and pretty-print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dict, err := flags.resolver()
			if err != nil {
				return err
			}

			env, err := ck3save.Open(args[0])
			if err != nil {
				return err
			}
			defer env.Close()

			dec, err := ck3deserial.NewDecoder(env, dict)
			if err != nil {
				return err
			}

			var save debugSave
			if err := dec.Decode(&save); err != nil {
				return err
			}

			tbl := table.New("field", "value").WithWriter(os.Stdout)
			tbl.AddRow("kind", env.Kind().String())
			tbl.AddRow("meta_data.version", save.MetaData.Version)
			tbl.AddRow("meta_data.player_name", save.MetaData.PlayerName)
			tbl.Print()
			return nil
		},
	}
	return cmd
}
