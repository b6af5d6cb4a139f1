package main

import (
	"github.com/spf13/cobra"

	"vision-navigator/internal/infrastructure/config"
	"vision-navigator/internal/infrastructure/env"
)

// app carries state shared by every subcommand once PersistentPreRunE has run.
type app struct {
	cfgFile string
	cfg     config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "agent",
		Short:         "Vision-guided screen navigator.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			env.Load()
			cfg, err := config.Load(a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "YAML config file")

	root.AddCommand(newRunCmd(a), newConfigCmd(a), newAuditCmd(a))
	return root
}
