package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/msgstore/msgstore/internal/config"
)

func newValidateConfigCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate-config",
		Short: "Validate a configuration mirror file without starting the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Open(configPath)
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			mirror, err := cfg.MarshalMirror()
			if err != nil {
				return fmt.Errorf("rendering configuration: %w", err)
			}
			fmt.Println(mirror)
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "msgstore.json", "path to the configuration mirror file")
	return cmd
}
