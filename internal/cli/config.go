package cli

import (
	"github.com/spf13/cobra"

	"github.com/JanWillemSteur65/maximo-ai-agent/internal/config"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the merged effective configuration as TOML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return config.Write(cmd.OutOrStdout())
		},
	}
}
