package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the unraid-mcp version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("unraid-mcp version %s\n", GetVersion())
		},
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
