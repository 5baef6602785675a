package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "crated",
		Short:         "Crate turns URLs into a tagged, loudness-normalized DJ library",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")

	root.AddCommand(newServeCommand(&configPath))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the crated version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("crated", version)
		},
	})

	return root
}
