package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "helpbot",
		Short: "Slack bot that searches a knowledge-base site",
	}
	root.AddCommand(serveCMD(), searchCMD(), warmCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
