package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/safakhou/helpbot/config"
	"github.com/safakhou/helpbot/internal/kb"
)

// warmCMD primes the article cache once and exits. Mostly useful with the
// redis backend, where the warmed entries outlive this process.
func warmCMD() *cobra.Command {
	var cfgPath string
	warm := &cobra.Command{
		Use:   "warm",
		Short: "Fetch the crawl window into the article cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			logger := log.New(cmd.ErrOrStderr(), "[WARM] ", log.LstdFlags)
			searcher, rdb, err := kb.BuildSearcher(cmd.Context(), cfg, logger, nil)
			if err != nil {
				return err
			}
			if rdb != nil {
				defer rdb.Close()
			}

			warmed, err := searcher.Warm(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "warmed %d articles\n", warmed)
			return nil
		},
	}
	warm.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config or .)")
	return warm
}
