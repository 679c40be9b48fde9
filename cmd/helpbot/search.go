package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/safakhou/helpbot/config"
	"github.com/safakhou/helpbot/internal/kb"
)

// searchCMD exercises the search pipeline from a terminal, no Slack needed.
func searchCMD() *cobra.Command {
	var cfgPath string
	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the knowledge base and print results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")

			logger := log.New(cmd.ErrOrStderr(), "[SEARCH] ", log.LstdFlags)
			searcher, rdb, err := kb.BuildSearcher(cmd.Context(), cfg, logger, nil)
			if err != nil {
				return err
			}
			if rdb != nil {
				defer rdb.Close()
			}

			results, err := searcher.Search(cmd.Context(), query)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no articles matched %q\n", query)
				return nil
			}
			for i, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n   %s\n", i+1, r.Title, r.URL)
				if r.Snippet != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "   %s\n", r.Snippet)
				}
			}
			return nil
		},
	}
	search.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config or .)")
	return search
}
