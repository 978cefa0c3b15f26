package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/eligoproject/eligo/internal/eligibility"
	"github.com/eligoproject/eligo/internal/store"
	"github.com/eligoproject/eligo/internal/types"
)

var (
	cacheProfile string
	cacheClear   bool
	cacheJSON    bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "List or clear cached evaluation results for a profile",
	RunE:  runCache,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.Flags().StringVar(&cacheProfile, "profile", "", "profile id (required)")
	cacheCmd.Flags().BoolVar(&cacheClear, "clear", false, "remove the profile's cached results")
	cacheCmd.Flags().BoolVar(&cacheJSON, "json", false, "print raw JSON entries")
	_ = cacheCmd.MarkFlagRequired("profile")
}

func runCache(cmd *cobra.Command, args []string) error {
	database, queries, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	st, err := store.NewSQL(queries, logger)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	engine, err := eligibility.NewEngine(st, cfg.Engine, logger)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	ctx := cmd.Context()

	if cacheClear {
		removed, err := engine.ClearCachedResults(ctx, types.ProfileID(cacheProfile))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached result(s)\n", removed)
		return nil
	}

	entries, err := engine.GetCachedResults(ctx, types.ProfileID(cacheProfile))
	if err != nil {
		return err
	}
	if cacheJSON {
		return printJSON(cmd, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no cached results")
		return nil
	}
	for i := range entries {
		entry := &entries[i]
		printResult(cmd, &entry.EvaluationResult)
		fmt.Fprintf(cmd.OutOrStdout(), "            evaluated %s, expires %s\n",
			entry.EvaluatedAt.Format(time.RFC3339), entry.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}
