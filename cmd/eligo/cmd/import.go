package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eligoproject/eligo/internal/rulepack"
	"github.com/eligoproject/eligo/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import <pack.json>",
	Short: "Import a rule pack into the store",
	Long:  `Import validates and loads a rule pack: a JSON document carrying programs, rule definitions and optional seed profiles. The whole pack is rejected on the first invalid entry.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read rule pack: %w", err)
	}
	pack, err := rulepack.Parse(data)
	if err != nil {
		return err
	}

	database, queries, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	st, err := store.NewSQL(queries, logger)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	stats, err := rulepack.Apply(cmd.Context(), pack, st)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	logger.Info("rule pack imported",
		zap.String("file", args[0]),
		zap.String("pack_version", pack.Version),
		zap.Int("programs", stats.Programs),
		zap.Int("rules", stats.Rules),
		zap.Int("profiles", stats.Profiles))
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d programs, %d rules, %d profiles\n",
		stats.Programs, stats.Rules, stats.Profiles)
	return nil
}
