package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/candidate-screener/internal/logger"
	"github.com/spigell/candidate-screener/internal/ruleset"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect, normalize and convert rule sets",
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize [file]",
	Short: "Normalize a rule file (or the stored rule set) and print it",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		save, _ := cmd.Flags().GetBool("save")
		return convertRules(cmd, args, format, format, save)
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert [file]",
	Short: "Convert a rule file (or the stored rule set) between formats",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		save, _ := cmd.Flags().GetBool("save")
		return convertRules(cmd, args, from, to, save)
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(normalizeCmd, convertCmd)

	normalizeCmd.Flags().String("format", string(ruleset.Simple), "rule format: logical, unified or simple")
	normalizeCmd.Flags().Bool("save", false, "store the result instead of printing it")

	convertCmd.Flags().String("from", string(ruleset.Simple), "source format")
	convertCmd.Flags().String("to", string(ruleset.Unified), "target format")
	convertCmd.Flags().Bool("save", false, "store the result instead of printing it")
}

// convertRules reads rules in one format from a file ("-" for stdin) or, without
// a file, from storage, and writes them in another.
func convertRules(cmd *cobra.Command, args []string, fromName, toName string, save bool) error {
	ctx := context.Background()
	log := newLogger()

	from, err := ruleset.ParseFormat(fromName)
	if err != nil {
		return err
	}
	to, err := ruleset.ParseFormat(toName)
	if err != nil {
		return err
	}
	log = logger.WithFields(log, zap.String(logger.FieldRuleSet, string(from)+"->"+string(to)))

	config, err := getConfig()
	if err != nil {
		return fmt.Errorf("getting a config: %w", err)
	}

	store, repo, err := openRepository(ctx, config.Storage, log)
	if err != nil {
		return err
	}
	defer store.Close()

	var data []byte
	if len(args) == 0 {
		data, err = storedRules(ctx, repo, from)
	} else {
		data, err = readInput(cmd, args[0])
	}
	if err != nil {
		return err
	}

	converted, err := ruleset.Convert(data, from, to)
	if err != nil {
		return fmt.Errorf("convert rules: %w", err)
	}

	if !save {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(converted))
		return err
	}

	if err := saveRules(ctx, repo, to, converted); err != nil {
		return err
	}
	log.Info("rules saved", zap.String("format", string(to)))
	return nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
