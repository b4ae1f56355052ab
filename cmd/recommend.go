package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/candidate-screener/internal/ai"
	"github.com/spigell/candidate-screener/internal/ai/gemini"
	"github.com/spigell/candidate-screener/internal/secrets"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Ask the AI provider for rule suggestions for a position",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return recommend(cmd)
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().String("position", "", "position to get rule suggestions for (required)")
	recommendCmd.Flags().Bool("apply", false, "merge the suggestion into the stored simple rules")
	recommendCmd.MarkFlagRequired("position")
}

func recommend(cmd *cobra.Command) error {
	ctx := context.Background()
	log := newLogger()

	config, err := getConfig()
	if err != nil {
		return fmt.Errorf("getting a config: %w", err)
	}

	recommender, err := newRecommender(ctx, config.AI, log)
	if err != nil {
		return err
	}

	store, repo, err := openRepository(ctx, config.Storage, log)
	if err != nil {
		return err
	}
	defer store.Close()

	position, _ := cmd.Flags().GetString("position")
	historyLength := 0
	if config.AI != nil {
		historyLength = config.AI.HistoryLength
	}
	history := ai.HistoryFromContacted(repo.Contacted(ctx), historyLength)

	suggestion, err := recommender.Recommend(ctx, position, history)
	if err != nil {
		return fmt.Errorf("get recommendation: %w", err)
	}

	pretty, _ := json.MarshalIndent(suggestion, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(pretty))

	if apply, _ := cmd.Flags().GetBool("apply"); !apply {
		return nil
	}

	updated := ai.Apply(repo.Simple(ctx), suggestion)
	if err := repo.SaveSimple(ctx, updated); err != nil {
		return fmt.Errorf("save simple rules: %w", err)
	}
	log.Info("suggestion applied to simple rules", zap.Int("rules", len(updated.Rules)))
	return nil
}

func newRecommender(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Recommender, error) {
	if cfg == nil {
		cfg = &AIConfig{}
	}
	if cfg.Gemini == nil {
		cfg.Gemini = &GeminiConfig{}
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != gemini.Provider {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model)
	if err != nil {
		return nil, err
	}

	return gemini.NewRecommender(generator, log, cfg.Instructions, cfg.Gemini.MaxLogLength), nil
}
