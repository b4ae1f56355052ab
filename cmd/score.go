package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/candidate-screener/internal/filtering"
	"github.com/spigell/candidate-screener/internal/metrics"
	"github.com/spigell/candidate-screener/internal/record"
	"github.com/spigell/candidate-screener/internal/ruleset"
	"github.com/spigell/candidate-screener/internal/scoring"
)

const (
	PromptYes              = "Yes"
	PromptNo               = "No"
	PromptBack             = "back"
	PromptReportByAction   = "Report by action"
	PromptReviewManual     = "Review manual decisions"
	PromptCandidatesToFile = "Dump candidates to file"
	PromptAppendToExclude  = "Append remaining candidates to exclude file"
	PromptGreet            = "Greet"
	PromptSkip             = "Skip"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Record greeted candidates as contacted?",
	Items: []string{PromptYes, PromptNo, PromptReportByAction, PromptReviewManual, PromptCandidatesToFile},
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a batch of candidate records",
	Run: func(cmd *cobra.Command, _ []string) {
		score(cmd)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringP("records", "r", "", "JSON file with an array of candidate records (required)")
	scoreCmd.Flags().String("rules", "", "score with a rule file instead of the stored rule set")
	scoreCmd.Flags().String("format", "", "format of the rule file or stored rule set: logical, unified or simple")
	scoreCmd.Flags().BoolP("ignore-contacted", "f", false, "do not exclude already contacted candidates")
	scoreCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation")
	scoreCmd.Flags().StringP("exclude-file", "e", "", "file with candidates to exclude. Default is unset.")
	scoreCmd.Flags().StringP("policy", "p", "", "aggregation policy: weighted or staged-keyword")

	scoreCmd.MarkFlagRequired("records")

	viper.BindPFlag("filters.exclude-file", scoreCmd.Flags().Lookup("exclude-file"))
	viper.BindPFlag("filters.ignore-contacted", scoreCmd.Flags().Lookup("ignore-contacted"))
	viper.BindPFlag("scoring.policy", scoreCmd.Flags().Lookup("policy"))
	viper.BindPFlag("rules.format", scoreCmd.Flags().Lookup("format"))
}

// session is the state of one score run.
type session struct {
	logger    *zap.Logger
	config    *Config
	repo      *ruleset.Repository
	records   *record.Records
	decisions scoring.Decisions
	contacted *record.ContactedRecords
	recorded  map[string]bool
}

func score(cmd *cobra.Command) {
	ctx := context.Background()
	logger := newLogger()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the screener", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	engine, err := scoring.New(config.Scoring, scoring.WithLogger(logger))
	if err != nil {
		logger.Fatal("creating the scoring engine", zap.Error(err),
			zap.String("hint", "set scoring.policy in the config, SCREENER_SCORING_POLICY or --policy"))
	}

	store, repo, err := openRepository(ctx, config.Storage, logger)
	if err != nil {
		logger.Fatal("opening storage", zap.Error(err))
	}
	defer store.Close()

	set, err := loadRuleset(ctx, cmd, engine, repo, config.Rules.Format)
	if err != nil {
		logger.Fatal("loading rules", zap.Error(err))
	}
	logger.Info("rules loaded", zap.Int("rules", len(set.Rules)), zap.String("mode", string(set.Mode)))

	path, _ := cmd.Flags().GetString("records")
	records, err := record.FromFile(path)
	if err != nil {
		logger.Fatal("reading candidate records", zap.Error(err))
	}

	if records.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no candidates found"))
		return
	}

	recorder := metrics.New()
	contacted := repo.Contacted(ctx)

	deps := filtering.Deps{
		Logger:    logger,
		Contacted: contacted,
		Engine:    engine,
		Ruleset:   set,
		Metrics:   recorder,
	}

	left, decisions, err := filtering.Run(ctx, &config.Filters, deps, filtering.Default(), records)
	if err != nil {
		logger.Fatal("filtering failed", zap.Error(err))
	}

	if err := recorder.WriteTextfile(config.Metrics.Textfile); err != nil {
		logger.Warn("writing metrics textfile", zap.Error(err))
	}

	if left.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no candidates left after filters"))
		return
	}

	s := &session{
		logger:    logger,
		config:    config,
		repo:      repo,
		records:   left,
		decisions: decisions,
		contacted: contacted,
		recorded:  make(map[string]bool),
	}

	autoApprove, _ := cmd.Flags().GetBool("auto-approve")
	action := PromptYes
	for {
		if !autoApprove {
			_, action, err = prompt.Run()
			if err != nil {
				logger.Fatal("exiting", zap.Error(err))
			}
		}

		logger.Info("current list of candidates", zap.Int("count", s.records.Len()))

		if err := s.handleAction(ctx, action); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func loadRuleset(ctx context.Context, cmd *cobra.Command, engine *scoring.Engine, repo *ruleset.Repository, format string) (*scoring.Ruleset, error) {
	f, err := ruleset.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	if file, _ := cmd.Flags().GetString("rules"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		set, err := ruleset.Compile(engine, f, data)
		if err != nil {
			return nil, fmt.Errorf("parse %s rules from %s: %w", f, file, err)
		}
		return set, nil
	}

	switch f {
	case ruleset.Logical:
		return engine.CompileLogical(repo.Logical(ctx)), nil
	case ruleset.Unified:
		return engine.Compile(repo.Unified(ctx)), nil
	default:
		return engine.CompileSimple(repo.Simple(ctx)), nil
	}
}

func (s *session) handleAction(ctx context.Context, action string) error {
	switch action {
	case PromptYes:
		if err := s.record(ctx, s.decisions.Select(scoring.ActionGreet)); err != nil {
			return err
		}
		return errExit
	case PromptNo:
		s.logger.Info("exiting", zap.String("reason", "got no from prompt"))
		return errExit
	case PromptReviewManual:
		return s.reviewManual(ctx)
	case PromptReportByAction:
		pretty, _ := json.MarshalIndent(s.decisions.ReportByAction(), "", "  ")
		s.logger.Info(string(pretty), zap.Int("candidates count", len(s.decisions)))
		return nil
	case PromptCandidatesToFile:
		filename, err := s.records.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		s.logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// reviewManual lets the operator settle every manual decision one by one.
func (s *session) reviewManual(ctx context.Context) error {
	for {
		pending := make(scoring.Decisions, 0)
		items := make([]string, 0)
		for _, d := range s.decisions.Select(scoring.ActionManual) {
			if s.recorded[d.CandidateID] {
				continue
			}
			name, position := describe(s.records.FindByID(d.CandidateID))
			label := fmt.Sprintf("%s %s / %s / score %d", d.CandidateID, name, position, d.Score)
			pending = append(pending, d)
			items = append(items, label)
		}

		excludeFile := s.config.Filters.ExcludeFile
		if excludeFile != "" && len(pending) != 0 {
			items = append(items, PromptAppendToExclude)
		}

		candidatePrompt := promptui.Select{
			Label: "Choose a candidate and press ENTER",
			Items: append(items, PromptBack),
		}

		_, selected, err := candidatePrompt.Run()
		if err != nil {
			return err
		}

		switch selected {
		case PromptBack:
			return nil
		case PromptAppendToExclude:
			if err := s.appendToExclude(excludeFile, pending); err != nil {
				return err
			}
		default:
			id := strings.Split(selected, " ")[0]
			var chosen scoring.Decisions
			for _, d := range pending {
				if d.CandidateID == id {
					chosen = append(chosen, d)
				}
			}
			if len(chosen) == 0 {
				return fmt.Errorf("there is no such candidate id %s", id)
			}

			decide := promptui.Select{Label: "Decision for " + id, Items: []string{PromptGreet, PromptSkip, PromptBack}}
			_, decision, err := decide.Run()
			if err != nil {
				return err
			}
			switch decision {
			case PromptGreet:
				chosen[0].Action = scoring.ActionGreet
			case PromptSkip:
				chosen[0].Action = scoring.ActionSkip
			default:
				continue
			}
			if err := s.record(ctx, chosen); err != nil {
				return err
			}
		}
	}
}

// record appends decisions to the contacted history and saves it.
func (s *session) record(ctx context.Context, decisions scoring.Decisions) error {
	now := time.Now().UTC()
	added := &record.ContactedRecords{}
	for _, d := range decisions {
		if s.recorded[d.CandidateID] {
			continue
		}
		name, position := describe(s.records.FindByID(d.CandidateID))
		added.Items = append(added.Items, &record.ContactedRecord{
			ID:          d.CandidateID,
			Name:        name,
			Position:    position,
			Action:      string(d.Action),
			ContactedAt: now,
		})
		s.recorded[d.CandidateID] = true
	}

	if len(added.Items) == 0 {
		s.logger.Info("nothing to record")
		return nil
	}

	s.contacted.Append(added)
	if err := s.repo.SaveContacted(ctx, s.contacted); err != nil {
		s.logger.Warn("contacted history was not saved", zap.Error(err))
		return nil
	}

	s.logger.Info("candidates recorded as contacted", zap.Strings("candidates", added.IDs()))
	return nil
}

func (s *session) appendToExclude(path string, decisions scoring.Decisions) error {
	excluded, err := record.ContactedFromFile(path)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, d := range decisions {
		excluded.Items = append(excluded.Items, &record.ContactedRecord{
			ID:          d.CandidateID,
			Action:      string(scoring.ActionSkip),
			ContactedAt: now,
		})
		s.recorded[d.CandidateID] = true
	}

	if err := excluded.ToFile(path); err != nil {
		return err
	}

	s.logger.Info("appended to exclude file", zap.String("filename", path))
	return nil
}

// describe returns a display name and position for a record, falling back to the
// raw values when the record does not decode into a profile.
func describe(rec record.Record) (string, string) {
	p, err := rec.Profile()
	if err != nil {
		return strings.Join(rec.Texts(record.FieldName), " "), strings.Join(rec.Texts(record.FieldPosition), ", ")
	}
	return p.Name, p.Position
}
