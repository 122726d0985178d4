package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"engagement-engine/internal/models"
	"engagement-engine/internal/publisher"
	"engagement-engine/internal/repository"
)

var (
	strategyCreator   string
	strategyAll       bool
	strategyPublished bool
)

var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "Print persisted strategy profiles",
	Long: `Print persisted strategy profiles as JSON. A creator with no stored profile is
shown with the default profile. With --published the profile is read from the Redis
snapshot the server publishes for the content-generation system.

Examples:
  learnctl strategy --creator creator-42
  learnctl strategy --creator creator-42 --published
  learnctl strategy --all`,
	RunE: runStrategy,
}

func init() {
	strategyCmd.Flags().StringVar(&strategyCreator, "creator", "", "creator id")
	strategyCmd.Flags().BoolVar(&strategyAll, "all", false, "print every stored profile")
	strategyCmd.Flags().BoolVar(&strategyPublished, "published", false, "read the profile published to Redis instead of the database")
}

func runStrategy(cmd *cobra.Command, args []string) error {
	if strategyCreator == "" && !strategyAll {
		return errors.New("pass --creator or --all")
	}
	if strategyPublished {
		return runPublishedStrategy(cmd)
	}

	repos, err := repository.Open(cfg, logger)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	if repos == nil {
		return errors.New("persistence is disabled (database.type is none)")
	}
	defer repos.Close()

	ctx := cmd.Context()
	var out any
	if strategyAll {
		profiles, err := repos.Strategies.ListStrategies(ctx)
		if err != nil {
			return err
		}
		if profiles == nil {
			profiles = []models.StrategyProfile{}
		}
		out = profiles
	} else {
		profile, err := repos.Strategies.GetStrategy(ctx, strategyCreator)
		if err != nil {
			return err
		}
		if profile == nil {
			def := models.DefaultStrategyProfile(strategyCreator)
			profile = &def
		}
		out = profile
	}

	return printJSON(cmd, out)
}

func runPublishedStrategy(cmd *cobra.Command) error {
	if strategyCreator == "" {
		return errors.New("--published needs --creator")
	}

	ctx := cmd.Context()
	pub, err := publisher.Connect(ctx, publisher.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Channel:  cfg.Redis.Channel,
	}, logger)
	if err != nil {
		return err
	}
	if pub == nil {
		return errors.New("strategy publishing is disabled (redis.addr is empty)")
	}
	defer pub.Close()

	profile, err := pub.Strategy(ctx, strategyCreator)
	if err != nil {
		return err
	}
	if profile == nil {
		def := models.DefaultStrategyProfile(strategyCreator)
		profile = &def
	}
	return printJSON(cmd, profile)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
