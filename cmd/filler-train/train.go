package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gosuri/uilive"
	"github.com/montplusa/filler-battle-rl/pkg/ai/actorcritic"
	"github.com/montplusa/filler-battle-rl/pkg/config"
	"github.com/montplusa/filler-battle-rl/pkg/env"
	"github.com/montplusa/filler-battle-rl/pkg/training"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newTrainCmd() *cobra.Command {
	var configFile string
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train two agents against each other",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			return runTrain(cmd.Context(), cfg)
		},
	}

	d := config.Default()
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "Config file (yaml, json or toml)")

	// Board
	f.Int("rows", d.Rows, "Board rows")
	f.Int("cols", d.Cols, "Board columns (= number of actions)")

	// Training loop
	f.Int("episodes", d.Episodes, "Number of training episodes")
	f.Int("window", d.Window, "Episodes in the rolling score average")
	f.Float64("initial-best", d.InitialBest, "Initial best rolling score")
	f.Int("max-steps", d.MaxSteps, "Step cap per episode (0 for unlimited)")
	f.Int("report-interval", d.ReportInterval, "Report progress every N episodes")
	f.Bool("evaluate", d.Evaluate, "Play without learning or improvement checkpoints")

	// Agents
	f.IntSlice("hidden-layers", d.HiddenLayers, "Hidden layer sizes of the shared trunk")
	f.Float64("alpha", d.Alpha, "Learning rate")
	f.Float64("gamma", d.Gamma, "Discount factor")
	f.Float64("clip-delta", d.ClipDelta, "Clip |TD error| used for the gradient (0 disables)")
	f.String("optimizer", d.Optimizer, "Optimizer (adam, sgd)")
	f.Uint64("seed", d.Seed, "Random seed")

	// Models
	f.String("model-1", d.Model1, "Name of player 1's model")
	f.String("model-2", d.Model2, "Name of player 2's model")
	f.String("checkpoint-dir", d.CheckpointDir, "Directory for checkpoints and final models")
	f.String("init-1", d.Init1, "Warm-start weights for player 1")
	f.String("init-2", d.Init2, "Warm-start weights for player 2")
	f.Bool("resume", d.Resume, "Load both agents from their own checkpoints")
	f.String("result", d.ResultPath, "Score history output (empty to skip)")

	// Logging
	f.String("log-level", d.LogLevel, "Log level (trace, debug, info, warn, error)")
	f.Bool("log-pretty", d.LogPretty, "Human readable console logs")

	return cmd
}

func runTrain(ctx context.Context, cfg *config.Config) error {
	logger, err := newLogger(cfg.LogLevel, cfg.LogPretty)
	if err != nil {
		return err
	}

	environment, err := env.New(cfg.Rows, cfg.Cols,
		env.WithRewards(cfg.Rewards),
		env.WithLogger(logger.With().Str("component", "env").Logger()))
	if err != nil {
		return err
	}

	var agents [2]*actorcritic.Agent
	for i := range agents {
		player := i + 1
		agent, err := actorcritic.New(cfg.Agent(player), environment.ObservationSize(), actorcritic.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("failed to create agent %d: %w", player, err)
		}
		if err := warmStart(agent, cfg, player); err != nil {
			return err
		}
		agents[i] = agent
	}

	writer := uilive.New()
	writer.Start()
	defer writer.Stop()

	session, err := training.NewSession(environment, agents[0], agents[1], cfg.Session(),
		training.WithLogger(logger),
		training.WithReport(writer.Bypass()),
		training.WithEpisodeCallback(func(s training.EpisodeSummary) {
			fmt.Fprintf(writer, "Episode %d/%d | Score: %.1f vs %.1f | Avg: %.1f vs %.1f | Steps: %d\n",
				s.Episode, cfg.Episodes, s.Scores[0], s.Scores[1], s.Averages[0], s.Averages[1], s.Steps)
		}))
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			logger.Warn().Msg("shutdown signal received, stopping after the current step")
			cancel()
		case <-ctx.Done():
		}
	}()

	res, runErr := session.Run(ctx, cfg.Episodes)
	if res != nil && cfg.ResultPath != "" {
		if err := res.Save(cfg.ResultPath); err != nil {
			logger.Error().Err(err).Msg("failed to save score history")
		} else {
			logger.Info().Str("path", cfg.ResultPath).Msg("score history saved")
		}
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

var errUntrainedEvaluation = errors.New("evaluation needs --resume or an --init-N weights file")

// warmStart loads initial weights: own checkpoint on resume, otherwise an
// explicit init file if one is configured. Evaluating fresh weights is refused.
func warmStart(agent *actorcritic.Agent, cfg *config.Config, player int) error {
	switch {
	case cfg.Resume:
		if err := agent.LoadCheckpoint(); err != nil {
			return fmt.Errorf("failed to resume %s: %w", agent.Name(), err)
		}
	case cfg.InitPath(player) != "":
		if err := agent.LoadFrom(cfg.InitPath(player)); err != nil {
			return fmt.Errorf("failed to load initial weights for %s: %w", agent.Name(), err)
		}
	case cfg.Evaluate:
		return fmt.Errorf("%w: %s has no weights to load", errUntrainedEvaluation, agent.Name())
	}
	return nil
}
