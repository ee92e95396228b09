package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/logrusorgru/aurora"
	"github.com/montplusa/filler-battle-rl/pkg/ai/actorcritic"
	"github.com/montplusa/filler-battle-rl/pkg/ai/mcts"
	"github.com/montplusa/filler-battle-rl/pkg/ai/random"
	"github.com/montplusa/filler-battle-rl/pkg/ai/trivial"
	"github.com/montplusa/filler-battle-rl/pkg/game"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// 指定されたディレクトリ内の同じプレフィックスを持つファイルの最大連番を取得する
func findMaxSequenceNumber(dir, prefix string) (int, error) {
	// ディレクトリが存在しない場合は0を返す
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, nil
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	// プレフィックス_NNNNN.json の形式にマッチする正規表現
	pattern := regexp.MustCompile(fmt.Sprintf(`^%s_(\d{5})\.json$`, regexp.QuoteMeta(prefix)))
	maxSeq := 0

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		matches := pattern.FindStringSubmatch(file.Name())
		if len(matches) == 2 {
			seq, err := strconv.Atoi(matches[1])
			if err != nil {
				continue
			}
			maxSeq = max(maxSeq, seq)
		}
	}

	return maxSeq, nil
}

type options struct {
	players      [2]string
	rows         int
	cols         int
	greedy       bool
	games        int
	workers      int
	outputDir    string
	outputPrefix string
	noOutput     bool
	render       bool
	seed         uint64
}

// newAI は "random" / "trivial" / "mcts[:N]" / チェックポイントのパスから AI を作る
// ワーカーごとに呼び出し、重みや乱数源を共有しない
func newAI(spec string, opt options, seed uint64) (game.AI, error) {
	switch spec {
	case "random":
		return random.New(seed), nil
	case "trivial":
		return trivial.New(), nil
	}
	if spec == "mcts" || strings.HasPrefix(spec, "mcts:") {
		n := 200
		if sims, ok := strings.CutPrefix(spec, "mcts:"); ok {
			var err error
			if n, err = strconv.Atoi(sims); err != nil {
				return nil, fmt.Errorf("invalid simulation count in %q", spec)
			}
		}
		return mcts.New(n, seed), nil
	}
	cfg := actorcritic.DefaultConfig("")
	cfg.Seed = seed
	agent, err := actorcritic.NewFromCheckpoint(cfg, spec)
	if err != nil {
		return nil, err
	}
	if agent.InputSize() != opt.rows*opt.cols || agent.Config().Actions != opt.cols {
		return nil, fmt.Errorf("%s was trained on a different board (inputs %d, actions %d)",
			spec, agent.InputSize(), agent.Config().Actions)
	}
	return actorcritic.NewPlayer(agent, opt.greedy), nil
}

// 対戦タスクの構造体
type battleTask struct {
	gameIndex int
	seqNum    int
}

// 対戦結果の構造体
type battleResult struct {
	gameIndex int
	result    game.BattleResult
	err       error
}

// ワーカー関数
func worker(id int, opt options, tasks <-chan battleTask, results chan<- battleResult, logger zerolog.Logger, wg *sync.WaitGroup) {
	defer wg.Done()

	var agents [2]game.AI
	for i := range agents {
		ai, err := newAI(opt.players[i], opt, opt.seed+uint64(id*2+i))
		if err != nil {
			// タスクを消費してエラーを返す
			for task := range tasks {
				results <- battleResult{gameIndex: task.gameIndex, err: err}
			}
			return
		}
		agents[i] = ai
	}

	for task := range tasks {
		gr := game.NewGameRunner(agents[0], agents[1], opt.rows, opt.cols).WithLogger(logger)
		result := gr.Run()

		if !opt.noOutput {
			// 結果をJSONに変換（インデントなし）
			jsonData, err := json.Marshal(result)
			if err != nil {
				logger.Error().Err(err).Msg("JSONの変換に失敗しました")
			} else {
				filename := filepath.Join(opt.outputDir, fmt.Sprintf("%s_%05d.json", opt.outputPrefix, task.seqNum))
				if err := os.WriteFile(filename, jsonData, 0644); err != nil {
					logger.Error().Err(err).Str("file", filename).Msg("ファイルの書き込みに失敗しました")
				}
			}
		}

		results <- battleResult{gameIndex: task.gameIndex, result: result}
		logger.Debug().Int("game", task.gameIndex).Int("worker", id).Str("id", result.ID).Msg("対戦が完了しました")
	}
}

func run(opt options, logger zerolog.Logger) error {
	// 出力プレフィックスが指定されていない場合はエラー
	if !opt.noOutput && opt.outputPrefix == "" {
		return fmt.Errorf("--output-prefix は必須です")
	}
	if opt.games <= 0 || opt.workers <= 0 {
		return fmt.Errorf("games と workers は 1 以上を指定してください")
	}

	// 先に一度読み込んでモデルの不整合を検出する
	for _, spec := range opt.players {
		if _, err := newAI(spec, opt, opt.seed); err != nil {
			return fmt.Errorf("failed to create AI %q: %w", spec, err)
		}
	}

	startSeq := 1
	if !opt.noOutput {
		if err := os.MkdirAll(opt.outputDir, 0755); err != nil {
			return fmt.Errorf("出力ディレクトリの作成に失敗しました: %w", err)
		}
		// 既存ファイルの最大連番を取得
		maxSeq, err := findMaxSequenceNumber(opt.outputDir, opt.outputPrefix)
		if err != nil {
			logger.Warn().Err(err).Msg("既存ファイルの確認中にエラーが発生しました")
		}
		startSeq = maxSeq + 1
		logger.Info().Msgf("連番 %05d から開始します", startSeq)
	}

	logger.Info().Msgf("%s vs %s を %d 回実行します（ワーカー数: %d）", opt.players[0], opt.players[1], opt.games, opt.workers)

	tasks := make(chan battleTask, opt.games)
	results := make(chan battleResult, opt.games)

	// ワーカープールの作成
	var wg sync.WaitGroup
	for i := 0; i < opt.workers; i++ {
		wg.Add(1)
		go worker(i, opt, tasks, results, logger, &wg)
	}

	// タスクの送信
	go func() {
		for i := 0; i < opt.games; i++ {
			tasks <- battleTask{gameIndex: i, seqNum: startSeq + i}
		}
		close(tasks)
	}()

	// 結果の収集
	var wins [2]int
	var draws int
	var fouls [2]int
	var last *game.BattleResult
	for i := 0; i < opt.games; i++ {
		r := <-results
		if r.err != nil {
			wg.Wait()
			return r.err
		}
		switch r.result.Winner {
		case game.Player1, game.Player2:
			wins[r.result.Winner-1]++
		default:
			draws++
		}
		fouls[0] += r.result.Fouls[0]
		fouls[1] += r.result.Fouls[1]
		last = &r.result
	}

	// すべてのワーカーの終了を待つ
	wg.Wait()

	if opt.render && last != nil {
		last.FinalState.Render(os.Stdout)
	}
	fmt.Println("すべての対戦が完了しました")
	fmt.Printf("勝利数: %s: %d, %s: %d, 引き分け: %d\n",
		aurora.Red(opt.players[0]), wins[0], aurora.Blue(opt.players[1]), wins[1], draws)
	fmt.Printf("反則: %d / %d\n", fouls[0], fouls[1])
	return nil
}

func main() {
	opt := options{}
	var logLevel string

	cmd := &cobra.Command{
		Use:          "battle-offline",
		Short:        "Play offline matches between trained models and baseline AIs",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := zerolog.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
			return run(opt, logger)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opt.players[0], "player-1", "random", "先手: random, trivial, mcts[:N] またはチェックポイントのパス")
	f.StringVar(&opt.players[1], "player-2", "trivial", "後手: random, trivial, mcts[:N] またはチェックポイントのパス")
	f.IntVar(&opt.rows, "rows", 7, "盤面の行数")
	f.IntVar(&opt.cols, "cols", 6, "盤面の列数")
	f.BoolVar(&opt.greedy, "greedy", false, "学習済みモデルは最も確率の高い列を選ぶ")
	f.IntVar(&opt.games, "games", 1, "実行する試合数")
	f.IntVar(&opt.workers, "workers", runtime.NumCPU(), "ワーカー数")
	f.StringVar(&opt.outputDir, "output", "output", "出力ディレクトリ名")
	f.StringVar(&opt.outputPrefix, "output-prefix", "", "出力ファイル名のプレフィックス")
	f.BoolVar(&opt.noOutput, "no-output", false, "出力しない")
	f.BoolVar(&opt.render, "render", false, "最後の対戦の終局盤面を表示する")
	f.Uint64Var(&opt.seed, "seed", 1, "乱数シード")
	f.StringVar(&logLevel, "log-level", "info", "ログレベル")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "エラー: %v\n", err)
		os.Exit(1)
	}
}
