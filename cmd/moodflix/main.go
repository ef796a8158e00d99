// moodflix 是心情电影推荐服务。
//
//	moodflix serve                  启动 HTTP 服务（默认）
//	moodflix rank -in cands.csv ... 对带 similarity_score 列的候选 CSV 排序并输出 JSON
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"

	"github.com/rushteam/moodflix/catalog"
	"github.com/rushteam/moodflix/config"
	_ "github.com/rushteam/moodflix/config/builders"
	"github.com/rushteam/moodflix/core"
	"github.com/rushteam/moodflix/feedback"
	"github.com/rushteam/moodflix/filter"
	"github.com/rushteam/moodflix/logging"
	"github.com/rushteam/moodflix/model"
	"github.com/rushteam/moodflix/pipeline"
	"github.com/rushteam/moodflix/pkg/conv"
	"github.com/rushteam/moodflix/rank"
	"github.com/rushteam/moodflix/server"
	"github.com/rushteam/moodflix/service"
	"github.com/rushteam/moodflix/snapshot"
	"github.com/rushteam/moodflix/store"
)

func main() {
	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = serve(args)
	case "rank":
		err = rankCmd(args, os.Stdout)
	default:
		err = fmt.Errorf("unknown command %q (serve, rank)", cmd)
	}
	if err != nil {
		logging.Error().Err(err).Str("command", cmd).Msg("moodflix failed")
		os.Exit(1)
	}
}

func serve(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	path := fs.String("config", "", "config file (default $"+config.PathEnvVar+" or moodflix.yaml)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		cfg *config.App
		err error
	)
	if *path != "" {
		cfg, err = config.LoadFile(*path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	logging.Init(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}

	kv, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer kv.Close()

	vectors := store.NewMemoryVectorService()
	defer vectors.Close()
	if cfg.Catalog.IndexOnStart {
		n, err := store.IndexItems(ctx, vectors, cfg.Catalog.Collection, cat.Items())
		if err != nil {
			return fmt.Errorf("index catalog: %w", err)
		}
		logging.Info().Int("indexed", n).Int("movies", cat.Len()).Msg("vector index ready")
	}

	client := model.NewOllamaClient(cfg.Ollama)

	var sink snapshot.Sink
	if cfg.Snapshot.Enabled {
		var inner snapshot.Sink = snapshot.NewCSVSink(cfg.Snapshot.Dir)
		if cfg.Snapshot.Sink == "store" {
			inner = snapshot.NewStoreSink(kv, cfg.Snapshot.TTL)
		}
		async := snapshot.NewAsync(cfg.Snapshot.Sink, inner, cfg.Snapshot.Buffer)
		defer async.Close()
		sink = async
	}

	watched := &filter.WatchedFilter{Store: kv, TimeWindow: cfg.Recommend.WatchedWindow}
	deps := config.Dependencies{
		Catalog:    cat,
		Store:      kv,
		Embedder:   model.NewOllamaEmbedder(client),
		Vectors:    vectors,
		Collection: cfg.Catalog.Collection,
		Snapshot:   sink,
		Watched:    watched,
	}
	pc, err := cfg.Recommend.Pipeline()
	if err != nil {
		return err
	}
	factory := deps.Factory()
	if err := config.ValidatePipelineConfig(pc, factory); err != nil {
		return err
	}
	p, err := pc.BuildPipeline(factory, pipeline.DefaultHooks()...)
	if err != nil {
		return err
	}

	var predictor model.LabelPredictor = model.NewOllamaPredictor(client)
	if cfg.Recommend.Predictor == "rule" {
		predictor = &model.RulePredictor{Genres: cat.Genres()}
	}
	rec := &service.Recommender{
		Predictor: predictor,
		Writer:    model.NewOllamaStoryWriter(client),
		Pipeline:  p,
		Watched:   watched,
		Options: service.Options{
			PredictTimeout: cfg.Recommend.PredictTimeout,
			Strict:         !cfg.Recommend.DegradeOnModel,
		},
	}
	srv := &server.Server{Recommender: rec, Feedback: feedback.NewCollector(kv), Catalog: cat}

	httpSrv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", cfg.Server.Addr).Str("pipeline", pc.Pipeline.Name).Msg("moodflix listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// rankCmd 读取候选 CSV（目录格式加 similarity_score 列），按给定预测排序后输出 JSON。
func rankCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("rank", flag.ContinueOnError)
	in := fs.String("in", "", "candidates CSV with a similarity_score column")
	genres := fs.String("genres", "", "predicted genres, comma separated, primary first")
	emotions := fs.String("emotions", "", "predicted emotions, comma separated")
	wSim := fs.Float64("w-similarity", 0.5, "similarity weight")
	wCat := fs.Float64("w-category", 0.3, "category weight")
	wEmo := fs.Float64("w-emotion", 0.2, "emotion weight")
	minScore := fs.Float64("min-score", rank.DefaultMinScore, "lower bound of the adaptive threshold")
	minResults := fs.Int("min-results", rank.DefaultMinResults, "keep the full set when fewer survive the threshold")
	snapDir := fs.String("snapshot-dir", "", "write pre/post threshold snapshots to this directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("rank: -in is required")
	}

	cat, err := catalog.Load(*in)
	if err != nil {
		return err
	}
	cands := make([]rank.Candidate, 0, cat.Len())
	for _, it := range cat.Items() {
		sim, ok := conv.ToFloat64(it.Meta[core.FeatureSimilarity])
		if !ok {
			sim = 0.5
		}
		cands = append(cands, rank.Candidate{Item: it, Similarity: sim})
	}

	pred := core.Prediction{}
	pred.Categories, _ = conv.ToStrings(*genres)
	pred.Emotions, _ = conv.ToStrings(*emotions)

	cfg := rank.Config{MinScore: minScore, MinResults: minResults}
	if *snapDir != "" {
		cfg.Snapshot = snapshot.NewCSVSink(*snapDir)
	}
	scored, err := rank.Rank(context.Background(), cands,
		pred, rank.Weights{Similarity: *wSim, Category: *wCat, Emotion: *wEmo}, cfg)
	if err != nil {
		return err
	}

	type row struct {
		ID       string             `json:"movie_id"`
		Name     string             `json:"movie_name"`
		Genres   string             `json:"genres"`
		Features map[string]float64 `json:"scores"`
		Final    float64            `json:"final_score"`
	}
	rows := make([]row, len(scored))
	for i, s := range scored {
		it := s.ToItem()
		rows[i] = row{ID: it.ID, Name: it.Name, Genres: it.Genres, Features: it.Features, Final: s.Final}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
