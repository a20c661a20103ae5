package main

import (
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	"RangeSSE/pkg/Database"
	"RangeSSE/pkg/SDa"
	"RangeSSE/pkg/config"
	"RangeSSE/pkg/monitor"
	"RangeSSE/pkg/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	app := cli.App{
		Name:  "rangesse",
		Usage: "range queries over an encrypted record index",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a YAML config file",
			},
			&cli.StringFlag{
				Name:  "data",
				Usage: "CSV dataset of id,keyword[,op] rows",
			},
			&cli.StringFlag{
				Name:    "mongo-uri",
				Usage:   "load the dataset from MongoDB instead of CSV",
				EnvVars: []string{"RANGESSE_MONGO_URI"},
			},
		},
		Commands: []*cli.Command{
			searchCmd,
			streamCmd,
			genCmd,
		},
	}
	return app.Run(args)
}

// env is everything a command needs once config and flags are resolved.
type env struct {
	cfg      *config.Config
	logger   *zap.Logger
	recorder *monitor.Recorder
	backend  *backend
	factory  utils.SchemeFactory
}

func setup(cctx *cli.Context) (*env, error) {
	cfg, err := config.Load(cctx.String("config"))
	if err != nil {
		return nil, err
	}
	if cctx.IsSet("data") {
		cfg.Dataset.CSV = cctx.String("data")
	}
	if cctx.IsSet("mongo-uri") {
		cfg.Dataset.MongoURI = cctx.String("mongo-uri")
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	var metrics *monitor.Metrics
	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		metrics = monitor.NewMetrics(reg)
		go func() {
			if err := http.ListenAndServe(cfg.Metrics.Addr, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})); err != nil {
				logger.Error("metrics listener", zap.String("addr", cfg.Metrics.Addr), zap.Error(err))
			}
		}()
	}
	recorder := monitor.NewRecorder(metrics)

	b, err := openBackend(cfg.Storage)
	if err != nil {
		return nil, err
	}
	factory, err := staticFactory(cfg.Scheme, b, logger, recorder)
	if err != nil {
		b.Close()
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, recorder: recorder, backend: b, factory: factory}, nil
}

func (e *env) Close() {
	if err := e.backend.Close(); err != nil {
		e.logger.Warn("close storage", zap.Error(err))
	}
	e.logger.Sync()
}

func parseQueries(args cli.Args) ([]utils.Range, error) {
	if args.Len() == 0 || args.Len()%2 != 0 {
		return nil, errors.New("expected one or more <start> <end> pairs")
	}
	var out []utils.Range
	for i := 0; i < args.Len(); i += 2 {
		start, err := strconv.ParseUint(args.Get(i), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("query start %q: %w", args.Get(i), err)
		}
		end, err := strconv.ParseUint(args.Get(i+1), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("query end %q: %w", args.Get(i+1), err)
		}
		r, err := utils.NewRange(start, end)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func printResults(s utils.Scheme, queries []utils.Range, raw bool) error {
	for _, q := range queries {
		search := s.Search
		if raw {
			search = s.SearchRaw
		}
		records, err := search(q)
		if err != nil {
			return fmt.Errorf("search %s: %w", q, err)
		}
		fmt.Printf("%s: %d records\n", q, len(records))
		for _, r := range records {
			fmt.Printf("  %d,%d,%s\n", r.ID, r.Keyword, r.Op)
		}
	}
	return nil
}

var searchCmd = &cli.Command{
	Name:      "search",
	Usage:     "build the configured static scheme over a dataset and run range queries",
	ArgsUsage: "<start> <end> [<start> <end> ...]",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "raw",
			Usage: "keep tombstones and deleted inserts in the results",
		},
	},
	Action: func(cctx *cli.Context) error {
		queries, err := parseQueries(cctx.Args())
		if err != nil {
			return err
		}
		e, err := setup(cctx)
		if err != nil {
			return err
		}
		defer e.Close()

		records, err := loadRecords(cctx.Context, e.cfg.Dataset)
		if err != nil {
			return err
		}

		start := time.Now()
		s := e.factory()
		defer s.Close()
		if err := s.Setup(e.cfg.Scheme.SecParam, utils.RecordDatabase(records)); err != nil {
			return err
		}
		e.logger.Info("index built",
			zap.String("scheme", e.cfg.Scheme.Name),
			zap.Int("records", len(records)),
			zap.Duration("took", time.Since(start)))

		if err := printResults(s, queries, cctx.Bool("raw")); err != nil {
			return err
		}
		stats := e.recorder.Stats()
		e.logger.Info("leakage",
			zap.Uint64("fetches", stats.FetchCount),
			zap.Uint64("entries", stats.EntryCount),
			zap.Float64("entries_per_fetch", stats.EntriesPerFetch()))
		return nil
	},
}

var streamCmd = &cli.Command{
	Name:      "stream",
	Usage:     "apply the dataset one record at a time through the update layer, then run range queries",
	ArgsUsage: "<start> <end> [<start> <end> ...]",
	Action: func(cctx *cli.Context) error {
		queries, err := parseQueries(cctx.Args())
		if err != nil {
			return err
		}
		e, err := setup(cctx)
		if err != nil {
			return err
		}
		defer e.Close()

		records, err := loadRecords(cctx.Context, e.cfg.Dataset)
		if err != nil {
			return err
		}

		s := SDa.New(SDa.Options{
			Factory:  e.factory,
			SecParam: e.cfg.Scheme.SecParam,
			Logger:   e.logger,
			Recorder: e.recorder,
		})
		defer s.Close()

		start := time.Now()
		for _, r := range records {
			if err := s.Update(r); err != nil {
				return err
			}
		}
		e.logger.Info("stream applied",
			zap.Int("records", len(records)),
			zap.Int("slots", len(s.Occupied())),
			zap.Duration("took", time.Since(start)))
		return printResults(s, queries, false)
	},
}

var genCmd = &cli.Command{
	Name:  "gen",
	Usage: "write a random CSV dataset",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "n", Value: 1000, Usage: "number of inserts"},
		&cli.IntFlag{Name: "keywords", Value: 100, Usage: "size of the keyword domain"},
		&cli.Float64Flag{Name: "deletes", Value: 0.1, Usage: "fraction of inserts later deleted"},
		&cli.Int64Flag{Name: "seed", Usage: "random seed, current time when unset"},
		&cli.StringFlag{Name: "out", Value: "-", Usage: "output path or - for stdout"},
	},
	Action: func(cctx *cli.Context) error {
		seed := cctx.Int64("seed")
		if !cctx.IsSet("seed") {
			seed = time.Now().UnixNano()
		}
		if cctx.Int("keywords") <= 0 {
			return errors.New("--keywords must be positive")
		}
		records := generate(rand.New(rand.NewSource(seed)), cctx.Int("n"), cctx.Int("keywords"), cctx.Float64("deletes"))

		out := os.Stdout
		if path := cctx.String("out"); path != "-" {
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("%s: could not open for writing: %w", path, err)
			}
			defer f.Close()
			out = f
		}
		return Database.WriteCSV(out, records)
	},
}

func generate(rng *rand.Rand, n, keywords int, deletes float64) []utils.Record {
	records := make([]utils.Record, 0, n)
	for id := 0; id < n; id++ {
		r := utils.NewInsert(uint64(id), uint64(rng.Intn(keywords)))
		records = append(records, r)
		if rng.Float64() < deletes {
			records = append(records, utils.NewDelete(r.ID, r.Keyword))
		}
	}
	return records
}
