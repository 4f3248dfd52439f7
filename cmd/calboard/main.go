package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"calboard/internal/calendar"
	"calboard/internal/config"
	"calboard/internal/ics"
	appLog "calboard/internal/log"
	"calboard/internal/web"
)

const version = "0.1.0"

type flagConfig struct {
	configPath string
	listen     string
	debug      bool
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		os.Exit(hashPassword(os.Args[2:]))
	}

	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}
	appLog.Info("calboard starting", "version", version)

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if !flags.debug {
		appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	}

	loc := conf.Location()
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", loc.String(),
		"today_cron", conf.TodayCron,
		"categories", len(conf.Categories),
		"import_count", len(conf.Import),
		"error_clear_delay", conf.ErrorClearDelay,
		"save_delay", conf.SaveDelay,
	)

	state := calendar.NewState(calendar.Options{
		Clock:           calendar.SystemClock{Location: loc},
		Categories:      conf.SeedCategories(),
		DefaultCategory: conf.DefaultCategory,
		ErrorClearDelay: conf.ErrorClearDelay,
		SaveDelay:       conf.SaveDelay,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	importFeeds(ctx, conf, state)

	if conf.TodayCron != "" {
		c := cron.New(cron.WithLocation(loc))
		if _, err := c.AddFunc(conf.TodayCron, func() {
			state.Today()
			appLog.Info("board re-anchored on today", "anchor", state.Anchor())
		}); err != nil {
			appLog.Error("invalid today_cron; rollover disabled", err, "spec", conf.TodayCron)
		} else {
			c.Start()
			defer func() { <-c.Stop().Done() }()
		}
	}

	srv := web.NewServer(conf, state)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLog.Error("http server failed", err)
		os.Exit(1)
	}
	appLog.Info("calboard exiting")
}

// importFeeds loads the configured ICS feeds once at startup. Feed
// failures are logged and never stop the board from starting.
func importFeeds(ctx context.Context, conf *config.Config, state *calendar.State) {
	if len(conf.Import) == 0 {
		return
	}

	sources := make([]ics.Source, 0, len(conf.Import))
	for _, imp := range conf.Import {
		id := imp.ID
		if id == "" {
			id = imp.URL
		}
		category := imp.Category
		if category == "" {
			category = conf.DefaultCategory
		}
		sources = append(sources, ics.Source{ID: id, URL: imp.URL, Category: category})
	}

	fetcher := ics.NewFetcher(conf.CacheDir, nil)
	results, err := fetcher.FetchAll(ctx, sources)
	if err != nil {
		appLog.Error("one or more ICS feeds failed", err)
	}

	for _, res := range results {
		events, err := ics.Parse(res.Source, res.Body, conf.Location())
		if err != nil {
			continue
		}
		added, skipped := state.Import(web.Entries(events, res.Source.Category))
		appLog.Info("ics feed imported",
			"id", res.Source.ID,
			"from_cache", res.FromCache,
			"added", added,
			"skipped", skipped,
		)
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/calboard/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
