package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dtnitsch/downapk/internal/download"
	"github.com/dtnitsch/downapk/internal/history"
	"github.com/dtnitsch/downapk/internal/search"
	"github.com/dtnitsch/downapk/models"
	"github.com/dtnitsch/downapk/pkg/transfer"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	// .env is optional
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func env(name string) []string {
	return []string{"DOWNAPK_" + name}
}

func globalFlags() []cli.Flag {
	defaults := models.DefaultClientConfig()
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Value: models.DefaultConfigFile, Usage: "YAML config file (ignored when missing)", EnvVars: env("CONFIG")},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only log errors, no progress bars", EnvVars: env("QUIET")},
		&cli.BoolFlag{Name: "verbose", Usage: "debug logging, including skipped variant rows", EnvVars: env("VERBOSE")},
		&cli.StringFlag{Name: "base-url", Value: defaults.BaseURL, Usage: "site root", EnvVars: env("BASE_URL")},
		&cli.StringFlag{Name: "user-agent", Value: defaults.Headers.UserAgent, Usage: "User-Agent header", EnvVars: env("USER_AGENT")},
		&cli.StringFlag{Name: "proxy", Usage: "SOCKS5 proxy address (host:port)", EnvVars: env("PROXY")},
		&cli.StringFlag{Name: "cookie-file", Usage: "persist session cookies to this file", EnvVars: env("COOKIE_FILE")},
		&cli.Float64Flag{Name: "rate", Value: defaults.RateLimit, Usage: "max requests per second (0 = unlimited)", EnvVars: env("RATE")},
		&cli.DurationFlag{Name: "timeout", Value: defaults.Timeout, Usage: "per-request timeout", EnvVars: env("TIMEOUT")},
		&cli.DurationFlag{Name: "max-age", Value: defaults.MaxAge, Usage: "page cache TTL (0 disables the cache)", EnvVars: env("MAX_AGE")},
		&cli.StringFlag{Name: "cache-dir", Value: defaults.CacheDir, Usage: "page cache directory", EnvVars: env("CACHE_DIR")},
		&cli.StringFlag{Name: "db", Usage: "history database path (default: next to the binary)", EnvVars: env("DB")},
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "text", Usage: "output format: text, json or yaml"}
}

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "APK or BUNDLE (default: both)"},
		&cli.StringFlag{Name: "arch", Aliases: []string{"a"}, Value: "all", Usage: "arm64-v8a, armeabi-v7a, x86, x86_64, universal or all"},
		&cli.StringFlag{Name: "dpi", Value: "all", Usage: "screen DPI, e.g. nodpi or 120-640dpi, or all"},
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "downapk",
		Usage: "search APKMirror and download APK / bundle variants",
		Flags: globalFlags(),
		Commands: []*cli.Command{
			{
				Name:  "search",
				Usage: "list releases matching a package id or name",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "query", Aliases: []string{"Q"}, Usage: "package id or search term", Required: true},
					&cli.StringFlag{Name: "version", Aliases: []string{"v"}, Value: "latest", Usage: "exact version, or latest for all releases"},
					formatFlag(),
				},
				Action: search.SearchAction,
			},
			{
				Name:  "variants",
				Usage: "resolve the download links of a release's variants",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "query", Aliases: []string{"Q"}, Usage: "package id, search term or release page URL"},
					&cli.StringFlag{Name: "release-url", Usage: "release page URL (skips the search)"},
					&cli.StringFlag{Name: "version", Aliases: []string{"v"}, Value: "latest", Usage: "exact version, or latest"},
					&cli.IntFlag{Name: "search-index", Aliases: []string{"s"}, Usage: "1-based search result to use (prompted when omitted)"},
					&cli.IntFlag{Name: "workers", Value: models.DefaultClientConfig().WorkerCount, Usage: "concurrent link resolutions", EnvVars: env("WORKERS")},
					formatFlag(),
				}, filterFlags()...),
				Action: search.VariantsAction,
			},
			{
				Name:  "download",
				Usage: "download variants of a package",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "package-id", Aliases: []string{"p"}, Usage: "Android package id", Required: true},
					&cli.StringFlag{Name: "release-url", Usage: "release page URL (skips the search)"},
					&cli.StringFlag{Name: "version", Aliases: []string{"v"}, Value: "latest", Usage: "exact version, or latest"},
					&cli.IntFlag{Name: "search-index", Aliases: []string{"s"}, Usage: "1-based search result to download (prompted when omitted)"},
					&cli.StringFlag{Name: "download-option", Aliases: []string{"d"}, Usage: "one or all (prompted when omitted)"},
					&cli.IntFlag{Name: "download-index", Aliases: []string{"i"}, Usage: "1-based variant to download with --download-option one"},
					&cli.StringFlag{Name: "output-dir", Aliases: []string{"o"}, Value: transfer.DefaultOutputDir, Usage: "directory for downloaded files", EnvVars: env("OUTPUT_DIR")},
					&cli.IntFlag{Name: "workers", Value: models.DefaultClientConfig().WorkerCount, Usage: "concurrent resolutions and downloads", EnvVars: env("WORKERS")},
					formatFlag(),
				}, filterFlags()...),
				Action: download.DownloadAction,
			},
			{
				Name:  "history",
				Usage: "show recorded downloads or searches",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "max rows (0 = all)"},
					&cli.StringFlag{Name: "package-id", Aliases: []string{"p"}, Usage: "only this package"},
					&cli.BoolFlag{Name: "searches", Usage: "list recorded searches instead of downloads"},
					formatFlag(),
				},
				Action: history.HistoryAction,
			},
		},
	}
}
