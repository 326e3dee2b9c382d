// Command shortlink is a terminal front end for the shortlink API. Links it
// creates are remembered in a local history file.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/Yapcheekian/shortlink/client"
	"github.com/Yapcheekian/shortlink/models"
	"github.com/spf13/pflag"
)

const usage = `usage: shortlink [--api URL] [--history-file PATH] <command> [args]

commands:
  shorten <url> [--expires-in HOURS]   create a short link and add it to the history
  history [--search TERM]              print the local history
  watch [--search TERM]                print the history every second until interrupted
  delete <shortId> [--remote]          forget a link locally, --remote also deletes it on the server
  remote                               list every link stored on the server
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type app struct {
	api     *client.Client
	history *client.History
	out     io.Writer
	now     func() time.Time
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("shortlink", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	apiURL := fs.String("api", envOr("SHORTLINK_API", "http://localhost:5000/api"), "API root")
	historyFile := fs.String("history-file", defaultHistoryFile(), "local history file")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	history, err := client.OpenHistory(*historyFile)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	a := &app{
		api:     client.New(*apiURL, nil),
		history: history,
		out:     stdout,
		now:     time.Now,
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "shorten":
		err = a.shorten(ctx, rest)
	case "history":
		err = a.list(rest, false)
	case "watch":
		err = a.watch(ctx, rest)
	case "delete":
		err = a.delete(ctx, rest)
	case "remote":
		err = a.remote(ctx)
	default:
		fs.Usage()
		return 2
	}

	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func (a *app) shorten(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("shorten", pflag.ContinueOnError)
	expiresIn := fs.Float64("expires-in", 0, "hours until the link expires (server default when unset)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("shorten takes exactly one URL")
	}
	originalURL := fs.Arg(0)

	var hours *float64
	if fs.Changed("expires-in") {
		hours = expiresIn
	}

	res, err := a.api.Shorten(ctx, originalURL, hours)
	if err != nil {
		return err
	}
	if err := a.history.Add(client.NewEntry(originalURL, res, a.now())); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s\nexpires %s\n", res.ShortURL, res.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}

func (a *app) list(args []string, clear bool) error {
	fs := pflag.NewFlagSet("history", pflag.ContinueOnError)
	search := fs.String("search", "", "only show URLs containing this text")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a.history.Refresh(a.now())
	a.render(a.history.Filter(*search), clear)
	return nil
}

func (a *app) watch(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	search := fs.String("search", "", "only show URLs containing this text")
	interval := fs.Duration("interval", time.Second, "refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a.history.Refresh(a.now())
	a.render(a.history.Filter(*search), true)
	a.history.Watch(ctx, *interval, func([]client.Entry) {
		a.render(a.history.Filter(*search), true)
	})
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("delete", pflag.ContinueOnError)
	remote := fs.Bool("remote", false, "also delete the link on the server")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("delete takes exactly one short id")
	}
	shortID := fs.Arg(0)

	if *remote {
		if err := a.api.Delete(ctx, shortID); err != nil {
			return err
		}
	}

	removed, err := a.history.Remove(shortID)
	if err != nil {
		return err
	}
	if !removed && !*remote {
		return fmt.Errorf("%s is not in the local history", shortID)
	}
	fmt.Fprintf(a.out, "deleted %s\n", shortID)
	return nil
}

func (a *app) remote(ctx context.Context) error {
	links, err := a.api.List(ctx)
	if err != nil {
		return err
	}

	now := a.now()
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SHORT ID\tORIGINAL\tCLICKS\tCREATED\tSTATUS")
	for _, l := range links {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", l.ShortID, l.OriginalURL, l.Clicks,
			l.CreatedAt.Local().Format(time.DateTime), linkStatus(&l, now))
	}
	return w.Flush()
}

func (a *app) render(entries []client.Entry, clear bool) {
	if clear {
		fmt.Fprint(a.out, "\033[H\033[2J")
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "no links yet")
		return
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SHORT URL\tORIGINAL\tCREATED\tSTATUS")
	for _, e := range entries {
		status := "active"
		if e.IsExpired {
			status = "expired"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ShortURL, e.OriginalURL, e.CreatedAt().Local().Format(time.DateTime), status)
	}
	_ = w.Flush()
}

func linkStatus(l *models.Link, now time.Time) string {
	if l.IsExpired(now) {
		return "expired"
	}
	return "active"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultHistoryFile() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "shortlink", "history.json")
	}
	return "shortlink-history.json"
}
