// Command rssbot tracks RSS/Atom feeds on behalf of subscriber groups and
// notifies them about new entries.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/Shadow3301/rssbot/internal/application/usecase"
	"github.com/Shadow3301/rssbot/internal/config"
	feedfetch "github.com/Shadow3301/rssbot/internal/infrastructure/feed"
	"github.com/Shadow3301/rssbot/internal/infrastructure/notify"
	"github.com/Shadow3301/rssbot/internal/infrastructure/store"
)

// CLI is the kong command tree.
type CLI struct {
	Config string `help:"Path to the config file." type:"path"`

	Serve       ServeCmd       `cmd:"" help:"Run the polling daemon."`
	Add         AddCmd         `cmd:"" help:"Subscribe a destination to a feed."`
	Remove      RemoveCmd      `cmd:"" help:"Unsubscribe a destination from a feed."`
	List        ListCmd        `cmd:"" help:"List a destination's subscriptions."`
	SetInterval SetIntervalCmd `cmd:"" name:"set-interval" help:"Override a feed's poll interval (privileged)."`
	Refresh     RefreshCmd     `cmd:"" help:"Force an immediate full sweep (privileged)."`
}

// appEnv carries the process-wide collaborators into the commands; nothing
// here is a global.
type appEnv struct {
	cfg *config.Config
	log *slog.Logger
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("rssbot"),
		kong.Description("Tracks RSS/Atom feeds and notifies subscriber groups about new entries."),
		kong.UsageOnError(),
	)

	cfg, err := config.LoadConfig(cli.Config)
	kctx.FatalIfErrorf(err)

	app := &appEnv{cfg: cfg, log: newLogger(cfg.LogLevel)}
	if err := kctx.Run(app); err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+usecase.UserMessage(err))
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// openStore opens the subscription store; failure here is fatal to the
// invoking command.
func (app *appEnv) openStore() (*store.Store, error) {
	return store.Open(app.cfg.StorePath, app.log)
}

func (app *appEnv) transport() usecase.Transport {
	if app.cfg.WebhookURL != "" {
		return notify.NewWebhookTransport(app.cfg.WebhookURL)
	}
	return &notify.WriterTransport{W: os.Stdout}
}

// ServeCmd runs the background poller until interrupted.
type ServeCmd struct{}

func (c *ServeCmd) Run(app *appEnv) error {
	st, err := app.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	updater := usecase.NewUpdater(st, feedfetch.NewFetcher(), app.transport(), app.log)
	if app.cfg.PollTick > 0 {
		updater.Tick = time.Duration(app.cfg.PollTick) * time.Second
	}
	if app.cfg.NotifyCap > 0 {
		updater.Limit = app.cfg.NotifyCap
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app.log.Info("rssbot serving",
		slog.String("store", app.cfg.StorePath),
		slog.Int("tick_seconds", app.cfg.PollTick),
	)
	updater.Run(ctx)
	return nil
}

// AddCmd subscribes a destination to a feed URL.
type AddCmd struct {
	URL        string `arg:"" help:"Feed URL."`
	Dest       int64  `required:"" help:"Destination (subscriber group) id."`
	NoValidate bool   `help:"Skip structural feed validation."`
}

func (c *AddCmd) Run(app *appEnv) error {
	st, err := app.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	svc := usecase.NewSubscriptionService(st, feedfetch.NewFetcher())
	sub, err := svc.Add(context.Background(), c.URL, c.Dest, c.NoValidate)
	if err != nil {
		return err
	}
	fmt.Printf("Done!\n%s\nttl: %ds\n", sub.Title, sub.Interval)
	return nil
}

// RemoveCmd unsubscribes a destination from a feed URL.
type RemoveCmd struct {
	URL  string `arg:"" help:"Feed URL."`
	Dest int64  `required:"" help:"Destination (subscriber group) id."`
}

func (c *RemoveCmd) Run(app *appEnv) error {
	st, err := app.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	svc := usecase.NewSubscriptionService(st, feedfetch.NewFetcher())
	if err := svc.Remove(context.Background(), c.URL, c.Dest); err != nil {
		return err
	}
	fmt.Printf("Removed: %s\n", c.URL)
	return nil
}

// ListCmd prints a destination's subscriptions, paged.
type ListCmd struct {
	Dest int64 `required:"" help:"Destination (subscriber group) id."`
}

func (c *ListCmd) Run(app *appEnv) error {
	st, err := app.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	svc := usecase.NewSubscriptionService(st, feedfetch.NewFetcher())
	infos, err := svc.List(context.Background(), c.Dest)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("no subscriptions")
		return nil
	}
	lines := make([]string, 0, len(infos))
	for _, info := range infos {
		lines = append(lines, fmt.Sprintf("%s(%s). LU: %s. TTL: %ds. NEXT: %ds.",
			info.Title,
			info.URL,
			time.Unix(info.LastUpdate, 0).Format("2006-01-02 15:04:05"),
			info.Interval,
			info.NextIn,
		))
	}
	for _, page := range paginate(lines, app.cfg.PageSize) {
		fmt.Println(strings.Join(page, "\n\n"))
	}
	return nil
}

// SetIntervalCmd overrides the poll interval of a subscribed feed.
type SetIntervalCmd struct {
	URL     string `arg:"" help:"Feed URL."`
	Seconds int64  `arg:"" help:"New poll interval in seconds."`
	Dest    int64  `required:"" help:"Destination (subscriber group) id."`
}

func (c *SetIntervalCmd) Run(app *appEnv) error {
	st, err := app.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	svc := usecase.NewSubscriptionService(st, feedfetch.NewFetcher())
	if err := svc.SetInterval(context.Background(), c.URL, c.Dest, c.Seconds); err != nil {
		return err
	}
	fmt.Printf("(%s) poll interval set to %ds\n", c.URL, c.Seconds)
	return nil
}

// RefreshCmd performs one forced sweep over every subscription, bypassing
// the due checks.
type RefreshCmd struct{}

func (c *RefreshCmd) Run(app *appEnv) error {
	st, err := app.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	updater := usecase.NewUpdater(st, feedfetch.NewFetcher(), app.transport(), app.log)
	if app.cfg.NotifyCap > 0 {
		updater.Limit = app.cfg.NotifyCap
	}
	stats := updater.SweepAll(context.Background(), true)
	fmt.Printf("Swept %d subscriptions: %d updated, %d failed, %d notifications\n",
		stats.Checked, stats.Updated, stats.Failed, stats.Notified)
	return nil
}

// paginate chunks lines into fixed-size pages.
func paginate(lines []string, pageSize int) [][]string {
	if pageSize <= 0 {
		return [][]string{lines}
	}
	var pages [][]string
	for start := 0; start < len(lines); start += pageSize {
		end := start + pageSize
		if end > len(lines) {
			end = len(lines)
		}
		pages = append(pages, lines[start:end])
	}
	return pages
}
