package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/notepid/lexcircle/internal/api"
	"github.com/notepid/lexcircle/internal/app"
)

var errAccountRequired = errors.New("ACCOUNT_ID argument required")

func main() {
	if err := run(); err != nil {
		zap.Must(zap.NewProduction()).Fatal("lexcircle failed", zap.Error(err))
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newCommand(os.Stdout).Run(ctx, os.Args)
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "lexcircle",
		Usage: "Legal community backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "Path to configuration file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and the redaction reconciler",
				Action: withApp(serve),
			},
			{
				Name:      "redact",
				Usage:     "Delete an account and rewrite its content to the sentinel account",
				ArgsUsage: "ACCOUNT_ID",
				Action: withApp(func(ctx context.Context, c *cli.Command, a *app.App) error {
					if c.Args().Len() != 1 {
						return errAccountRequired
					}
					report, err := a.Redaction.RedactAccount(ctx, c.Args().First())
					if qerr := a.Jobs.Record(ctx, report, err); qerr != nil {
						return errors.Join(err, qerr)
					}
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Redacted %s: %d messages, %d comments, %d posts rewritten, %d remaining\n",
						report.AccountID, report.MessagesRewritten, report.CommentsRewritten,
						report.PostsRewritten, report.Remaining)
					return nil
				}),
			},
			{
				Name:  "reconcile",
				Usage: "Run one pass over queued and unfinished redactions",
				Action: withApp(func(ctx context.Context, _ *cli.Command, a *app.App) error {
					summary, err := a.Reconciler.RunOnce(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Reconciled %d accounts: %d completed, %d failed\n",
						summary.Accounts, summary.Completed, summary.Failed)
					return nil
				}),
			},
			{
				Name:  "repair-roles",
				Usage: "Rewrite stored role strings into canonical form",
				Action: withApp(func(ctx context.Context, _ *cli.Command, a *app.App) error {
					n, err := a.Accounts.RepairRoles(ctx)
					if err != nil {
						return err
					}
					a.Logger.Info("Roles repaired", zap.Int("accounts", n))
					return nil
				}),
			},
		},
	}
}

type appAction func(ctx context.Context, c *cli.Command, a *app.App) error

func withApp(fn appAction) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		a, cleanup, err := app.New(c.String("config"))
		if err != nil {
			return err
		}
		defer cleanup()
		return fn(ctx, c, a)
	}
}

func serve(ctx context.Context, _ *cli.Command, a *app.App) error {
	cfg := a.Config
	if _, err := a.Accounts.EnsureSentinel(ctx); err != nil {
		return err
	}

	handler := api.New(api.Deps{
		Accounts:     a.Accounts,
		Groups:       a.Groups,
		Messages:     a.Messages,
		Posts:        a.Posts,
		Conversation: a.Conversation,
		Jobs:         a.Jobs,
		Registry:     a.Registry,
		Logger:       a.Logger,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.ListenAndServe(ctx, cfg.Server.HTTPAddr, handler,
			cfg.Server.ReadHeaderTimeout, cfg.Server.ShutdownTimeout, a.Logger)
	})
	g.Go(func() error {
		return a.Reconciler.Run(ctx)
	})

	err := g.Wait()
	a.Logger.Info("Shutdown complete")
	return err
}
