package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/HanTheDev/content-automation-api/internal/admin"
)

func keysCmd() *cli.Command {
	return &cli.Command{
		Name:  "keys",
		Usage: "Manage API keys",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Issue an active key and print its value once",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "value",
						Usage: "key value to register (random when empty)",
					},
				},
				Action: withKeys(func(ctx context.Context, cmd *cli.Command, keys *admin.KeyService) error {
					key, err := keys.Issue(ctx, cmd.String("value"))
					if err != nil {
						return err
					}
					fmt.Fprintf(os.Stdout, "id:    %s\nvalue: %s\n", key.ID, key.KeyValue)
					return nil
				}),
			},
			{
				Name:      "disable",
				Usage:     "Deactivate a key by id",
				ArgsUsage: "<id>",
				Action: withKeys(func(ctx context.Context, cmd *cli.Command, keys *admin.KeyService) error {
					id, err := requireArg(cmd)
					if err != nil {
						return err
					}
					return keys.Disable(ctx, id)
				}),
			},
			{
				Name:      "enable",
				Usage:     "Reactivate a key by id",
				ArgsUsage: "<id>",
				Action: withKeys(func(ctx context.Context, cmd *cli.Command, keys *admin.KeyService) error {
					id, err := requireArg(cmd)
					if err != nil {
						return err
					}
					return keys.Enable(ctx, id)
				}),
			},
			{
				Name:  "list",
				Usage: "List keys without their values",
				Action: withKeys(func(ctx context.Context, cmd *cli.Command, keys *admin.KeyService) error {
					list, err := keys.List(ctx)
					if err != nil {
						return err
					}
					tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tNAME\tACTIVE\tCREATED")
					for _, k := range list {
						fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", k.ID, k.KeyName, k.IsActive, k.CreatedAt.Format(time.RFC3339))
					}
					return tw.Flush()
				}),
			},
		},
	}
}

type keysAction func(ctx context.Context, cmd *cli.Command, keys *admin.KeyService) error

// withKeys opens the configured store for the duration of one key command.
func withKeys(fn keysAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		st, closeStore, err := openStore(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer closeStore()
		return fn(ctx, cmd, admin.NewKeyService(st, cfg.APIKeyName, log))
	}
}

func requireArg(cmd *cli.Command) (string, error) {
	if cmd.Args().Len() != 1 {
		return "", errors.New("expected exactly one key id")
	}
	return cmd.Args().First(), nil
}
