package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	lsmtree "github.com/kowanietz/lsm-tree-kv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(logrus.StandardLogger()).RunContext(ctx, os.Args); err != nil {
		logrus.WithError(err).Error("lsmkv failed")
		os.Exit(1)
	}
}

func newApp(logger *logrus.Logger) *cli.App {
	var db *lsmtree.DB

	return &cli.App{
		Name:  "lsmkv",
		Usage: "inspect and modify an lsm-tree-kv data directory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "dir",
				Usage:    "data directory of the tree",
				EnvVars:  []string{"LSMKV_DIR"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "optional YAML config file",
				EnvVars: []string{"LSMKV_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "logrus level: debug, info, warn or error",
				Value: "warn",
			},
		},
		Before: func(c *cli.Context) error {
			level, err := logrus.ParseLevel(c.String("log-level"))
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			logger.SetLevel(level)

			cfg := lsmtree.DefaultConfig()
			if path := c.String("config"); path != "" {
				if cfg, err = lsmtree.LoadConfig(path); err != nil {
					return err
				}
			}
			cfg.Logger = logger

			db, err = lsmtree.Open(c.String("dir"), cfg)
			return err
		},
		After: func(c *cli.Context) error {
			if db == nil {
				return nil
			}
			return db.Close()
		},
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "print the value stored under KEY",
				ArgsUsage: "KEY",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("get takes exactly one KEY", 2)
					}
					val, found, err := db.Get([]byte(c.Args().First()))
					if err != nil {
						return err
					}
					if !found {
						return cli.Exit(fmt.Sprintf("key %q not found", c.Args().First()), 1)
					}
					_, err = fmt.Fprintf(c.App.Writer, "%s\n", val)
					return err
				},
			},
			{
				Name:      "put",
				Usage:     "store VALUE under KEY",
				ArgsUsage: "KEY VALUE",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return cli.Exit("put takes a KEY and a VALUE", 2)
					}
					return db.Put([]byte(c.Args().Get(0)), []byte(c.Args().Get(1)))
				},
			},
			{
				Name:      "delete",
				Usage:     "delete KEY",
				ArgsUsage: "KEY",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("delete takes exactly one KEY", 2)
					}
					return db.Delete([]byte(c.Args().First()))
				},
			},
			{
				Name:  "flush",
				Usage: "write the memtable to a new sstable",
				Action: func(c *cli.Context) error {
					return db.Flush()
				},
			},
			{
				Name:  "stats",
				Usage: "print table and memtable statistics",
				Action: func(c *cli.Context) error {
					s := db.Stats()
					_, err := fmt.Fprintf(c.App.Writer,
						"tables: %d\nmemtable_entries: %d\nmemtable_bytes: %d\nnext_seq: %d\n",
						s.Tables, s.MemtableEntries, s.MemtableBytes, s.NextSeq)
					return err
				},
			},
		},
	}
}
