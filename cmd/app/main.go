package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	sqliteadapter "github.com/lebbe/premises/internal/adapters/db/sqlite"
	httpadapter "github.com/lebbe/premises/internal/adapters/http"
	"github.com/lebbe/premises/internal/adapters/partition"
	rpcadapter "github.com/lebbe/premises/internal/adapters/rpcjson"
	"github.com/lebbe/premises/internal/application"
	"github.com/lebbe/premises/internal/config"
	"github.com/lebbe/premises/internal/domain"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "premises",
		Usage: "Genus-differentia concept graph server and CLI",
		Commands: []*cli.Command{
			serverCommand(),
			configCommand(),
			universesCommand(),
			conceptsCommand(),
			graphCommand(),
			cyclesCommand(),
			floatingCommand(),
			importCommand(),
			exportCommand(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runServer(ctx, "")
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		log.Fatal(err)
	}
}

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run HTTP and JSON-RPC server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "YAML config file path"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runServer(ctx, c.String("config"))
		},
	}
}

func runServer(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := sqliteadapter.Open(cfg.Database)
	if err != nil {
		return err
	}
	if err := sqliteadapter.RunMigrations(ctx, db); err != nil {
		return err
	}

	repo := sqliteadapter.NewConceptRepository(db, logger)
	partitions := partition.NewSource(cfg.DataDir, cfg.Universes, logger)
	service := application.NewConceptService(repo, partitions, cfg.UniverseIDs(), logger)

	router := httpadapter.NewRouter(service)
	srv := &http.Server{Addr: cfg.Listen, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	rpcSrv, err := rpcadapter.Start(cfg.Socket, service)
	if err != nil {
		return err
	}

	defer func() {
		_ = rpcSrv.Close()
	}()
	logger.Info("json-rpc listening", zap.String("socket", cfg.Socket))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configure the CLI client connection",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "transport", Usage: "uds or http"},
			&cli.StringFlag{Name: "server", Usage: "HTTP server base URL"},
			&cli.StringFlag{Name: "socket", Usage: "JSON-RPC unix socket path"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if c.IsSet("transport") {
				cfg.Transport = c.String("transport")
			}
			if c.IsSet("server") {
				cfg.Server = c.String("server")
			}
			if c.IsSet("socket") {
				cfg.Socket = c.String("socket")
			}
			if err := saveConfig(cfg); err != nil {
				return err
			}
			printKV([][2]string{{"transport", cfg.Transport}, {"server", cfg.Server}, {"socket", cfg.Socket}})
			return nil
		},
	}
}

func universesCommand() *cli.Command {
	return &cli.Command{
		Name:  "universes",
		Usage: "Universe catalog commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List universes with counts and selection",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []domain.UniverseInfo
					if err := doUniversesList(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printUniverses(out)
					return nil
				},
			},
			{
				Name:  "select",
				Usage: "Set the active universe selection",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "universe", Usage: "universe id, repeatable; none resets to all"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					universes := c.StringSlice("universe")
					if err := doUniversesSelect(ctx, cfg, universes); err != nil {
						return err
					}
					if len(universes) == 0 {
						fmt.Println("selection reset to all universes")
					} else {
						fmt.Printf("selected %d universe(s)\n", len(universes))
					}
					return nil
				},
			},
		},
	}
}

func conceptsCommand() *cli.Command {
	return &cli.Command{
		Name:  "concepts",
		Usage: "Concept commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List concepts",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "q", Usage: "substring filter on id and label"},
					&cli.StringFlag{Name: "universes", Usage: "csv universe ids"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []domain.Concept
					if err := doConceptsList(ctx, cfg, c.String("q"), c.String("universes"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printConcepts(out)
					return nil
				},
			},
			{
				Name:  "get",
				Usage: "Show one concept",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.Concept
					if err := doConceptsGet(ctx, cfg, c.String("id"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printConcept(out)
					return nil
				},
			},
			{
				Name:  "save",
				Usage: "Create or update a user concept from a JSON file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Required: true, Usage: "JSON file with one concept object"},
					&cli.StringFlag{Name: "previous-id", Usage: "id being renamed; references are rewritten"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					data, err := os.ReadFile(c.String("file"))
					if err != nil {
						return err
					}
					var concept domain.Concept
					if err := json.Unmarshal(data, &concept); err != nil {
						return fmt.Errorf("parse concept file: %w", err)
					}
					var out domain.Concept
					if err := doConceptsSave(ctx, cfg, c.String("previous-id"), concept, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printConcept(out)
					return nil
				},
			},
			{
				Name:  "clear",
				Usage: "Remove all user-authored concepts",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "yes", Usage: "confirm the bulk clear"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					if !c.Bool("yes") {
						return fmt.Errorf("refusing to clear without --yes")
					}
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					if err := doConceptsClear(ctx, cfg); err != nil {
						return err
					}
					fmt.Println("user concepts cleared")
					return nil
				},
			},
		},
	}
}

func graphCommand() *cli.Command {
	return &cli.Command{
		Name:  "graph",
		Usage: "Build a study subgraph around focal concepts",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "concepts", Required: true, Usage: "csv focal concept ids"},
			&cli.IntFlag{Name: "depth", Value: 2},
			&cli.StringFlag{Name: "dir", Value: "LR", Usage: "TB, BT, LR or RL"},
			&cli.IntFlag{Name: "node-spacing", Value: 20},
			&cli.IntFlag{Name: "rank-spacing", Value: 150},
			&cli.BoolFlag{Name: "no-genus", Usage: "hide genus edges"},
			&cli.BoolFlag{Name: "no-differentia", Usage: "hide differentia edges"},
			&cli.StringFlag{Name: "universes", Usage: "csv universe ids"},
			&cli.BoolFlag{Name: "hierarchy", Usage: "conceptual hierarchy layout"},
			&cli.BoolFlag{Name: "no-layout", Usage: "keep traversal positions"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			state := domain.ViewState{
				Focal:           splitCSV(c.String("concepts")),
				Depth:           int(c.Int("depth")),
				Direction:       domain.LayoutDirection(c.String("dir")),
				NodeSpacing:     int(c.Int("node-spacing")),
				RankSpacing:     int(c.Int("rank-spacing")),
				ShowGenus:       !c.Bool("no-genus"),
				ShowDifferentia: !c.Bool("no-differentia"),
				Universes:       splitCSV(c.String("universes")),
			}
			var out domain.Graph
			if err := doGraphBuild(ctx, cfg, state, c.Bool("hierarchy"), !c.Bool("no-layout"), &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printGraph(out)
			return nil
		},
	}
}

func cyclesCommand() *cli.Command {
	return &cli.Command{
		Name:  "cycles",
		Usage: "Detect cycles in genus/differentia chains",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "concepts", Required: true, Usage: "csv focal concept ids"},
			&cli.StringFlag{Name: "universes", Usage: "csv universe ids"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var out struct {
				Cycles []domain.Cycle `json:"cycles"`
			}
			if err := doCycles(ctx, cfg, c.String("concepts"), c.String("universes"), &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printCycles(out.Cycles)
			return nil
		},
	}
}

func floatingCommand() *cli.Command {
	return &cli.Command{
		Name:  "floating",
		Usage: "Find floating abstractions",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "concepts", Required: true, Usage: "csv focal concept ids"},
			&cli.StringFlag{Name: "universes", Usage: "csv universe ids"},
			&cli.BoolFlag{Name: "prompt", Usage: "print the definition fill-in prompt"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var out struct {
				FloatingAbstractions []domain.FloatingAbstraction `json:"floatingAbstractions"`
				Prompt               string                       `json:"prompt"`
			}
			if err := doFloating(ctx, cfg, c.String("concepts"), c.String("universes"), &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			if c.Bool("prompt") {
				fmt.Println(out.Prompt)
				return nil
			}
			printFloating(out.FloatingAbstractions)
			return nil
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import concept collections",
		Commands: []*cli.Command{
			{
				Name:  "analyze",
				Usage: "Dry-run an import file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return runImportOp(ctx, c, false)
				},
			},
			{
				Name:  "apply",
				Usage: "Apply an import file to the user layer",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return runImportOp(ctx, c, true)
				},
			},
		},
	}
}

func runImportOp(ctx context.Context, c *cli.Command, apply bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(c.String("file"))
	if err != nil {
		return err
	}
	var out domain.ImportAnalysis
	if err := doImport(ctx, cfg, data, apply, &out); err != nil {
		return err
	}
	if c.Bool("json") {
		return printJSON(out)
	}
	printImportAnalysis(out)
	if out.Error != "" {
		return fmt.Errorf("import failed")
	}
	return nil
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export concepts as a JSON document",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "universes", Usage: "csv universe ids; empty exports everything"},
			&cli.StringFlag{Name: "out", Usage: "output file; stdout when empty"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var doc domain.ExportDocument
			if err := doExport(ctx, cfg, c.String("universes"), &doc); err != nil {
				return err
			}
			data, err := jsonMarshal(doc)
			if err != nil {
				return err
			}
			if path := c.String("out"); path != "" {
				if err := os.WriteFile(path, data, 0o644); err != nil {
					return err
				}
				fmt.Printf("exported %d concepts to %s\n", doc.TotalConcepts, path)
				return nil
			}
			fmt.Println(string(data))
			return nil
		},
	}
}

func jsonMarshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
