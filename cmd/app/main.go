package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/starford/memodesk/internal"
	"github.com/starford/memodesk/internal/models"
	pkgconfig "github.com/starford/memodesk/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version))
}

func setup(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s := models.Settings{
		Account:        cmd.String("account"),
		RepositoryName: cmd.String("repo"),
		AccessToken:    cmd.String("token"),
		StorageMode:    cmd.String("mode"),
	}
	if s.Remote() && s.AccessToken == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprint(os.Stderr, "Access token (leave empty for read-only): ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		s.AccessToken = strings.TrimSpace(string(raw))
	}

	if err := internal.Setup(ctx, cfg, s); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Settings saved (%s storage).\n", s.StorageMode)
	return nil
}

func export(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Export(ctx, cfg, internal.ExportRequest{
		MemoID:   cmd.String("memo"),
		Password: cmd.String("password"),
		Out:      cmd.String("out"),
	})
}

func main() {
	cmd := &cli.Command{
		Name:    "memodesk",
		Usage:   "Folder-organized memos stored locally or in a hosted Git repository",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and event stream",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdin/stdout",
				Action: mcp,
			},
			{
				Name:   "setup",
				Usage:  "Store the storage mode and repository connection settings",
				Action: setup,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Storage mode: local or remote",
						Value: models.StorageLocal,
					},
					&cli.StringFlag{
						Name:  "account",
						Usage: "Repository owner (remote mode)",
					},
					&cli.StringFlag{
						Name:  "repo",
						Usage: "Repository name (remote mode)",
					},
					&cli.StringFlag{
						Name:    "token",
						Usage:   "Access token; prompted for when omitted in remote mode",
						Sources: cli.EnvVars("MEMODESK_TOKEN"),
					},
				},
			},
			{
				Name:   "export",
				Usage:  "Write the snapshot, or a single memo, as JSON",
				Action: export,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "memo",
						Usage: "Memo id to export instead of the full snapshot",
					},
					&cli.StringFlag{
						Name:  "password",
						Usage: "Folder password for a memo in a private folder",
					},
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Output file (default stdout)",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
