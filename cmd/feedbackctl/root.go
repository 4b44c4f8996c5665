package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	infraconfig "github.com/jonesrussell/feedback-api/infrastructure/config"
	"github.com/jonesrussell/feedback-api/infrastructure/logger"
	infraredis "github.com/jonesrussell/feedback-api/infrastructure/redis"
	"github.com/jonesrussell/feedback-api/internal/config"
	"github.com/jonesrussell/feedback-api/internal/database"
	"github.com/jonesrussell/feedback-api/internal/directory"
	"github.com/jonesrussell/feedback-api/internal/service"
)

// app holds the connections and services shared by every command.
type app struct {
	configPath string
	out        io.Writer

	db          *sqlx.DB
	redisClient *goredis.Client

	projects  *service.ProjectService
	feedback  *service.FeedbackService
	snapshots *service.SnapshotService
}

// run executes the command line in args and releases every connection
// before returning.
func run(ctx context.Context, args []string, out io.Writer) error {
	a := &app{out: out}
	defer a.close()

	root := newRootCommand(a)
	root.SetArgs(args)
	root.SetOut(out)
	return root.ExecuteContext(ctx)
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "feedbackctl",
		Short:         "Administer feedback API projects",
		Long:          `Create projects, rotate API keys, manage allowed origins and clear collected data.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $CONFIG_PATH or config.yml)")

	root.AddCommand(
		newProjectCommand(a),
		newOriginCommand(a),
		newDataCommand(a),
	)
	return root
}

// open loads configuration and wires the services.
func (a *app) open(ctx context.Context) error {
	path := a.configPath
	if path == "" {
		path = infraconfig.GetConfigPath("config.yml")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if validationErr := cfg.Validate(); validationErr != nil {
		return fmt.Errorf("validate config: %w", validationErr)
	}

	// Logs go to stderr so tables on stdout stay clean.
	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	log = log.With(logger.String("service", "feedbackctl"))

	a.db, err = database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}

	var dirOpts []directory.Option
	if cfg.Redis.Enabled {
		a.redisClient, err = infraredis.Connect(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		dirOpts = append(dirOpts, directory.WithCache(a.redisClient, cfg.Redis.ProjectCacheTTL))
	}

	projectRepo := database.NewProjectRepository(a.db)
	dir := directory.New(projectRepo, log, dirOpts...)

	a.feedback = service.NewFeedbackService(database.NewFeedbackRepository(a.db), nil, log)
	a.snapshots = service.NewSnapshotService(database.NewSnapshotRepository(a.db), log)
	a.projects = service.NewProjectService(projectRepo, a.feedback, a.snapshots, dir, log)
	return nil
}

func (a *app) close() {
	if a.redisClient != nil {
		_ = a.redisClient.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
