package cli

import (
	"context"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/cli/config"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var projectID string
	var databaseID string
	var dryRun bool
	var vectorCfg config.VectorStore

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID (Firestore indexes are skipped when empty)",
			Sources:     cli.EnvVars("NUTRISHA_FIRESTORE_PROJECT_ID"),
			Destination: &projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore Database ID",
			Sources:     cli.EnvVars("NUTRISHA_FIRESTORE_DATABASE_ID"),
			Destination: &databaseID,
		},
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "Preview changes without applying",
			Destination: &dryRun,
		},
	}
	flags = append(flags, vectorCfg.Flags()...)

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Migrate Firestore indexes and the Qdrant memory collection",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			logger.Info("Migrate configuration",
				"projectID", projectID,
				"databaseID", databaseID,
				"vectorBackend", vectorCfg.Backend(),
				"dryRun", dryRun)

			if projectID == "" && vectorCfg.Backend() != "qdrant" {
				return goerr.Wrap(config.ErrMissingValue, "nothing to migrate: set --firestore-project-id or use --vector-store-backend=qdrant")
			}

			if projectID != "" {
				if err := migrateFirestore(ctx, projectID, databaseID, vectorCfg.Collection(), dryRun); err != nil {
					return err
				}
			}

			if vectorCfg.Backend() == "qdrant" {
				if dryRun {
					logger.Info("Dry run mode - skipping Qdrant collection check")
					return nil
				}
				store, err := vectorCfg.Configure(ctx, nil)
				if err != nil {
					return goerr.Wrap(err, "failed to configure vector store")
				}
				if err := store.EnsureCollection(ctx); err != nil {
					return goerr.Wrap(err, "failed to ensure qdrant collection")
				}
				logger.Info("Qdrant collection is ready", "collection", vectorCfg.Collection())
			}

			return nil
		},
	}
}

func migrateFirestore(ctx context.Context, projectID, databaseID, memoryCollection string, dryRun bool) error {
	logger := logging.Default()
	indexConfig := getIndexConfig(memoryCollection)

	client, err := fireconf.NewClient(ctx, projectID, databaseID)
	if err != nil {
		return goerr.Wrap(err, "failed to create fireconf client")
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close fireconf client", "error", err.Error())
		}
	}()

	if dryRun {
		logger.Info("Dry run mode - previewing changes")
		plan, err := client.GetMigrationPlan(ctx, indexConfig)
		if err != nil {
			return goerr.Wrap(err, "failed to create migration plan")
		}

		if len(plan.Steps) == 0 {
			logger.Info("No changes required")
			return nil
		}

		for _, step := range plan.Steps {
			logger.Info("Migration step",
				"collection", step.Collection,
				"operation", step.Operation,
				"description", step.Description,
				"destructive", step.Destructive)
		}
		return nil
	}

	logger.Info("Applying migrations")
	if err := client.Migrate(ctx, indexConfig); err != nil {
		return goerr.Wrap(err, "failed to apply migrations")
	}
	logger.Info("Migrations applied successfully")
	return nil
}

// getIndexConfig returns the Firestore index configuration
func getIndexConfig(memoryCollection string) *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: "conversations",
				Indexes: []fireconf.Index{
					// ListByUser: UserID ASC, UpdatedAt DESC
					{
						Fields: []fireconf.IndexField{
							{Path: "UserID", Order: fireconf.OrderAscending},
							{Path: "UpdatedAt", Order: fireconf.OrderDescending},
						},
					},
				},
			},
			{
				Name: "device_tokens",
				Indexes: []fireconf.Index{
					// ListActive: Active ASC, UpdatedAt DESC
					{
						Fields: []fireconf.IndexField{
							{Path: "Active", Order: fireconf.OrderAscending},
							{Path: "UpdatedAt", Order: fireconf.OrderDescending},
						},
					},
				},
			},
			{
				Name: memoryCollection,
				Indexes: []fireconf.Index{
					// Vector search pre-filtered by owner
					{
						Fields: []fireconf.IndexField{
							{Path: "UserID", Order: fireconf.OrderAscending},
							{
								Path: "Embedding",
								Vector: &fireconf.VectorConfig{
									Dimension: model.EmbeddingDimension,
								},
							},
						},
					},
				},
			},
		},
	}
}
