package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/cli/config"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/service/embedding"
	"github.com/nutrisha-ai/nutrisha/pkg/usecase"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// memoryOperator bundles what the memory subcommands need
type memoryOperator struct {
	repoCfg   config.Repository
	geminiCfg config.Gemini
	vectorCfg config.VectorStore
}

func (x *memoryOperator) flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, x.repoCfg.Flags()...)
	flags = append(flags, x.geminiCfg.Flags()...)
	flags = append(flags, x.vectorCfg.Flags()...)
	return flags
}

// configure builds use cases holding only the memory collaborators. The returned
// closer releases the repository.
func (x *memoryOperator) configure(ctx context.Context, needEmbedder bool) (*usecase.UseCases, func(), error) {
	repo, err := x.repoCfg.Configure(ctx)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to configure repository")
	}
	closer := func() {
		if err := repo.Close(); err != nil {
			logging.Default().Error("failed to close repository", "error", err.Error())
		}
	}

	store, err := x.vectorCfg.Configure(ctx, repo)
	if err != nil {
		closer()
		return nil, nil, goerr.Wrap(err, "failed to configure vector store")
	}
	if store == nil {
		closer()
		return nil, nil, goerr.Wrap(config.ErrMissingValue, "a vector store backend is required",
			goerr.V(config.FlagKey, "vector-store-backend"))
	}

	opts := []usecase.Option{usecase.WithVectorStore(store)}
	if needEmbedder {
		llm, err := x.geminiCfg.ConfigureLLM(ctx)
		if err != nil {
			closer()
			return nil, nil, err
		}
		if llm == nil {
			closer()
			return nil, nil, goerr.Wrap(config.ErrMissingValue, "gemini-project is required to embed the query",
				goerr.V(config.FlagKey, "gemini-project"))
		}
		opts = append(opts, usecase.WithEmbedder(embedding.New(llm)))
	}

	return usecase.New(repo, opts...), closer, nil
}

func cmdMemory() *cli.Command {
	return &cli.Command{
		Name:  "memory",
		Usage: "Inspect and manage stored user memories",
		Commands: []*cli.Command{
			cmdMemorySearch(),
			cmdMemoryPurge(),
		},
	}
}

func cmdMemorySearch() *cli.Command {
	var op memoryOperator
	var userID string
	var limit int

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "user-id",
			Aliases:     []string{"u"},
			Usage:       "Owner of the memories",
			Required:    true,
			Destination: &userID,
		},
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Maximum number of memories to show",
			Value:       usecase.DefaultMemorySearchLimit,
			Destination: &limit,
		},
	}
	flags = append(flags, op.flags()...)

	return &cli.Command{
		Name:      "search",
		Usage:     "Search a user's memories by meaning",
		ArgsUsage: "<query>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			query := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(query) == "" {
				return goerr.Wrap(usecase.ErrInvalidRequest, "query is required")
			}

			uc, closer, err := op.configure(ctx, true)
			if err != nil {
				return err
			}
			defer closer()

			results, err := uc.Memory.SearchMemories(ctx, userID, query, limit)
			if err != nil {
				return goerr.Wrap(err, "failed to search memories", goerr.V(usecase.UserIDKey, userID))
			}

			printMemories(os.Stdout, results)
			return nil
		},
	}
}

func cmdMemoryPurge() *cli.Command {
	var op memoryOperator
	var userID string
	var yes bool

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "user-id",
			Aliases:     []string{"u"},
			Usage:       "Owner of the memories",
			Required:    true,
			Destination: &userID,
		},
		&cli.BoolFlag{
			Name:        "yes",
			Aliases:     []string{"y"},
			Usage:       "Skip the confirmation prompt",
			Destination: &yes,
		},
	}
	flags = append(flags, op.flags()...)

	return &cli.Command{
		Name:  "purge",
		Usage: "Delete every memory of a user",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if !yes && !confirm(os.Stdin, os.Stdout, fmt.Sprintf("Delete all memories of %s?", userID)) {
				color.New(color.FgYellow).Fprintln(os.Stdout, "Aborted")
				return nil
			}

			uc, closer, err := op.configure(ctx, false)
			if err != nil {
				return err
			}
			defer closer()

			if err := uc.Memory.PurgeUserMemories(ctx, userID); err != nil {
				return goerr.Wrap(err, "failed to purge memories", goerr.V(usecase.UserIDKey, userID))
			}

			color.New(color.FgGreen).Fprintf(os.Stdout, "Deleted all memories of %s\n", userID)
			return nil
		},
	}
}

func printMemories(w io.Writer, results []model.ScoredMemory) {
	if len(results) == 0 {
		color.New(color.FgYellow).Fprintln(w, "No memories found")
		return
	}

	header := color.New(color.FgCyan, color.Bold)
	score := color.New(color.FgGreen)
	faint := color.New(color.Faint)

	for i, r := range results {
		header.Fprintf(w, "%d. %s\n", i+1, r.Record.Summary)
		score.Fprintf(w, "   score: %.4f\n", r.Score)
		if len(r.Record.Topics) > 0 {
			fmt.Fprintf(w, "   topics: %s\n", strings.Join(r.Record.Topics, ", "))
		}
		faint.Fprintf(w, "   id: %s  conversation: %s  created: %s\n",
			r.Record.ID, r.Record.ConversationID, r.Record.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}

func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	var answer string
	if _, err := fmt.Fscanln(in, &answer); err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
