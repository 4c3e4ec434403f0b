package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nutrisha-ai/nutrisha/pkg/cli/config"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

func cmdToken() *cli.Command {
	var authCfg config.Auth
	var userID string
	var role string
	var ttl time.Duration

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "user-id",
			Aliases:     []string{"u"},
			Usage:       "Subject of the token",
			Required:    true,
			Destination: &userID,
		},
		&cli.StringFlag{
			Name:        "role",
			Aliases:     []string{"r"},
			Usage:       "Role claim [patient|nutritionist|admin]",
			Value:       types.RolePatient.String(),
			Destination: &role,
		},
		&cli.DurationFlag{
			Name:        "ttl",
			Usage:       "Token lifetime",
			Value:       24 * time.Hour,
			Destination: &ttl,
		},
	}
	flags = append(flags, authCfg.Flags()...)

	return &cli.Command{
		Name:  "token",
		Usage: "Issue a signed bearer token for development and testing",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			token, err := authCfg.IssueToken(userID, types.Role(role), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, token)
			return nil
		},
	}
}
