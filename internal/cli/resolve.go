package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"liverec/internal/config"
	"liverec/internal/output"
)

var errNeedsPocket48 = errors.New("this command requires the pocket48 source platform")

func NewResolveCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <live-id>",
		Short: "Print the play URL of a live stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if deps.Config.Source.Platform != config.PlatformPocket48 {
				return errNeedsPocket48
			}
			url, err := newPocket48Client(deps.Config).Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
}

func NewListCmd(deps *Dependencies) *cobra.Command {
	var next string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List running live streams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if deps.Config.Source.Platform != config.PlatformPocket48 {
				return errNeedsPocket48
			}
			lives, cursor, err := newPocket48Client(deps.Config).ListLive(cmd.Context(), next)
			if err != nil {
				return err
			}

			f := output.NewFormatter(cmd.OutOrStdout())
			if len(lives) == 0 {
				f.Info("No live streams right now")
				return nil
			}
			f.LiveListHeader()
			for _, live := range lives {
				f.LiveListItem(live)
			}
			if cursor != "" && cursor != next {
				f.Info("More: liverec list --next " + cursor)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&next, "next", "", "Page cursor printed by a previous list")

	return cmd
}
