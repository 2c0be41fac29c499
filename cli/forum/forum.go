package forum

import (
	"os"

	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	forumCommand := &cobra.Command{
		Use:   "forum",
		Short: "Commands for inspecting forums",
		Example: "  # List forums and whether they are in the sitemap\n" +
			"  " + os.Args[0] + " forum list",
	}

	forumCommand.AddCommand(initListCommand())

	return forumCommand
}
