package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zvonler/forumsitemap/cli/cache"
	"github.com/zvonler/forumsitemap/cli/check"
	"github.com/zvonler/forumsitemap/cli/forum"
	"github.com/zvonler/forumsitemap/cli/generate"
	"github.com/zvonler/forumsitemap/cli/serve"
)

var (
	configFile string
	dbPath     string
)

func NewCommand() *cobra.Command {
	sitemapCli := &cobra.Command{
		Use:     "forumsitemap",
		Short:   "Forum sitemap CLI",
		Long:    "Generates, serves and checks XML sitemaps for a phpBB forum database",
		Example: fmt.Sprintf("  %s <command> [flags...]", os.Args[0]),
	}

	sitemapCli.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ./forumsitemap.yaml)")
	viper.BindPFlag("config", sitemapCli.PersistentFlags().Lookup("config"))
	sitemapCli.PersistentFlags().StringVar(&dbPath, "database", "forum.db", "Forum database filename")
	viper.BindPFlag("database", sitemapCli.PersistentFlags().Lookup("database"))

	sitemapCli.AddCommand(cache.NewCommand())
	sitemapCli.AddCommand(check.NewCommand())
	sitemapCli.AddCommand(forum.NewCommand())
	sitemapCli.AddCommand(generate.NewCommand())
	sitemapCli.AddCommand(serve.NewCommand())

	return sitemapCli
}
