package serve

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/browser"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zvonler/forumsitemap/configuration"
	"github.com/zvonler/forumsitemap/database"
	"github.com/zvonler/forumsitemap/server"
	"github.com/zvonler/forumsitemap/utils"
)

var (
	listen string
	open   bool
)

func NewCommand() *cobra.Command {
	serveCommand := &cobra.Command{
		Use:   "serve [--listen ADDR] [--open]",
		Short: "Serves the sitemaps over HTTP",
		Example: "  # Serve on port 9000 and open the index\n" +
			"  " + os.Args[0] + " serve --listen :9000 --open",
		Args: cobra.NoArgs,
		Run:  runServeCommand,
	}

	serveCommand.Flags().StringVar(&listen, "listen", ":8080", "Listen address")
	viper.BindPFlag("listen", serveCommand.Flags().Lookup("listen"))
	serveCommand.Flags().BoolVar(&open, "open", false, "Open the sitemap index in a browser")

	return serveCommand
}

// schedulePruning removes expired documents on the configured schedule.
func schedulePruning(spec string, dc *database.DocumentCache) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if removed, err := dc.Prune(); err != nil {
			utils.Error("cache", "prune", err.Error())
		} else if removed > 0 {
			utils.Info("cache", "prune", fmt.Sprintf("removed=%d", removed))
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

func runServeCommand(cmd *cobra.Command, args []string) {
	settings, err := configuration.Load(viper.GetString("config"))
	if err != nil {
		log.Fatal(err)
	}

	fdb, err := settings.OpenExistingDatabase()
	if err != nil {
		log.Fatal(err)
	}
	defer fdb.Close()

	dc, err := settings.OpenCache()
	if err != nil {
		log.Fatal(err)
	}
	defer dc.Close()

	gen, err := settings.NewGenerator(fdb, dc)
	if err != nil {
		log.Fatal(err)
	}

	pruner, err := schedulePruning(settings.CachePruneSchedule, dc)
	if err != nil {
		log.Fatal(err)
	}
	defer pruner.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if open {
		go func() {
			if err := browser.OpenURL(gen.Links().IndexSitemap()); err != nil {
				utils.Warn("serve", "open", err.Error())
			}
		}()
	}

	if err := server.New(gen, settings.LinkEnabled).Run(ctx, settings.Listen); err != nil {
		log.Fatal(err)
	}
}
