package cache

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zvonler/forumsitemap/configuration"
	"github.com/zvonler/forumsitemap/database"
)

func NewCommand() *cobra.Command {
	cacheCommand := &cobra.Command{
		Use:   "cache",
		Short: "Commands for maintaining the document cache",
		Example: "  # Drop every cached document\n" +
			"  " + os.Args[0] + " cache clear",
	}

	cacheCommand.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Removes expired documents",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			withCache(func(dc *database.DocumentCache) (int64, error) { return dc.Prune() })
		},
	})
	cacheCommand.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Removes every document",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			withCache(func(dc *database.DocumentCache) (int64, error) { return dc.Clear() })
		},
	})

	return cacheCommand
}

func withCache(op func(*database.DocumentCache) (int64, error)) {
	settings, err := configuration.Load(viper.GetString("config"))
	if err != nil {
		log.Fatal(err)
	}

	dc, err := settings.OpenCache()
	if err != nil {
		log.Fatal(err)
	}
	defer dc.Close()

	removed, err := op(dc)
	if err != nil {
		log.Fatal(err)
	}
	remaining, err := dc.Count()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Removed %d documents, %d remaining\n", removed, remaining)
}
