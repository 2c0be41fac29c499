package main

import (
	"log"

	"github.com/zvonler/forumsitemap/cli"
)

func main() {
	sitemapCmd := cli.NewCommand()
	if err := sitemapCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
