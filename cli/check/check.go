package check

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/bit101/go-ansi"
	"github.com/ryanuber/columnize"
	"github.com/spf13/cobra"
	"github.com/zvonler/forumsitemap/checker"
	"golang.org/x/term"
)

var (
	opts checker.Options
)

func NewCommand() *cobra.Command {
	checkCommand := &cobra.Command{
		Use:   "check <URL>",
		Short: "Crawls a published sitemap and reports what a search engine would find",
		Example: "  # Follow the sitemaps advertised in robots.txt and fetch every page\n" +
			"  " + os.Args[0] + " check https://forum.example/robots.txt --pages",
		Args: cobra.ExactArgs(1),
		Run:  runCheckCommand,
	}

	checkCommand.Flags().BoolVar(&opts.CheckPages, "pages", false, "Fetch every page listed in the sitemaps")
	checkCommand.Flags().IntVar(&opts.MaxPages, "max-pages", 0, "Limit the number of pages fetched (0 for no limit)")
	checkCommand.Flags().DurationVar(&opts.Delay, "delay", time.Second, "Delay between requests")
	checkCommand.Flags().BoolVar(&opts.Cloudflare, "cloudflare", false, "Solve Cloudflare challenges")

	return checkCommand
}

func printReport(w io.Writer, report *checker.Report, colour bool) {
	output := []string{"Sitemap | Kind | URLs | Images"}
	for _, s := range report.Sitemaps {
		output = append(output, fmt.Sprintf("%s | %s | %d | %d", s.URL, s.Kind, s.URLs, s.Images))
	}
	fmt.Fprintln(w, columnize.SimpleFormat(output))

	failures := append(append([]checker.Failure{}, report.SitemapFailures...), report.PageFailures...)
	if report.PagesChecked > 0 {
		fmt.Fprintf(w, "\n%d pages checked, %d failed\n", report.PagesChecked, len(report.PageFailures))
	}
	for _, f := range failures {
		if colour {
			ansi.Fprintf(w, ansi.Red, "FAIL ")
		} else {
			fmt.Fprint(w, "FAIL ")
		}
		fmt.Fprintf(w, "%s (%d %s)\n", f.URL, f.Status, f.Err)
	}
}

func runCheckCommand(cmd *cobra.Command, args []string) {
	c, err := checker.New(opts)
	if err != nil {
		log.Fatal(err)
	}

	report, err := c.Check(args[0])
	if err != nil {
		log.Fatal(err)
	}

	printReport(os.Stdout, report, term.IsTerminal(int(os.Stdout.Fd())))
	if len(report.SitemapFailures)+len(report.PageFailures) > 0 {
		os.Exit(1)
	}
}
