package forum

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/bit101/go-ansi"
	"github.com/ryanuber/columnize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zvonler/forumsitemap/configuration"
	"github.com/zvonler/forumsitemap/model"
	"github.com/zvonler/forumsitemap/sitemap"
	"golang.org/x/term"
)

func initListCommand() *cobra.Command {
	listCommand := &cobra.Command{
		Use:   "list",
		Short: "Lists post forums and their sitemap eligibility",
		Args:  cobra.NoArgs,
		Run:   runListCommand,
	}

	return listCommand
}

type forumRow struct {
	forum model.Forum
	sitemap.Eligibility
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatRows(rows []forumRow) []string {
	output := []string{
		"ForumID | Name | Topics | Last post | Listable | Excluded | Eligible",
	}
	for _, r := range rows {
		lastPost := "never"
		if !r.forum.LastPostTime.IsZero() {
			lastPost = r.forum.LastPostTime.UTC().Format("2006-01-02 15:04")
		}
		output = append(output, fmt.Sprintf("%d | %s | %d | %s | %s | %s | %s",
			r.forum.ID, r.forum.Name, r.forum.TopicsApproved, lastPost,
			yesNo(r.Listable), yesNo(r.Excluded), yesNo(r.Eligible())))
	}
	return strings.Split(strings.TrimRight(columnize.SimpleFormat(output), "\n"), "\n")
}

// printRows colours eligible forums green and the rest red.
func printRows(w io.Writer, rows []forumRow, lines []string, colour bool) {
	for i, line := range lines {
		switch {
		case !colour:
			fmt.Fprintln(w, line)
		case i == 0:
			ansi.Fprintf(w, ansi.Yellow, "%s\n", line)
		case rows[i-1].Eligible():
			ansi.Fprintf(w, ansi.Green, "%s\n", line)
		default:
			ansi.Fprintf(w, ansi.Red, "%s\n", line)
		}
	}
}

func runListCommand(cmd *cobra.Command, args []string) {
	settings, err := configuration.Load(viper.GetString("config"))
	if err != nil {
		log.Fatal(err)
	}

	fdb, err := settings.OpenExistingDatabase()
	if err != nil {
		log.Fatal(err)
	}
	defer fdb.Close()

	gen, err := settings.NewGenerator(fdb, nil)
	if err != nil {
		log.Fatal(err)
	}

	forums, err := fdb.PostForums()
	if err != nil {
		log.Fatal(err)
	}

	rows := make([]forumRow, 0, len(forums))
	for _, f := range forums {
		e, err := gen.Eligibility(f)
		if err != nil {
			log.Fatal(err)
		}
		rows = append(rows, forumRow{forum: f, Eligibility: e})
	}

	printRows(os.Stdout, rows, formatRows(rows), term.IsTerminal(int(os.Stdout.Fd())))
}
