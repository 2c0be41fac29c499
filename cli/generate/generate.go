package generate

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zvonler/forumsitemap/configuration"
	"github.com/zvonler/forumsitemap/model"
	"github.com/zvonler/forumsitemap/sitemap"
)

var (
	outFile string
)

func NewCommand() *cobra.Command {
	generateCommand := &cobra.Command{
		Use:       "generate <index|current|forum|topics|additional> [forum_id]",
		Short:     "Renders one sitemap document without using the cache",
		ValidArgs: []string{"index", "current", "forum", "topics", "additional"},
		Example: "  # Write the topics sitemap of forum 3\n" +
			"  " + os.Args[0] + " generate topics 3 --out topics-3.xml",
		Args: cobra.RangeArgs(1, 2),
		Run:  runGenerateCommand,
	}

	generateCommand.Flags().StringVar(&outFile, "out", "", "Output file (default stdout)")

	return generateCommand
}

// Document renders the named document. forum and topics need a forum id.
func Document(gen *sitemap.Generator, name string, args []string) ([]byte, error) {
	forumID := func() (model.ForumID, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("%s needs exactly one forum id", name)
		}
		id, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return 0, fmt.Errorf("bad forum id %q", args[0])
		}
		return model.ForumID(id), nil
	}

	switch name {
	case "index":
		return gen.Index()
	case "current":
		return gen.Current()
	case "additional":
		return gen.Additional()
	case "forum":
		id, err := forumID()
		if err != nil {
			return nil, err
		}
		return gen.Forum(id)
	case "topics":
		id, err := forumID()
		if err != nil {
			return nil, err
		}
		return gen.Topics(id)
	}
	return nil, fmt.Errorf("unknown document %q", name)
}

func runGenerateCommand(cmd *cobra.Command, args []string) {
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

	doc, err := Document(gen, args[0], args[1:])
	if err != nil {
		log.Fatal(err)
	}

	if outFile == "" {
		os.Stdout.Write(doc)
	} else if err := os.WriteFile(outFile, doc, 0644); err != nil {
		log.Fatal(err)
	}
}
