package configuration

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/zvonler/forumsitemap/additional"
	"github.com/zvonler/forumsitemap/database"
	"github.com/zvonler/forumsitemap/model"
	"github.com/zvonler/forumsitemap/sitemap"
	"github.com/zvonler/forumsitemap/utils"
)

const EnvPrefix = "FORUMSITEMAP"

// Settings is the validated configuration. Treat it as read-only once
// Load returns.
type Settings struct {
	Database           string        `mapstructure:"database"`
	CacheDatabase      string        `mapstructure:"cache_database"`
	Listen             string        `mapstructure:"listen"`
	BoardURL           string        `mapstructure:"board_url"`
	BaseURL            string        `mapstructure:"base_url"`
	PHPExt             string        `mapstructure:"php_ext"`
	StylesheetURL      string        `mapstructure:"stylesheet_url"`
	ACLGroup           string        `mapstructure:"acl_group"`
	ForumExclude       []uint        `mapstructure:"forum_exclude"`
	ForumThreshold     uint          `mapstructure:"forum_threshold"`
	ImagesEnabled      bool          `mapstructure:"images_enabled"`
	AdditionalEnabled  bool          `mapstructure:"additional_enabled"`
	AdditionalFile     string        `mapstructure:"additional_file"`
	LinkEnabled        bool          `mapstructure:"link_enabled"`
	StickyPriority     float64       `mapstructure:"sticky_priority"`
	GlobalPriority     float64       `mapstructure:"global_priority"`
	AnnouncePriority   float64       `mapstructure:"announce_priority"`
	PostsPerPage       int           `mapstructure:"posts_per_page"`
	TopicsPerPage      int           `mapstructure:"topics_per_page"`
	CacheTTL           time.Duration `mapstructure:"cache_ttl"`
	CachePruneSchedule string        `mapstructure:"cache_prune_schedule"`

	board *url.URL
	base  *url.URL
}

func setDefaults() {
	viper.SetDefault("database", "forum.db")
	viper.SetDefault("cache_database", "sitemap-cache.db")
	viper.SetDefault("listen", ":8080")
	viper.SetDefault("board_url", "http://localhost")
	viper.SetDefault("base_url", "")
	viper.SetDefault("php_ext", "php")
	viper.SetDefault("stylesheet_url", "")
	viper.SetDefault("acl_group", "GUESTS")
	viper.SetDefault("forum_exclude", []uint{})
	viper.SetDefault("forum_threshold", 0)
	viper.SetDefault("images_enabled", true)
	viper.SetDefault("additional_enabled", false)
	viper.SetDefault("additional_file", "")
	viper.SetDefault("link_enabled", false)
	viper.SetDefault("sticky_priority", 0.8)
	viper.SetDefault("global_priority", 0.9)
	viper.SetDefault("announce_priority", 0.9)
	viper.SetDefault("posts_per_page", 10)
	viper.SetDefault("topics_per_page", 25)
	viper.SetDefault("cache_ttl", sitemap.DefaultCacheTTL)
	viper.SetDefault("cache_prune_schedule", "@hourly")
}

// Load reads settings from a .env file, the config file and FORUMSITEMAP_*
// environment variables, in increasing order of precedence. Values bound to
// command line flags win over all of them. A missing config file is only an
// error when configFile names it explicitly.
func Load(configFile string) (*Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	setDefaults()
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("forumsitemap")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "forumsitemap"))
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func checkPriority(name string, p float64) error {
	if p < 0 || p > 1 {
		return fmt.Errorf("%s must be between 0 and 1, got %v", name, p)
	}
	return nil
}

func (s *Settings) validate() (err error) {
	if s.board, err = utils.ParseBaseURL(s.BoardURL); err != nil {
		return fmt.Errorf("board_url: %w", err)
	}
	if s.BaseURL == "" {
		s.base = s.board
	} else if s.base, err = utils.ParseBaseURL(s.BaseURL); err != nil {
		return fmt.Errorf("base_url: %w", err)
	}
	s.BaseURL = s.base.String()

	if s.PHPExt == "" {
		return errors.New("php_ext must not be empty")
	}
	if s.ACLGroup == "" {
		return errors.New("acl_group must not be empty")
	}
	for name, p := range map[string]float64{
		"sticky_priority":   s.StickyPriority,
		"global_priority":   s.GlobalPriority,
		"announce_priority": s.AnnouncePriority,
	} {
		if err = checkPriority(name, p); err != nil {
			return
		}
	}
	if s.PostsPerPage < 1 {
		return fmt.Errorf("posts_per_page must be at least 1, got %d", s.PostsPerPage)
	}
	if s.TopicsPerPage < 1 {
		return fmt.Errorf("topics_per_page must be at least 1, got %d", s.TopicsPerPage)
	}
	if s.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl must be positive, got %v", s.CacheTTL)
	}
	if _, err = cron.ParseStandard(s.CachePruneSchedule); err != nil {
		return fmt.Errorf("cache_prune_schedule: %w", err)
	}
	return nil
}

func (s *Settings) SitemapOptions() sitemap.Options {
	return sitemap.Options{
		ForumExclude:      lo.Map(s.ForumExclude, func(id uint, _ int) model.ForumID { return model.ForumID(id) }),
		ForumThreshold:    s.ForumThreshold,
		ImagesEnabled:     s.ImagesEnabled,
		AdditionalEnabled: s.AdditionalEnabled,
		StickyPriority:    s.StickyPriority,
		GlobalPriority:    s.GlobalPriority,
		AnnouncePriority:  s.AnnouncePriority,
		PostsPerPage:      s.PostsPerPage,
		TopicsPerPage:     s.TopicsPerPage,
		CacheTTL:          s.CacheTTL,
	}
}

func (s *Settings) Links() sitemap.Links {
	return sitemap.Links{
		Board:      s.board,
		Base:       s.base,
		PHPExt:     s.PHPExt,
		Stylesheet: s.StylesheetURL,
	}
}

func (s *Settings) OpenExistingDatabase() (fdb *database.ForumDB, err error) {
	var exists bool
	if exists, err = utils.PathExists(s.Database); err == nil {
		if exists {
			fdb, err = database.OpenForumDBReadOnly(s.Database)
		} else {
			err = fmt.Errorf("Database %q does not exist", s.Database)
		}
	}
	return
}

func (s *Settings) OpenCache() (*database.DocumentCache, error) {
	return database.OpenDocumentCache(s.CacheDatabase)
}

// NewGenerator builds a generator over fdb with the configured group's
// permissions. Pass a nil cache to always render fresh documents.
func (s *Settings) NewGenerator(fdb *database.ForumDB, cache sitemap.Cache) (*sitemap.Generator, error) {
	g := sitemap.NewGenerator(fdb, fdb.GroupACL(s.ACLGroup), cache, s.SitemapOptions(), s.Links())
	if s.AdditionalEnabled && s.AdditionalFile != "" {
		pages, err := additional.LoadFile(s.AdditionalFile)
		if err != nil {
			return nil, fmt.Errorf("additional_file: %w", err)
		}
		g.Hooks().OnAdditionalPages(pages.Hook())
	}
	return g, nil
}
