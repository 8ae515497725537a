package config

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/bigredeye/notmanyjudges/pkg/conf"
)

const (
	StorageModePostgres = "postgres"
	StorageModeMemory   = "memory"
)

type Config struct {
	Server struct {
		ListenAddress string
		Cookies       struct {
			AuthenticationKey string
			EncryptionKey     string
			Insecure          bool
		}
	}

	Endpoints struct {
		HostName      string
		Home          string
		Login         string
		Logout        string
		OauthCallback string
	}

	Storage struct {
		Mode string
	}

	DataBase struct {
		Host string
		Port uint16
		User string
		Pass string
		Name string
	}

	Admin struct {
		Logins []string
		Tokens []string
	}

	GitLab struct {
		BaseURL     string
		Application struct {
			ClientID string
			Secret   string
		}
	}

	Judging struct {
		MinScore         int
		MaxScore         int
		RemarksMinLength int
		DefaultRubricURL string
		RecomputeTimeout time.Duration
	}

	LLM struct {
		Provider    string
		APIKey      string
		Model       string
		BaseURL     string
		Timeout     time.Duration
		MaxRetries  uint64
		RatePerMin  int
		MaxTokens   int
		Temperature float64
	}

	Telegram struct {
		BotToken string
		ChatID   int64
	}

	Cache struct {
		LeaderboardTTL time.Duration
		CriteriaTTL    time.Duration
		BuildTimeout   time.Duration
		MaxEntries     int64
	}

	Log struct {
		Development bool
		File        string
		MaxSizeMB   int
		MaxBackups  int
		MaxAgeDays  int
	}
}

func (c *Config) SetDefaults() {
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = ":8080"
	}
	if c.Endpoints.Home == "" {
		c.Endpoints.Home = "/"
	}
	if c.Endpoints.Login == "" {
		c.Endpoints.Login = "/login"
	}
	if c.Endpoints.Logout == "" {
		c.Endpoints.Logout = "/logout"
	}
	if c.Endpoints.OauthCallback == "" {
		c.Endpoints.OauthCallback = "/oauth/callback"
	}
	if c.Storage.Mode == "" {
		c.Storage.Mode = StorageModePostgres
	}
	if c.DataBase.Port == 0 {
		c.DataBase.Port = 5432
	}
	if c.GitLab.BaseURL == "" {
		c.GitLab.BaseURL = "https://gitlab.com"
	}
	if c.Judging.MinScore == 0 && c.Judging.MaxScore == 0 {
		c.Judging.MinScore = 1
		c.Judging.MaxScore = 10
	}
	if c.Judging.RemarksMinLength == 0 {
		c.Judging.RemarksMinLength = 10
	}
	if c.Judging.RecomputeTimeout == 0 {
		c.Judging.RecomputeTimeout = 5 * time.Second
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 30 * time.Second
	}
	if c.LLM.MaxRetries == 0 {
		c.LLM.MaxRetries = 2
	}
	if c.LLM.RatePerMin == 0 {
		c.LLM.RatePerMin = 60
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 1024
	}
	if c.Cache.LeaderboardTTL == 0 {
		c.Cache.LeaderboardTTL = 30 * time.Second
	}
	if c.Cache.CriteriaTTL == 0 {
		c.Cache.CriteriaTTL = time.Minute
	}
	if c.Cache.BuildTimeout == 0 {
		c.Cache.BuildTimeout = 10 * time.Second
	}
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = 1000
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 100
	}
}

func (c *Config) Validate() error {
	switch c.Storage.Mode {
	case StorageModePostgres, StorageModeMemory:
	default:
		return errors.Errorf("unknown storage mode %q", c.Storage.Mode)
	}
	if c.Judging.MinScore > c.Judging.MaxScore {
		return errors.Errorf("judging min score %d exceeds max score %d", c.Judging.MinScore, c.Judging.MaxScore)
	}
	if c.Judging.RemarksMinLength < 1 {
		return errors.New("judging remarks min length must be positive")
	}
	return nil
}

func (c *Config) DataBaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DataBase.Host, c.DataBase.Port, c.DataBase.User, c.DataBase.Pass, c.DataBase.Name)
}

func ParseConfig(path string) (*Config, error) {
	config := &Config{}
	if err := conf.ParseConfig(config, conf.EnvPrefix("NMJ"), conf.ConfigFile(path)); err != nil {
		return nil, errors.Wrap(err, "Failed to parse config")
	}
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "Invalid config")
	}
	return config, nil
}
