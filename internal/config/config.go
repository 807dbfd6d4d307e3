// Package config handles configuration loading and management
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultReportPath is where the pytest JSON report is expected unless overridden.
const DefaultReportPath = "reports/test_summary.json"

// DefaultConfigFile is the YAML configuration file read when none is specified.
const DefaultConfigFile = "config.yaml"

// Clients toggles the downstream clients the run command dispatches to.
type Clients struct {
	Database bool `yaml:"database"`
	TestRail bool `yaml:"testrail"`
	Mail     bool `yaml:"mail"`
}

// TestRail holds the connection and run settings for the TestRail sync client.
type TestRail struct {
	BaseURL        string `yaml:"base_url"`
	Username       string `yaml:"username"`
	APIKey         string `yaml:"api_key"`
	ProjectName    string `yaml:"project_name"`
	SuiteID        int    `yaml:"suite_id"`
	RunName        string `yaml:"run_name"`
	RunDescription string `yaml:"run_description"`
}

// Database holds the Postgres connection settings for the statistics store.
type Database struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// Mail holds the SMTP settings for the notification client.
type Mail struct {
	SMTPServer     string   `yaml:"smtp_server"`
	Port           int      `yaml:"port"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	UseTLS         bool     `yaml:"use_tls"`
	Sender         string   `yaml:"sender"`
	Recipients     []string `yaml:"recipients"`
	SenderName     string   `yaml:"sender_name"`
	SenderPosition string   `yaml:"sender_position"`
}

// Suite carries metadata about the executed suite, used by the db and mail clients.
type Suite struct {
	Name         string `yaml:"name"`
	BuildVersion string `yaml:"build_version"`
	Branch       string `yaml:"branch"`
	TriggeredBy  string `yaml:"triggered_by"`
}

// Config is the full application configuration.
type Config struct {
	ReportPath string   `yaml:"report_path"`
	Clients    Clients  `yaml:"clients"`
	TestRail   TestRail `yaml:"testrail"`
	Database   Database `yaml:"database"`
	Mail       Mail     `yaml:"mail"`
	Suite      Suite    `yaml:"suite"`
}

// Load reads configuration from the YAML file (if present), the .env file and
// environment variables. Environment variables override file values so secrets
// can stay out of the config file.
func Load(path string) (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// It's okay if the file doesn't exist
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		ReportPath: DefaultReportPath,
		Database:   Database{Port: 5432},
		Mail:       Mail{Port: 587, UseTLS: true},
		Suite:      Suite{Name: "Automation Suite", TriggeredBy: "Automation"},
	}

	if path == "" {
		path = DefaultConfigFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	// Credentials routinely pick up stray whitespace when pasted into env files
	cfg.TestRail.Username = strings.TrimSpace(cfg.TestRail.Username)
	cfg.TestRail.APIKey = strings.TrimSpace(cfg.TestRail.APIKey)

	// Parse numeric values
	mailPort, err := getEnvInt("MAIL_PORT", cfg.Mail.Port)
	if err != nil {
		return nil, err
	}
	cfg.Mail.Port = mailPort

	dbPort, err := getEnvInt("DATABASE_PORT", cfg.Database.Port)
	if err != nil {
		return nil, err
	}
	cfg.Database.Port = dbPort

	suiteID, err := getEnvInt("TESTRAIL_SUITE_ID", cfg.TestRail.SuiteID)
	if err != nil {
		return nil, err
	}
	cfg.TestRail.SuiteID = suiteID

	useTLS, err := getEnvBool("MAIL_USE_TLS", cfg.Mail.UseTLS)
	if err != nil {
		return nil, err
	}
	cfg.Mail.UseTLS = useTLS

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.ReportPath = getEnv("QA_SYNC_REPORT", cfg.ReportPath)

	cfg.TestRail.BaseURL = getEnv("TESTRAIL_BASE_URL", cfg.TestRail.BaseURL)
	cfg.TestRail.Username = getEnv("TESTRAIL_USERNAME", cfg.TestRail.Username)
	cfg.TestRail.APIKey = getEnv("TESTRAIL_API_KEY", cfg.TestRail.APIKey)
	cfg.TestRail.ProjectName = getEnv("TESTRAIL_PROJECT", cfg.TestRail.ProjectName)
	cfg.TestRail.RunName = getEnv("TESTRAIL_RUN_NAME", cfg.TestRail.RunName)
	cfg.TestRail.RunDescription = getEnv("TESTRAIL_RUN_DESCRIPTION", cfg.TestRail.RunDescription)

	cfg.Database.Host = getEnv("DATABASE_HOST", cfg.Database.Host)
	cfg.Database.User = getEnv("DATABASE_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DATABASE_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = getEnv("DATABASE_NAME", cfg.Database.Name)

	cfg.Mail.SMTPServer = getEnv("MAIL_SMTP_SERVER", cfg.Mail.SMTPServer)
	cfg.Mail.Username = getEnv("MAIL_USERNAME", cfg.Mail.Username)
	cfg.Mail.Password = getEnv("MAIL_PASSWORD", cfg.Mail.Password)
	cfg.Mail.Sender = getEnv("MAIL_SENDER", cfg.Mail.Sender)
	cfg.Mail.SenderName = getEnv("MAIL_SENDER_NAME", cfg.Mail.SenderName)
	cfg.Mail.SenderPosition = getEnv("MAIL_SENDER_POSITION", cfg.Mail.SenderPosition)
	if recipients := os.Getenv("MAIL_RECIPIENTS"); recipients != "" {
		cfg.Mail.Recipients = splitRecipients(recipients)
	}
}

func (c *Config) String() string {
	apiKeyDisplay := "(not set)"
	if c.TestRail.APIKey != "" {
		apiKeyDisplay = "********"
	}

	dbPasswordDisplay := "(not set)"
	if c.Database.Password != "" {
		dbPasswordDisplay = "********"
	}

	mailPasswordDisplay := "(not set)"
	if c.Mail.Password != "" {
		mailPasswordDisplay = "********"
	}

	return fmt.Sprintf(`Current Configuration:
======================
Report Path:        %s
Clients:            database=%t testrail=%t mail=%t
TestRail URL:       %s
TestRail Username:  %s
TestRail API Key:   %s
TestRail Project:   %s
Database Host:      %s:%d
Database User:      %s
Database Password:  %s
Database Name:      %s
SMTP Server:        %s:%d
Mail Sender:        %s
Mail Password:      %s
Mail Recipients:    %s`,
		c.ReportPath,
		c.Clients.Database, c.Clients.TestRail, c.Clients.Mail,
		c.TestRail.BaseURL,
		c.TestRail.Username,
		apiKeyDisplay,
		c.TestRail.ProjectName,
		c.Database.Host, c.Database.Port,
		c.Database.User,
		dbPasswordDisplay,
		c.Database.Name,
		c.Mail.SMTPServer, c.Mail.Port,
		c.Mail.Sender,
		mailPasswordDisplay,
		strings.Join(c.Mail.Recipients, ", "),
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

// splitRecipients parses a comma-separated list of addresses.
func splitRecipients(s string) []string {
	parts := strings.Split(s, ",")
	recipients := make([]string, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}

	return recipients
}
