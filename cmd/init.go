package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactively create a .env file",
	Long: `Prompts for the TestRail, database and mail connection settings and
writes them to a .env file in the current directory. Existing files are not
overwritten unless confirmed.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runInit()
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// envAnswers collects the prompted connection settings.
type envAnswers struct {
	TestRailURL      string
	TestRailUsername string
	TestRailAPIKey   string
	TestRailProject  string
	DatabaseHost     string
	DatabaseUser     string
	DatabasePassword string
	DatabaseName     string
	SMTPServer       string
	MailUsername     string
	MailPassword     string
	MailSender       string
	MailRecipients   string
}

func runInit() error {
	if _, err := os.Stat(".env"); err == nil {
		overwrite := false
		prompt := &survey.Confirm{
			Message: "A .env file already exists. Overwrite it?",
			Default: false,
		}
		if err := survey.AskOne(prompt, &overwrite); err != nil {
			return err
		}
		if !overwrite {
			fmt.Println("Keeping the existing .env file.")
			return nil
		}
	}

	questions := []*survey.Question{
		{Name: "TestRailURL", Prompt: &survey.Input{Message: "TestRail base URL (e.g. https://yourcompany.testrail.io):"}},
		{Name: "TestRailUsername", Prompt: &survey.Input{Message: "TestRail username/email:"}},
		{Name: "TestRailAPIKey", Prompt: &survey.Password{Message: "TestRail API key:"}},
		{Name: "TestRailProject", Prompt: &survey.Input{Message: "TestRail project name:"}},
		{Name: "DatabaseHost", Prompt: &survey.Input{Message: "Database host:", Default: "localhost"}},
		{Name: "DatabaseUser", Prompt: &survey.Input{Message: "Database user:"}},
		{Name: "DatabasePassword", Prompt: &survey.Password{Message: "Database password:"}},
		{Name: "DatabaseName", Prompt: &survey.Input{Message: "Database name:"}},
		{Name: "SMTPServer", Prompt: &survey.Input{Message: "SMTP server:"}},
		{Name: "MailUsername", Prompt: &survey.Input{Message: "SMTP username:"}},
		{Name: "MailPassword", Prompt: &survey.Password{Message: "SMTP password:"}},
		{Name: "MailSender", Prompt: &survey.Input{Message: "Mail sender address:"}},
		{Name: "MailRecipients", Prompt: &survey.Input{Message: "Mail recipients (comma-separated):"}},
	}

	var answers envAnswers
	if err := survey.Ask(questions, &answers); err != nil {
		return err
	}

	content := renderEnvFile(answers)
	if err := os.WriteFile(".env", []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write .env file: %w", err)
	}

	fmt.Println("Wrote .env - enable clients and suite metadata in config.yaml.")
	return nil
}

func renderEnvFile(a envAnswers) string {
	var b strings.Builder

	write := func(key, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s=%s\n", key, value)
		}
	}

	write("TESTRAIL_BASE_URL", a.TestRailURL)
	write("TESTRAIL_USERNAME", a.TestRailUsername)
	write("TESTRAIL_API_KEY", a.TestRailAPIKey)
	write("TESTRAIL_PROJECT", a.TestRailProject)
	write("DATABASE_HOST", a.DatabaseHost)
	write("DATABASE_USER", a.DatabaseUser)
	write("DATABASE_PASSWORD", a.DatabasePassword)
	write("DATABASE_NAME", a.DatabaseName)
	write("MAIL_SMTP_SERVER", a.SMTPServer)
	write("MAIL_USERNAME", a.MailUsername)
	write("MAIL_PASSWORD", a.MailPassword)
	write("MAIL_SENDER", a.MailSender)
	write("MAIL_RECIPIENTS", a.MailRecipients)

	return b.String()
}
