package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

// tokenShape matches the Telegram bot token format: <bot_id>:<hash>.
var tokenShape = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)

// wizardAnswers collects everything the first-run wizard asks for. Raw
// secrets only ever land in the .env file; the config file references
// them as environment variables.
type wizardAnswers struct {
	Token         string
	APIKey        string
	Model         string
	Mode          string
	WebhookURL    string
	WebhookSecret string
	WriteEnv      bool
}

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactive first-run setup",
		Long: "Walks through bot token, API key, model, and update delivery,\n" +
			"then writes a config file that reads secrets from the environment.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			output, _ := cmd.Flags().GetString("output")
			force, _ := cmd.Flags().GetBool("force")
			return runInit(output, force)
		},
	}
	cmd.Flags().StringP("output", "o", "", "Where to write the config file (default: $XDG_CONFIG_HOME/gemgram/gemgram.yaml)")
	cmd.Flags().Bool("force", false, "Overwrite an existing config file")
	return cmd
}

func runInit(output string, force bool) error {
	cfgPath := output
	if cfgPath == "" {
		cfgPath = defaultInitPath()
	}
	if _, err := os.Stat(cfgPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
	}

	answers, err := runWizard()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(cfgPath, []byte(renderConfig(answers)), 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Printf("Wrote %s\n", cfgPath)

	if answers.WriteEnv {
		envPath := filepath.Join(filepath.Dir(cfgPath), ".env")
		if err := os.WriteFile(envPath, []byte(renderEnv(answers)), 0o600); err != nil {
			return fmt.Errorf("writing .env: %w", err)
		}
		fmt.Printf("Wrote %s (mode 0600)\n", envPath)
	} else {
		fmt.Println("\nExport the secrets before starting:")
		fmt.Println("  export TELEGRAM_BOT_TOKEN=...")
		fmt.Println("  export GEMINI_API_KEY=...")
		if answers.Mode == "webhook" && answers.WebhookSecret != "" {
			fmt.Println("  export TELEGRAM_WEBHOOK_SECRET=...")
		}
	}

	fmt.Println("\nStart the bot with:")
	fmt.Printf("  gemgram start --config %s\n", cfgPath)
	return nil
}

// runWizard drives the interactive prompts. Split into sequential forms so
// the webhook questions only appear when that mode is chosen.
func runWizard() (wizardAnswers, error) {
	a := wizardAnswers{
		Model: "gemini-2.5-flash",
		Mode:  "polling",
	}

	base := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Telegram bot token").
			Description("From @BotFather. Stored in the environment, not the config file.").
			EchoMode(huh.EchoModePassword).
			Validate(validateToken).
			Value(&a.Token),
		huh.NewInput().
			Title("Gemini API key").
			Description("From Google AI Studio.").
			EchoMode(huh.EchoModePassword).
			Validate(notEmpty("API key")).
			Value(&a.APIKey),
		huh.NewSelect[string]().
			Title("Gemini model").
			Options(
				huh.NewOption("gemini-2.5-flash (fast, recommended)", "gemini-2.5-flash"),
				huh.NewOption("gemini-2.5-pro (higher quality)", "gemini-2.5-pro"),
				huh.NewOption("gemini-2.0-flash", "gemini-2.0-flash"),
			).
			Value(&a.Model),
		huh.NewSelect[string]().
			Title("Update delivery").
			Options(
				huh.NewOption("Long polling (no public endpoint needed)", "polling"),
				huh.NewOption("Webhook (requires a public HTTPS URL)", "webhook"),
			).
			Value(&a.Mode),
	))
	if err := base.Run(); err != nil {
		return a, err
	}

	if a.Mode == "webhook" {
		webhook := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("Public webhook URL").
				Placeholder("https://bot.example.com/webhook/telegram").
				Validate(validateWebhookURL).
				Value(&a.WebhookURL),
			huh.NewInput().
				Title("Webhook secret token (optional)").
				Description("Telegram echoes it back so the gateway can reject forged requests.").
				EchoMode(huh.EchoModePassword).
				Value(&a.WebhookSecret),
		))
		if err := webhook.Run(); err != nil {
			return a, err
		}
	}

	confirm := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Write secrets to a .env file next to the config?").
			Description("Written with mode 0600. Otherwise export them yourself.").
			Affirmative("Yes").
			Negative("No").
			Value(&a.WriteEnv),
	))
	if err := confirm.Run(); err != nil {
		return a, err
	}

	return a, nil
}

func validateToken(s string) error {
	if !tokenShape.MatchString(strings.TrimSpace(s)) {
		return fmt.Errorf("expected <bot_id>:<hash>")
	}
	return nil
}

func validateWebhookURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("must be a public https:// URL")
	}
	return nil
}

func notEmpty(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}

// renderConfig produces the YAML config. Secrets are referenced as
// environment variables so the file is safe to commit or share.
func renderConfig(a wizardAnswers) string {
	var b strings.Builder
	b.WriteString("version: \"1\"\n")
	b.WriteString("\n")
	b.WriteString("log:\n")
	b.WriteString("  level: info\n")
	b.WriteString("  format: json\n")
	b.WriteString("\n")
	b.WriteString("modules:\n")
	b.WriteString("  channel.telegram:\n")
	b.WriteString("    token: ${TELEGRAM_BOT_TOKEN}\n")
	fmt.Fprintf(&b, "    mode: %s\n", a.Mode)
	if a.Mode == "webhook" {
		fmt.Fprintf(&b, "    webhook_url: %s\n", a.WebhookURL)
		if a.WebhookSecret != "" {
			b.WriteString("    webhook_secret: ${TELEGRAM_WEBHOOK_SECRET}\n")
		}
	}
	b.WriteString("  provider.gemini:\n")
	b.WriteString("    api_key: ${GEMINI_API_KEY}\n")
	fmt.Fprintf(&b, "    model: %s\n", a.Model)
	b.WriteString("  store.sqlite: {}\n")
	b.WriteString("  gateway.http:\n")
	b.WriteString("    bind: 127.0.0.1:8080\n")
	return b.String()
}

// renderEnv produces the .env contents holding the raw secrets.
func renderEnv(a wizardAnswers) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TELEGRAM_BOT_TOKEN=%s\n", a.Token)
	fmt.Fprintf(&b, "GEMINI_API_KEY=%s\n", a.APIKey)
	if a.Mode == "webhook" && a.WebhookSecret != "" {
		fmt.Fprintf(&b, "TELEGRAM_WEBHOOK_SECRET=%s\n", a.WebhookSecret)
	}
	return b.String()
}

// defaultInitPath returns where init writes the config when --output is
// not given: $XDG_CONFIG_HOME/gemgram/gemgram.yaml, falling back to
// ~/.config/gemgram/gemgram.yaml.
func defaultInitPath() string {
	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		return filepath.Join(xdg, "gemgram", "gemgram.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "gemgram.yaml"
	}
	return filepath.Join(home, ".config", "gemgram", "gemgram.yaml")
}
