package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/applyload/internal/campaign"
	"github.com/wesleyorama2/applyload/internal/config"
	"github.com/wesleyorama2/applyload/internal/output"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a load campaign against the form service",
		Long: `Run a load campaign against the form service.

Settings come from the defaults, then the config file, then APPLYLOAD_*
environment variables, then flags. When neither the session count nor the
duration is given, run asks for them on stdin.`,
		Example: `  # Ask for sessions and minutes
  applyload run

  # 200 sessions for 5 minutes against a local mock server
  applyload run --sessions 200 --minutes 5 --base-url http://localhost:8080/api/v1

  # From a config file, capped at 300 requests per second
  applyload run -c campaign.yaml --max-rps 300`,
		Args: cobra.NoArgs,
		RunE: runCampaign,
	}
	addRunFlags(cmd)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringP("config", "c", "", "Configuration file (YAML)")
	flags.Int("sessions", 0, "Number of sessions to launch during ramp-up")
	flags.Duration("duration", 0, "How long finished sessions are replaced (e.g. 90s, 5m)")
	flags.Float64("minutes", 0, "Duration in minutes, as asked by the prompt")
	flags.String("base-url", "", "Form service API root")
	flags.Float64("max-rps", 0, "Cap on requests per second across all sessions (0 = unlimited)")
	flags.Duration("poll-timeout", 0, "Give up on an offer decision after this long (0 = never)")
	flags.Int("max-poll-attempts", 0, "Give up on an offer decision after this many fetches (0 = never)")
	flags.Duration("poll-interval", 0, "Pause between offer decision fetches")
	flags.Duration("ramp-delay", 0, "Pause between session launches during ramp-up")
	flags.Duration("step-dwell", 0, "Pause before and after each form page")
	flags.BoolP("quiet", "q", false, "Suppress the progress line")
	flags.Bool("no-prompt", false, "Never ask for sessions or duration")
	flags.Bool("dry-run", false, "Print the effective configuration and exit")
	flags.Bool("show-active", false, "Show the live session count on the progress line")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: text, json")
	flags.String("summary-format", "", "Summary format: text, json, yaml")
}

func runCampaign(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		return enc.Close()
	}

	format, err := output.ParseFormat(cfg.Report.Format)
	if err != nil {
		return err
	}

	logger := cfg.Log.NewLogger(cmd.ErrOrStderr())

	hc := campaign.NewHTTPClient(cfg.Transport())
	limiter := cfg.Limiter()
	sessionOpts := cfg.Session(hc, limiter)
	sessionOpts.Logger = logger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	quiet, _ := cmd.Flags().GetBool("quiet")
	colors := output.SchemeFor(out)

	var reporter *output.Reporter
	opts := []campaign.Option{campaign.WithLogger(logger), campaign.WithThrottle(limiter)}
	if !quiet {
		opts = append(opts, campaign.WithOnStart(func(c *campaign.Campaign) {
			reporter = output.NewReporter(c, output.ReporterConfig{
				Writer:         out,
				RampDownWindow: campaign.RampDownWindow,
				ShowActive:     cfg.Report.ShowActive,
				Colors:         colors,
			})
			reporter.Start(ctx)
		}))
	}

	c, err := campaign.New(cfg.Campaign(), campaign.SessionFactory(sessionOpts), opts...)
	if err != nil {
		return err
	}

	if err := c.Run(ctx); err != nil {
		return err
	}
	if reporter != nil {
		<-reporter.Done()
	}

	if ctx.Err() != nil {
		logger.Warn("campaign interrupted", slog.String("reason", context.Cause(ctx).Error()))
	}

	return output.PrintSummary(out, c.Snapshot(), format, colors)
}

// loadConfig layers defaults, the config file, the environment, flags and
// finally the interactive prompt.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	path, _ := flags.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	noPrompt, _ := flags.GetBool("no-prompt")
	if noPrompt || path != "" {
		return cfg, nil
	}

	p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	if !flags.Changed("sessions") && !envSet("SESSIONS") {
		n, err := p.askInt("How many sessions?", cfg.Sessions)
		if err != nil {
			return nil, fmt.Errorf("sessions: %w", err)
		}
		cfg.Sessions = n
	}
	if !flags.Changed("duration") && !flags.Changed("minutes") &&
		!envSet("DURATION") && !envSet("DURATION_MINUTES") {
		minutes, err := p.askFloat("How many minutes?", cfg.Duration.Std().Minutes())
		if err != nil {
			return nil, fmt.Errorf("minutes: %w", err)
		}
		cfg.SetDurationMinutes(minutes)
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("sessions") {
		cfg.Sessions, _ = flags.GetInt("sessions")
	}
	if flags.Changed("duration") {
		d, _ := flags.GetDuration("duration")
		cfg.Duration = config.Duration(d)
	}
	if flags.Changed("minutes") {
		minutes, _ := flags.GetFloat64("minutes")
		cfg.SetDurationMinutes(minutes)
	}
	if flags.Changed("base-url") {
		cfg.BaseURL, _ = flags.GetString("base-url")
	}
	if flags.Changed("max-rps") {
		cfg.MaxRPS, _ = flags.GetFloat64("max-rps")
	}
	if flags.Changed("max-poll-attempts") {
		cfg.MaxPollAttempts, _ = flags.GetInt("max-poll-attempts")
	}
	if flags.Changed("show-active") {
		cfg.Report.ShowActive, _ = flags.GetBool("show-active")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Log.Format, _ = flags.GetString("log-format")
	}
	if flags.Changed("summary-format") {
		cfg.Report.Format, _ = flags.GetString("summary-format")
	}

	durations := []struct {
		flag string
		dst  *config.Duration
	}{
		{"poll-timeout", &cfg.PollTimeout},
		{"poll-interval", &cfg.PollInterval},
		{"ramp-delay", &cfg.RampDelay},
		{"step-dwell", &cfg.StepDwell},
	}
	for _, d := range durations {
		if !flags.Changed(d.flag) {
			continue
		}
		v, err := flags.GetDuration(d.flag)
		if err != nil {
			return err
		}
		*d.dst = config.Duration(v)
	}
	return nil
}

func envSet(name string) bool {
	_, ok := os.LookupEnv(config.EnvPrefix + name)
	return ok
}
