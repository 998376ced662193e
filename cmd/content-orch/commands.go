package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/hochfrequenz/content-pipeline/internal/approval"
	"github.com/hochfrequenz/content-pipeline/internal/brand"
	"github.com/hochfrequenz/content-pipeline/internal/config"
	"github.com/hochfrequenz/content-pipeline/internal/domain"
	"github.com/hochfrequenz/content-pipeline/internal/evaluator"
	"github.com/hochfrequenz/content-pipeline/internal/llm"
	"github.com/hochfrequenz/content-pipeline/internal/logging"
	"github.com/hochfrequenz/content-pipeline/internal/notify"
	"github.com/hochfrequenz/content-pipeline/internal/observer"
	"github.com/hochfrequenz/content-pipeline/internal/pipeline"
	"github.com/hochfrequenz/content-pipeline/internal/regenerator"
	"github.com/hochfrequenz/content-pipeline/internal/resilience"
	"github.com/hochfrequenz/content-pipeline/internal/schedule"
	"github.com/hochfrequenz/content-pipeline/internal/store"
	"github.com/hochfrequenz/content-pipeline/tui"
	"github.com/hochfrequenz/content-pipeline/web/api"
)

var (
	runPlatforms  []string
	runText       string
	listStatus    string
	listPlatform  string
	resolveStatus string
	resolveText   string
	resolveActor  string
	controlActor  string
	servePort     int
	historyLimit  int
	reviewerName  string
)

func init() {
	runCmd := &cobra.Command{
		Use:   "run TOPIC",
		Short: "Run the pipeline for a topic",
		Args:  cobra.ExactArgs(1),
		RunE:  runRun,
	}
	runCmd.Flags().StringSliceVar(&runPlatforms, "platforms", nil, "platforms to target (default from config)")
	runCmd.Flags().StringVar(&runText, "text", "", "pre-written draft (single platform only)")
	rootCmd.AddCommand(runCmd)

	approvalsCmd := &cobra.Command{
		Use:   "approvals",
		Short: "List approval requests",
		RunE:  runApprovals,
	}
	approvalsCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
	approvalsCmd.Flags().StringVar(&listPlatform, "platform", "", "filter by platform")
	rootCmd.AddCommand(approvalsCmd)

	resolveCmd := &cobra.Command{
		Use:   "resolve ID",
		Short: "Apply a reviewer decision to a pending approval",
		Args:  cobra.ExactArgs(1),
		RunE:  runResolve,
	}
	resolveCmd.Flags().StringVar(&resolveStatus, "decision", "", "approved, rejected, or edited")
	resolveCmd.Flags().StringVar(&resolveText, "text", "", "replacement text for edited decisions")
	resolveCmd.Flags().StringVar(&resolveActor, "actor", "cli", "who is deciding")
	rootCmd.AddCommand(resolveCmd)

	pauseCmd := &cobra.Command{
		Use:   "pause",
		Short: "Refuse new pipeline runs",
		RunE:  runPause,
	}
	pauseCmd.Flags().StringVar(&controlActor, "actor", "cli", "who is pausing")
	rootCmd.AddCommand(pauseCmd)

	resumeCmd := &cobra.Command{
		Use:   "resume",
		Short: "Accept pipeline runs again",
		RunE:  runResume,
	}
	resumeCmd.Flags().StringVar(&controlActor, "actor", "cli", "who is resuming")
	rootCmd.AddCommand(resumeCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show pipeline status",
		RunE:  runStatus,
	}
	rootCmd.AddCommand(statusCmd)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent run history",
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "records to show")
	rootCmd.AddCommand(historyCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the review dashboard API",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (default from config)")
	rootCmd.AddCommand(serveCmd)

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "Launch the review dashboard TUI",
		RunE:  runTUI,
	}
	tuiCmd.Flags().StringVar(&reviewerName, "reviewer", "", "reviewer name recorded on decisions")
	rootCmd.AddCommand(tuiCmd)

	listenCmd := &cobra.Command{
		Use:   "listen",
		Short: "Listen for Slack reviewer actions over socket mode",
		RunE:  runListen,
	}
	rootCmd.AddCommand(listenCmd)

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run configured jobs on their cron schedules",
		RunE:  runSchedule,
	}
	rootCmd.AddCommand(scheduleCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

// staticProfiles serves a fixed profile when no brand file is present
type staticProfiles struct {
	profile *brand.Profile
}

func (s staticProfiles) Profile() *brand.Profile { return s.profile }

// app bundles the wired pipeline components
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	store   *store.Store
	watcher *brand.Watcher
	machine *approval.Machine
	coord   *pipeline.Coordinator
	obs     *observer.Observer
}

func (a *app) close() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	a.store.Close()
}

func buildApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.General.LogLevel)

	st, err := store.New(cfg.General.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	var profiles pipeline.ProfileSource
	watcher, err := brand.NewWatcher(cfg.General.BrandProfilePath, log)
	if err != nil {
		log.Warn("brand profile unavailable, using defaults",
			"path", cfg.General.BrandProfilePath, "error", err)
		profiles = staticProfiles{profile: &brand.Profile{Name: "default"}}
	} else {
		profiles = watcher
	}

	apiKey := cfg.LLM.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	client := llm.NewClient(llm.Config{
		Endpoint: cfg.LLM.Endpoint,
		Model:    cfg.LLM.Model,
		APIKey:   apiKey,
		Timeout:  cfg.LLM.Timeout,
	})

	breakers := resilience.NewBreakerSet(cfg.Resilience.FailureThreshold, cfg.Resilience.RecoveryTimeout)
	retry := resilience.RetryConfig{
		MaxRetries:   cfg.Resilience.MaxRetries,
		InitialDelay: cfg.Resilience.InitialDelay,
		MaxDelay:     cfg.Resilience.MaxDelay,
		Base:         2.0,
	}

	eval := evaluator.New(llm.NewJudge(client), breakers, retry, evaluator.DefaultWeights(), log)
	regen, err := regenerator.New(eval, llm.NewImprover(client), regenerator.Config{
		MinimumScore:  cfg.Pipeline.MinimumScore,
		TargetScore:   cfg.Pipeline.TargetScore,
		MaxIterations: cfg.Pipeline.MaxIterations,
		PlateauGain:   cfg.Pipeline.PlateauGain,
	}, log)
	if err != nil {
		st.Close()
		return nil, err
	}

	machine := approval.New(st, buildChannel(cfg), log,
		approval.WithCheckInterval(cfg.Approval.CheckInterval))

	obs := observer.New()
	coord := pipeline.New(st, regen, machine, obs, profiles, llm.NewDrafter(client),
		cfg.Approval.Timeout, log)

	return &app{cfg: cfg, log: log, store: st, watcher: watcher,
		machine: machine, coord: coord, obs: obs}, nil
}

func buildChannel(cfg *config.Config) notify.Publisher {
	var publishers []notify.Publisher
	if cfg.Notifications.SlackWebhook != "" {
		publishers = append(publishers, notify.NewSlackPublisher(cfg.Notifications.SlackWebhook))
	}
	if cfg.Notifications.TelegramToken != "" && cfg.Notifications.TelegramChat != "" {
		publishers = append(publishers, notify.NewTelegramPublisher(cfg.Notifications.TelegramToken, cfg.Notifications.TelegramChat))
	}
	if cfg.Notifications.Console || len(publishers) == 0 {
		publishers = append(publishers, notify.NewConsolePublisher(os.Stdout))
	}
	if len(publishers) == 1 {
		return publishers[0]
	}
	return notify.NewMultiPublisher(publishers...)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext()
	defer cancel()
	if a.watcher != nil {
		a.watcher.Start(ctx)
	}

	platforms := runPlatforms
	if len(platforms) == 0 {
		platforms = a.cfg.Pipeline.Platforms
	}

	drafts := map[string]string{}
	if runText != "" {
		if len(platforms) != 1 {
			return fmt.Errorf("--text requires exactly one platform")
		}
		drafts[platforms[0]] = runText
	}

	result, err := a.coord.Run(ctx, args[0], platforms, drafts)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s finished in %s\n\n", result.RunID, result.Duration.Round(time.Millisecond))
	for _, leg := range result.Results {
		if leg.Err != nil {
			fmt.Printf("  %-10s FAILED: %v\n", leg.Platform, leg.Err)
			continue
		}
		fmt.Printf("  %-10s %-9s score %.2f\n%s\n\n", leg.Platform, leg.Decision.Status,
			leg.Evaluation.OverallScore, indent(leg.Candidate.Text))
	}
	if result.AllApproved {
		fmt.Println("All platforms approved.")
	} else {
		fmt.Println("Not all platforms approved.")
	}
	return nil
}

func indent(s string) string {
	return "    " + s
}

func runApprovals(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	approvals, err := a.store.ListApprovals(store.ListOptions{
		Status:   domain.ApprovalStatus(listStatus),
		Platform: listPlatform,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPLATFORM\tSCORE\tSTATUS\tEXPIRES")
	for _, req := range approvals {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\n",
			req.ID, req.Platform, req.Score, req.Status, req.ExpiresAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func runResolve(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	status := domain.ApprovalStatus(resolveStatus)
	if err := a.machine.Resolve(args[0], status, resolveActor, resolveText); err != nil {
		return err
	}
	fmt.Printf("%s %s by %s\n", args[0], status, resolveActor)
	return nil
}

func runPause(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()
	return a.coord.Pause(controlActor)
}

func runResume(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()
	return a.coord.Resume(controlActor)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	counts, err := a.store.CountApprovalsByStatus()
	if err != nil {
		return err
	}
	control, err := a.store.GetControlState()
	if err != nil {
		return err
	}

	state := "active"
	if control.Paused() {
		state = fmt.Sprintf("paused by %s", control.UpdatedBy)
	}
	fmt.Printf("Pipeline: %s\n", state)
	fmt.Printf("Approvals: %d pending, %d approved, %d edited, %d rejected, %d timed out\n",
		counts[domain.ApprovalPending], counts[domain.ApprovalApproved],
		counts[domain.ApprovalEdited], counts[domain.ApprovalRejected],
		counts[domain.ApprovalTimeout])
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	recs, err := a.store.ListCandidates(historyLimit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tTOPIC\tPLATFORM\tSCORE\tIMPROVED\tSTATUS")
	for _, rec := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%t\t%s\n",
			rec.RunID, rec.Topic, rec.Platform, rec.Score, rec.Improved, rec.ApprovalStatus)
	}
	return w.Flush()
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	port := servePort
	if port == 0 {
		port = a.cfg.Web.Port
	}
	addr := fmt.Sprintf("%s:%d", a.cfg.Web.Host, port)

	server := api.NewServer(a.store, a.machine, a.coord, a.obs, addr, a.log)
	return server.Start()
}

func runTUI(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	model := tui.NewModel(a.store, a.machine, reviewerName)
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

func runListen(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.Notifications.SlackAppToken == "" {
		return fmt.Errorf("notifications.slack_app_token is not configured")
	}

	ctx, cancel := signalContext()
	defer cancel()

	listener := notify.NewSocketListener(a.cfg.Notifications.SlackAppToken, a.machine, a.log)
	return listener.Run(ctx)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	if len(a.cfg.Jobs) == 0 {
		return fmt.Errorf("no jobs configured")
	}

	sched, err := schedule.New(a.cfg.Jobs, a.log)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	if a.watcher != nil {
		a.watcher.Start(ctx)
	}

	for _, name := range sched.ListJobs() {
		fmt.Printf("%s: next run %s\n", name, sched.NextRun(name).Format(time.RFC3339))
	}

	sched.Start(ctx, func(ctx context.Context, job config.JobConfig) error {
		platforms := job.Platforms
		if len(platforms) == 0 {
			platforms = a.cfg.Pipeline.Platforms
		}
		_, err := a.coord.Run(ctx, job.Topic, platforms, nil)
		return err
	})
	return nil
}
