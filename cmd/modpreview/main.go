package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/bruhnn/BD2ModPreview-sub001/internal/bootstrap"
	playbackdto "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/dto"
	settingsinadapter "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/settings/adapter/in"
	settingsdto "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/settings/dto"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/platform/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globalFlags struct {
	dataDir     string
	logLevel    string
	metricsAddr string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "modpreview",
		Short:         "Preview animated character mods from folders or URLs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", config.DefaultDataDir(), "directory holding config.yaml and the state database")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level override: trace|debug|info|warn|error")
	root.PersistentFlags().StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the command runs")

	root.AddCommand(newTUICmd(flags))
	root.AddCommand(newOpenCmd(flags))
	root.AddCommand(newInspectCmd(flags))
	root.AddCommand(newRepairCmd(flags))
	root.AddCommand(newHistoryCmd(flags))
	root.AddCommand(newSettingsCmd(flags))
	return root
}

// loadApp builds the application and starts the metrics listener when one is
// configured. The returned release func must always be called.
func loadApp(flags *globalFlags, logOut io.Writer) (*bootstrap.App, func(), error) {
	if err := os.MkdirAll(flags.dataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	cfg, err := config.New(flags.dataDir)
	if err != nil {
		return nil, nil, err
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if flags.metricsAddr != "" {
		cfg.MetricsAddr = flags.metricsAddr
	}
	app, err := bootstrap.New(cfg, logOut)
	if err != nil {
		return nil, nil, err
	}

	var srv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}))
		srv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				app.Logger.Warn("metrics listener stopped", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
	}

	release := func() {
		if srv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			_ = srv.Shutdown(ctx)
			cancel()
		}
		if err := app.Close(); err != nil {
			app.Logger.Warn("close app", "error", err)
		}
	}
	return app, release, nil
}

func newTUICmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui [folder]",
		Short: "Run the terminal previewer, optionally opening a mod folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := os.MkdirAll(flags.dataDir, 0o755); err != nil {
				return fmt.Errorf("create data dir: %w", err)
			}
			logFile, err := os.OpenFile(filepath.Join(flags.dataDir, "modpreview.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer logFile.Close()

			app, release, err := loadApp(flags, logFile)
			if err != nil {
				return err
			}
			defer release()

			var initial playbackdto.OpenInput
			if len(args) == 1 {
				initial = playbackdto.OpenInput{Kind: "folder", Path: args[0]}
			}
			return bootstrap.RunTUI(app, initial)
		},
	}
}

type openFlags struct {
	animation string
	noLoop    bool
	timeout   time.Duration
	asJSON    bool
}

func (f *openFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.animation, "animation", "", "animation to play after loading")
	cmd.Flags().BoolVar(&f.noLoop, "no-loop", false, "play the animation once instead of looping")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 30*time.Second, "give up waiting for the load after this long")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print the session as JSON")
}

func (f *openFlags) context(parent context.Context) (context.Context, context.CancelFunc) {
	if f.timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, f.timeout)
}

func newOpenCmd(flags *globalFlags) *cobra.Command {
	open := &cobra.Command{Use: "open", Short: "Load a source and report the resulting session"}

	folderFlags := &openFlags{}
	var repair bool
	folderCmd := &cobra.Command{
		Use:   "folder <path>",
		Short: "Load a mod folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, release, err := loadApp(flags, nil)
			if err != nil {
				return err
			}
			defer release()
			ctx, cancel := folderFlags.context(cmd.Context())
			defer cancel()

			view, err := app.PlaybackCLI.OpenFolder(ctx, args[0])
			if err == nil && repair && view.Error != nil && view.Error.CanRepair {
				view, err = app.PlaybackCLI.Repair(ctx)
			}
			return finishOpen(ctx, cmd, app, folderFlags, view, err)
		},
	}
	folderFlags.register(folderCmd)
	folderCmd.Flags().BoolVar(&repair, "repair", false, "download a missing skeleton and reload when the folder has none")

	urlFlags := &openFlags{}
	var skeletonFallback, atlasFallback string
	urlCmd := &cobra.Command{
		Use:   "url <skeleton-url> <atlas-url>",
		Short: "Load a skeleton and atlas over HTTP",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (skeletonFallback == "") != (atlasFallback == "") {
				return fmt.Errorf("--fallback-skeleton and --fallback-atlas must be given together")
			}
			app, release, err := loadApp(flags, nil)
			if err != nil {
				return err
			}
			defer release()
			ctx, cancel := urlFlags.context(cmd.Context())
			defer cancel()

			view, err := app.PlaybackCLI.OpenURL(ctx, args[0], args[1], skeletonFallback, atlasFallback)
			return finishOpen(ctx, cmd, app, urlFlags, view, err)
		},
	}
	urlFlags.register(urlCmd)
	urlCmd.Flags().StringVar(&skeletonFallback, "fallback-skeleton", "", "skeleton URL to try when the primary pair fails")
	urlCmd.Flags().StringVar(&atlasFallback, "fallback-atlas", "", "atlas URL to try when the primary pair fails")

	open.AddCommand(folderCmd, urlCmd)
	return open
}

func finishOpen(ctx context.Context, cmd *cobra.Command, app *bootstrap.App, f *openFlags, view playbackdto.SessionView, err error) error {
	if err != nil {
		return err
	}
	if f.animation != "" && view.IsActive {
		view, err = app.PlaybackCLI.SetAnimation(ctx, f.animation, !f.noLoop)
		if err != nil {
			return err
		}
	}
	if f.asJSON {
		return writeJSON(cmd.OutOrStdout(), view)
	}
	printSession(cmd.OutOrStdout(), view)
	if view.Error != nil {
		return fmt.Errorf("load failed: %s", view.Error.Kind)
	}
	return nil
}

func newInspectCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect <folder>",
		Short: "Show which skeleton and atlas a mod folder resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, release, err := loadApp(flags, nil)
			if err != nil {
				return err
			}
			defer release()
			out, err := app.PlaybackCLI.Inspect(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "folder:    %s\n", out.Folder)
			_, _ = fmt.Fprintf(w, "format:    %s\n", out.Format)
			_, _ = fmt.Fprintf(w, "skeleton:  %s\n", valueOr(out.Skeleton, "(missing)"))
			_, _ = fmt.Fprintf(w, "atlas:     %s\n", valueOr(out.Atlas, "(missing)"))
			_, _ = fmt.Fprintf(w, "character: %s\n", valueOr(out.CharacterID, "-"))
			_, _ = fmt.Fprintf(w, "mod:       %s %s\n", valueOr(out.ModType, "-"), out.ModID)
			for _, f := range out.RawDataFiles {
				_, _ = fmt.Fprintf(w, "raw data:  %s\n", f)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newRepairCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "repair <folder>",
		Short: "Download a missing skeleton for a mod folder and reload it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, release, err := loadApp(flags, nil)
			if err != nil {
				return err
			}
			defer release()

			view, err := app.PlaybackCLI.OpenFolder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if view.Error == nil {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "nothing to repair")
				printSession(cmd.OutOrStdout(), view)
				return nil
			}
			if !view.Error.CanRepair {
				printSession(cmd.OutOrStdout(), view)
				return fmt.Errorf("load failed with %s, which cannot be repaired", view.Error.Kind)
			}
			view, err = app.PlaybackCLI.Repair(cmd.Context())
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), view)
			if view.Error != nil {
				return fmt.Errorf("repair failed: %s", view.Error.Kind)
			}
			return nil
		},
	}
}

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	history := &cobra.Command{Use: "history", Short: "Recently loaded sources"}

	var asJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent sources, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, release, err := loadApp(flags, nil)
			if err != nil {
				return err
			}
			defer release()
			entries, err := app.HistoryCLI.List(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			if len(entries) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no history")
				return nil
			}
			for _, e := range entries {
				location := e.Path
				if e.Kind == "url" {
					location = e.SkeletonURL
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%4d  %s  %-6s %-10s %-8s %s\n",
					e.ID, e.Timestamp.Local().Format("2006-01-02 15:04"), e.Kind,
					valueOr(e.CharacterID, "-"), valueOr(e.ModType, "-"), location)
			}
			return nil
		},
	}
	listCmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")

	removeCmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove one history entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			app, release, err := loadApp(flags, nil)
			if err != nil {
				return err
			}
			defer release()
			if err := app.HistoryCLI.Remove(cmd.Context(), id); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed %d\n", id)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every history entry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, release, err := loadApp(flags, nil)
			if err != nil {
				return err
			}
			defer release()
			if err := app.HistoryCLI.Clear(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "history cleared")
			return nil
		},
	}

	history.AddCommand(listCmd, removeCmd, clearCmd)
	return history
}

func newSettingsCmd(flags *globalFlags) *cobra.Command {
	settings := &cobra.Command{Use: "settings", Short: "Persisted preview settings"}

	settings.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, release, err := loadApp(flags, nil)
			if err != nil {
				return err
			}
			defer release()
			s, err := app.SettingsCLI.Show(cmd.Context())
			if err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), s)
			return nil
		},
	})

	settings.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting (" + strings.Join(settingsinadapter.Keys, ", ") + ")",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, release, err := loadApp(flags, nil)
			if err != nil {
				return err
			}
			defer release()
			s, err := app.SettingsCLI.Set(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), s)
			return nil
		},
	})

	settings.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restore configured defaults",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, release, err := loadApp(flags, nil)
			if err != nil {
				return err
			}
			defer release()
			s, err := app.SettingsCLI.Reset(cmd.Context())
			if err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), s)
			return nil
		},
	})
	return settings
}

func printSession(w io.Writer, view playbackdto.SessionView) {
	_, _ = fmt.Fprintf(w, "state:     %s\n", view.State)
	if view.Source != "" {
		_, _ = fmt.Fprintf(w, "source:    %s\n", view.Source)
	}
	if view.IsFallbackActive {
		_, _ = fmt.Fprintln(w, "fallback:  active")
	}
	if view.CharacterID != "" || view.ModType != "" {
		_, _ = fmt.Fprintf(w, "character: %s (%s)\n", valueOr(view.CharacterID, "-"), valueOr(view.ModType, "-"))
	}
	if len(view.Animations) > 0 {
		_, _ = fmt.Fprintf(w, "animation: %s (loop=%t)\n", view.CurrentAnimation, view.Loop)
		_, _ = fmt.Fprintf(w, "available: %s\n", strings.Join(view.Animations, ", "))
	}
	if view.Error != nil {
		_, _ = fmt.Fprintf(w, "error:     %s: %s\n", view.Error.Kind, view.Error.Detail)
		for _, asset := range view.Error.FailedAssets {
			_, _ = fmt.Fprintf(w, "failed:    %s\n", asset)
		}
		if view.Error.CanRepair {
			_, _ = fmt.Fprintln(w, "hint:      rerun with --repair or use `modpreview repair` to download the skeleton")
		}
	}
	if view.Download.Error != "" {
		_, _ = fmt.Fprintf(w, "download:  %s\n", view.Download.Error)
	}
}

func printSettings(w io.Writer, s settingsdto.Settings) {
	_, _ = fmt.Fprintf(w, "background_color:    %s\n", valueOr(s.BackgroundColor, "(transparent)"))
	_, _ = fmt.Fprintf(w, "background_image:    %s\n", valueOr(s.BackgroundImage, "-"))
	_, _ = fmt.Fprintf(w, "premultiplied_alpha: %t\n", s.PremultipliedAlpha)
	_, _ = fmt.Fprintf(w, "loop:                %t\n", s.Loop)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
