package bootstrap

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	hclog "github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	historyinadapter "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/history/adapter/in"
	historyoutadapter "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/history/adapter/out"
	historyservice "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/history/service"
	historyusecase "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/history/usecase"
	playbackinadapter "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/adapter/in"
	playbackoutadapter "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/adapter/out"
	playbackdomain "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/domain"
	playbackdto "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/dto"
	playbackout "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/port/out"
	playbackservice "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/service"
	playbackusecase "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/usecase"
	settingsinadapter "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/settings/adapter/in"
	settingsoutadapter "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/settings/adapter/out"
	settingsdomain "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/settings/domain"
	settingsdto "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/settings/dto"
	settingsservice "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/settings/service"
	settingsusecase "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/settings/usecase"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/platform/clock"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/platform/config"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/platform/httpclient"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/platform/id"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/platform/kv"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/platform/logging"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/platform/metrics"
	uiapp "github.com/bruhnn/BD2ModPreview-sub001/internal/ui/app"
)

type App struct {
	PlaybackCLI playbackinadapter.CLIHandler
	PlaybackTUI playbackinadapter.TUIHandler
	HistoryCLI  historyinadapter.CLIHandler
	SettingsCLI settingsinadapter.CLIHandler
	Registry    *prometheus.Registry
	Logger      hclog.Logger

	closers []io.Closer
}

// New wires every module against cfg. logOut receives structured logs; nil means stderr.
func New(cfg config.Config, logOut io.Writer) (*App, error) {
	logger := logging.New("modpreview", cfg.LogLevel, logOut)
	ctx := context.Background()

	store, err := kv.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	app := &App{Logger: logger, closers: []io.Closer{store}}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.Registry = registry

	historyUC := historyusecase.NewInteractor(historyservice.NewHistoryService(
		clock.SystemClock{},
		historyoutadapter.NewKVLedgerStore(store),
	))

	settingsUC := settingsusecase.NewInteractor(settingsservice.NewSettingsService(
		settingsdomain.Settings{
			BackgroundColor:    cfg.Defaults.BackgroundColor,
			BackgroundImage:    cfg.Defaults.BackgroundImage,
			PremultipliedAlpha: cfg.Defaults.PremultipliedAlpha,
			Loop:               cfg.Defaults.Loop,
		},
		settingsoutadapter.NewKVSettingsStore(store),
	))
	initial, err := settingsUC.Show(ctx)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	lookup, err := playbackoutadapter.NewYAMLCharacterLookup(cfg.CharactersFile)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	var inspector playbackout.Inspector = playbackoutadapter.NewFSInspector()
	if cfg.InspectorPlugin != "" {
		inspector = playbackoutadapter.NewGRPCInspector(cfg.InspectorPlugin, logger)
	}
	resolver := playbackservice.NewResolver(inspector, lookup, logger)
	controller := playbackservice.NewController(playbackservice.ControllerDeps{
		Resolver:   resolver,
		Engines:    playbackoutadapter.NewHeadlessEngineFactory(httpclient.Default(), logger),
		Classifier: playbackdomain.PatternClassifier{},
		History:    playbackoutadapter.NewHistoryRecorder(historyUC),
		Repair:     playbackoutadapter.NewHTTPRepairService(cfg.RepairBaseURL, httpclient.Default(), id.UUID{}, logger),
		Metrics:    metrics.NewPlayback(registry),
		Logger:     logger,
		Settings:   toPlaybackSettings(initial),
	})
	controller.AttachRenderTarget(playbackdomain.RenderTarget{Width: cfg.RenderTarget.Width, Height: cfg.RenderTarget.Height})
	playbackUC := playbackusecase.NewInteractor(controller, resolver)

	settingsUC.Subscribe(func(s settingsdto.Settings) {
		if err := playbackUC.ApplySettings(context.Background(), playbackdto.SettingsInput{
			BackgroundColor:    s.BackgroundColor,
			BackgroundImage:    s.BackgroundImage,
			PremultipliedAlpha: s.PremultipliedAlpha,
			Loop:               s.Loop,
		}); err != nil {
			logger.Warn("apply settings", "error", err)
		}
	})
	app.closers = append([]io.Closer{closerFunc(func() error { return playbackUC.Close(context.Background()) })}, app.closers...)

	app.PlaybackCLI = playbackinadapter.NewCLIHandler(playbackUC)
	app.PlaybackTUI = playbackinadapter.NewTUIHandler(playbackUC)
	app.HistoryCLI = historyinadapter.NewCLIHandler(historyUC)
	app.SettingsCLI = settingsinadapter.NewCLIHandler(settingsUC)
	return app, nil
}

func toPlaybackSettings(s settingsdto.Settings) playbackdomain.Settings {
	return playbackdomain.Settings{
		BackgroundColor:    s.BackgroundColor,
		BackgroundImage:    s.BackgroundImage,
		PremultipliedAlpha: s.PremultipliedAlpha,
		Loop:               s.Loop,
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Close releases the session and the state store.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var firstErr error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

// RunTUI runs the preview UI, opening initial first when given.
func RunTUI(app *App, initial playbackdto.OpenInput) error {
	model := uiapp.NewModel(app.PlaybackTUI, app.SettingsCLI, initial)
	program := tea.NewProgram(model, tea.WithAltScreen())
	unsubscribe := app.PlaybackTUI.Subscribe(func(view playbackdto.SessionView) {
		program.Send(uiapp.SessionUpdatedMsg{View: view})
	})
	defer unsubscribe()
	_, err := program.Run()
	return err
}
