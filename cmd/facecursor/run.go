package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-facecursor/internal/log"
	"github.com/teslashibe/go-facecursor/pkg/artifact"
	"github.com/teslashibe/go-facecursor/pkg/camera"
	"github.com/teslashibe/go-facecursor/pkg/cursor"
	"github.com/teslashibe/go-facecursor/pkg/engine"
	"github.com/teslashibe/go-facecursor/pkg/engine/yunet"
	"github.com/teslashibe/go-facecursor/pkg/fault"
	"github.com/teslashibe/go-facecursor/pkg/host"
	"github.com/teslashibe/go-facecursor/pkg/pipeline"
	"github.com/teslashibe/go-facecursor/pkg/plugin"
	"github.com/teslashibe/go-facecursor/pkg/tracking"
	"github.com/teslashibe/go-facecursor/pkg/web"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start face tracking and serve the cursor page",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTracking(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runTracking(ctx context.Context) error {
	logger := log.Component("facecursor")

	cur := cursor.New(cfg.ViewportSize())
	cam := camera.NewManager(cfg.CameraConstraints())
	registry := plugin.NewRegistry(log.Component("plugin"))

	server := web.NewServer(cfg.Server.Addr, cur, web.WithAssetsDir(cfg.Assets.Dir))
	cur.AddPublisher(server)

	notifier := fault.NewHandler(log.Component("fault"), fault.BoxWriter{W: os.Stderr}, server)

	if cfg.Overlay.Enabled {
		if err := registry.Register(plugin.NewDebugOverlay(server, cfg.Overlay.Every, cfg.Overlay.Quality)); err != nil {
			return err
		}
	}
	presence := plugin.NewPresence(func(found bool, f tracking.Frame) {
		if found {
			server.AddLog("face", fmt.Sprintf("face found (frame %d)", f.Seq))
		} else {
			server.AddLog("face", fmt.Sprintf("face lost (frame %d)", f.Seq))
		}
	})
	if err := registry.Register(presence); err != nil {
		return err
	}

	pcfg := pipeline.DefaultConfig(cfg.Assets.URL)
	pcfg.LicenseKey = cfg.Engine.LicenseKey
	pcfg.ReadyPolicy = cfg.ReadyPolicy(engine.ReadyPollInterval)
	pcfg.Tracking = cfg.TrackingConfig()

	bar := newDownloadBar("Loading engine")

	p := pipeline.New(pcfg, pipeline.Deps{
		Environment: host.NewEnvironment(cfg.Assets.ForceFallback),
		Loader:      artifact.NewLoader(artifact.WithProgress(bar.Update)),
		Injector:    yunet.Injector(yunet.DefaultConfig()),
		Camera:      host.NewWebcam(nil),
		Cursor:      cur,
		Notifier:    notifier,
		Constraints: cam.Constraints,
		Observers:   []tracking.Observer{registry},
		OnStatus:    func(s pipeline.Status) { server.UpdateStatus(s) },
	})

	server.Plugins = registry
	server.Camera = cam
	server.Tuner = p
	server.OnStatus = func() any { return p.Status() }

	// A new camera request takes effect by releasing and reacquiring the
	// stream; the engine stays loaded.
	var restartMu sync.Mutex
	cam.OnChange = func(camera.Constraints) error {
		restartMu.Lock()
		defer restartMu.Unlock()
		if !p.IsTracking() {
			return nil
		}
		p.Stop()
		return p.Start(ctx)
	}

	server.StartAsync()
	defer server.Shutdown()

	fmt.Printf("🙂 facecursor %s (pipeline %s)\n", Version, p.ID())
	fmt.Printf("🌐 Cursor page: http://%s\n", pageAddr(cfg.Server.Addr))

	if err := p.Start(ctx); err != nil {
		bar.Finish()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		// Keep serving so open pages can show the alert.
		fmt.Println("⚠️  Tracking did not start; the page shows why (Ctrl+C to exit)")
		<-ctx.Done()
		return fmt.Errorf("%w: %w", errPresented, err)
	}
	bar.Finish()

	logger.Info("tracking", "variant", p.Status().Variant)
	fmt.Println("🎯 Tracking (Ctrl+C to stop)")

	<-ctx.Done()
	fmt.Println("\n👋 Stopping")
	p.Stop()
	return nil
}

// pageAddr turns a listen address like ":8090" into something clickable.
func pageAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}

// downloadBar shows artifact progress once the size is known.
type downloadBar struct {
	desc string

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newDownloadBar(desc string) *downloadBar {
	return &downloadBar{desc: desc}
}

// Update implements artifact.ProgressFunc.
func (d *downloadBar) Update(read, total int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bar == nil {
		d.bar = progressbar.NewOptions64(total,
			progressbar.OptionSetDescription(d.desc),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowBytes(true),
			progressbar.OptionClearOnFinish(),
		)
	}
	d.bar.Set64(read)
}

// Finish completes the bar, if one was shown.
func (d *downloadBar) Finish() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bar != nil {
		d.bar.Finish()
	}
}
