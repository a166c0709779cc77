package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mustfahassan/pd-calculator/internal/app"
	"github.com/mustfahassan/pd-calculator/internal/capture"
	"github.com/mustfahassan/pd-calculator/internal/client"
	"github.com/mustfahassan/pd-calculator/internal/config"
	"github.com/mustfahassan/pd-calculator/internal/detector"
	"github.com/mustfahassan/pd-calculator/internal/logging"
	"github.com/mustfahassan/pd-calculator/internal/measure"
	"github.com/mustfahassan/pd-calculator/internal/metrics"
	"github.com/mustfahassan/pd-calculator/internal/server"
	"github.com/mustfahassan/pd-calculator/internal/session"
	"github.com/mustfahassan/pd-calculator/internal/store"
	"github.com/mustfahassan/pd-calculator/internal/tray"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// dataDirName is the per-user directory under $HOME for the database and assets.
const dataDirName = ".pdcalc"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pdcalc",
		Short: "pdcalc measures pupillary distance from a webcam",
		Long: `pdcalc guides you into position in front of the camera, waits until your
face is aligned and steady, counts down and measures your pupillary distance.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newCalcCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newServeCmd() *cobra.Command {
	var (
		envFile   string
		addr      string
		cameraID  int
		dbPath    string
		det       string
		logLevel  string
		withTray  bool
		autoStart bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the measurement server and capture session",
		Long: `Serve the browser UI, the live preview and the measurement endpoint.
Settings come from PDCALC_* environment variables (optionally from a .env
file); flags override them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("addr") {
				cfg.Addr = addr
			}
			if flags.Changed("camera") {
				cfg.CameraID = cameraID
			}
			if flags.Changed("db") {
				cfg.DBPath = dbPath
			}
			if flags.Changed("detector") {
				cfg.Detector = det
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if flags.Changed("tray") {
				cfg.Tray = withTray
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return runServe(cmd.Context(), cfg, autoStart)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file to read settings from")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	cmd.Flags().IntVar(&cameraID, "camera", 0, "camera device index")
	cmd.Flags().StringVar(&dbPath, "db", "", "calculation log database (default ~/.pdcalc/pdcalc.db)")
	cmd.Flags().StringVar(&det, "detector", config.DetectorMediaPipe, "landmark detector: mediapipe or mock")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	cmd.Flags().BoolVar(&withTray, "tray", false, "show a system tray menu")
	cmd.Flags().BoolVar(&autoStart, "start", false, "start capturing immediately")

	return cmd
}

func runServe(parent context.Context, cfg config.Config, autoStart bool) error {
	log, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Caller: cfg.LogLevel == "debug"})
	if err != nil {
		return err
	}

	dbPath, err := resolveDBPath(cfg.DBPath)
	if err != nil {
		return err
	}
	st, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()

	m := metrics.New()

	var landmarks detector.Detector
	if cfg.Detector == config.DetectorMock {
		landmarks = detector.NewMockDetector()
	}

	sessionCfg := session.DefaultConfig()
	sessionCfg.Threshold = cfg.Threshold
	sessionCfg.CountdownSteps = cfg.CountdownSteps

	sess, err := app.New(app.Config{
		CameraConfig: capture.Config{
			DeviceID: cfg.CameraID,
			Width:    cfg.FrameWidth,
			Height:   cfg.FrameHeight,
			FPS:      cfg.FPS,
		},
		Session:           sessionCfg,
		CountdownInterval: cfg.CountdownInterval,
		SubmitTimeout:     cfg.SubmitTimeout,
		Detector:          landmarks,
		Measurer:          client.New(cfg.LocalMeasureURL(), &http.Client{Timeout: cfg.SubmitTimeout}),
		Metrics:           m,
		Logger:            log,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	webDir := cfg.StaticDir
	if _, err := os.Stat(webDir); err != nil {
		webDir = findWebDir()
	}
	if webDir != "" {
		log.WithField("dir", webDir).Info("Serving static files")
	}

	srv := server.New(server.Config{
		StaticDir:  webDir,
		Session:    sess,
		Preview:    sess.Preview(),
		Calculator: measure.NewCalculator(cfg.MinConfidence),
		Store:      st,
		Metrics:    m,
		Logger:     log,
		RateLimit:  cfg.RateLimit,
		RateBurst:  cfg.RateBurst,
	})

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(ctx, cfg.Addr)
	})

	if autoStart {
		if err := sess.Start(); err != nil {
			log.WithError(err).Warn("Could not start capture")
		}
	}

	if !cfg.Tray {
		return g.Wait()
	}

	// systray owns the main thread until it quits.
	t := newTray(sess, browserURL(cfg.Addr), log, stop)
	g.Go(func() error {
		<-ctx.Done()
		t.Quit()
		return nil
	})
	t.Run()
	stop()
	return g.Wait()
}

func newTray(sess *app.App, url string, log *logrus.Logger, quit func()) *tray.Tray {
	t := tray.New()
	t.OnStart(sess.Start)
	t.OnStop(sess.Stop)
	t.OnOpen(func() {
		if err := openBrowser(url); err != nil {
			log.WithError(err).Warn("Could not open browser")
		}
	})
	t.OnQuit(quit)
	sess.Subscribe(t.Update)
	return t
}

func newCalcCmd() *cobra.Command {
	var minConfidence float64

	cmd := &cobra.Command{
		Use:   "calc <landmarks.json>",
		Short: "Compute PD from a saved landmark set",
		Long: `Read a /calculate_pd request body ({"landmarks": {"0": {"x":..}, ...}})
from a file, or stdin when the argument is "-", and print the result.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			req, err := measure.DecodeRequest(in)
			if err != nil {
				return fmt.Errorf("read landmarks: %w", err)
			}

			result := measure.NewCalculator(minConfidence).Calculate(req.Landmarks)
			if err := measure.EncodeResult(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if !result.OK() {
				return errors.New(result.Message)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&minConfidence, "min-confidence", measure.DefaultMinConfidence, "reject results below this confidence (0-100, -1 disables)")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pdcalc %s\n", version)
		},
	}
}

// resolveDBPath returns path, or ~/.pdcalc/pdcalc.db when it is empty,
// creating the parent directory.
func resolveDBPath(path string) (string, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home directory: %w", err)
		}
		path = filepath.Join(homeDir, dataDirName, "pdcalc.db")
	}
	if path == ":memory:" {
		return path, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return path, nil
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.pdcalc/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, dataDirName, "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

func browserURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
