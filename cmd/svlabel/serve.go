package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cjeanneret/svlabel/internal/config"
	"github.com/cjeanneret/svlabel/internal/debug"
	"github.com/cjeanneret/svlabel/internal/logic/label"
	"github.com/cjeanneret/svlabel/internal/logic/prediction"
	"github.com/cjeanneret/svlabel/internal/web"
)

// serveOverrides are command-line values that replace config values when non-zero.
type serveOverrides struct {
	Port           int
	CanvasWidthPx  int
	CanvasHeightPx int
	Threshold      float64
}

var (
	servePort     = portFlag{defaultPort: 8080}
	serveOverride serveOverrides
	serveReadOnly bool
	servePredict  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the labeling web server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		serveOverride.Port = servePort.port()
		if err := validateServeOverrides(serveOverride); err != nil {
			return fmt.Errorf("invalid override: %w", err)
		}
		runCfg := applyOverridesToCopy(cfg, serveOverride)
		if serveReadOnly {
			runCfg.Storage.ReadOnly = true
		}
		if servePredict {
			runCfg.Prediction.Enabled = true
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return runServer(ctx, runCfg)
	},
}

func runServer(ctx context.Context, c *config.Config) error {
	broadcaster := web.NewStatusBroadcaster()
	debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))
	defer debug.SetOutput(os.Stdout)

	debug.Step(1, "Opening label database")
	db, err := openStore(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	debug.Value("Database", db.Path())
	debug.Value("Read only", db.IsReadOnly())

	debug.Step(2, "Loading stored labels")
	labels := label.NewContainer()
	stored, err := db.ListLabels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list labels: %w", err)
	}
	for _, l := range stored {
		labels.Add(l)
	}
	debug.Info("Loaded %d labels", len(stored))

	var predictor *prediction.Predictor
	if c.Prediction.Enabled {
		debug.Step(3, "Loading prediction model")
		if predictor, err = newPredictor(c); err != nil {
			return err
		}
	}

	debug.PrintStruct("Viewer config", c.Viewer)
	debug.PrintStruct("Prediction config", c.Prediction)
	debug.Summary(fmt.Sprintf("Serving %d labels on %s", len(stored), c.WebAddr()))

	srv, err := web.NewServer(c.WebAddr(), web.Options{
		Broadcaster: broadcaster,
		Labels:      labels,
		Store:       db,
		Predictor:   predictor,
		Viewer: web.ViewerConfig{
			CanvasWidthPx:     c.Viewer.CanvasWidthPx,
			CanvasHeightPx:    c.Viewer.CanvasHeightPx,
			LabelIconRadiusPx: c.LabelIconRadius(),
		},
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

// newPredictor builds the mistake predictor from the prediction config.
func newPredictor(c *config.Config) (*prediction.Predictor, error) {
	scorer, err := prediction.NewLinearScorer(c.Prediction.Weights, c.Prediction.Bias)
	if err != nil {
		return nil, fmt.Errorf("prediction scorer: %w", err)
	}
	thresholds := make(map[label.Type]float64)
	for name, km := range c.ClusterThresholdsKm() {
		t, err := label.ParseType(name)
		if err != nil {
			return nil, fmt.Errorf("prediction.cluster_thresholds_km: %w", err)
		}
		thresholds[t] = km
	}

	clusters := prediction.NewClusters(thresholds)
	if c.Prediction.ClustersPath != "" {
		if clusters, err = prediction.LoadClustersFile(c.Prediction.ClustersPath, thresholds); err != nil {
			return nil, err
		}
	}
	return prediction.NewPredictor(scorer, clusters, c.Prediction.Threshold), nil
}

// validateServeOverrides checks that non-zero overrides are within valid ranges.
// Zero values are ignored (they mean "use config default").
func validateServeOverrides(o serveOverrides) error {
	if o.Port < 0 || o.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", o.Port)
	}
	if o.CanvasWidthPx < 0 {
		return fmt.Errorf("canvas width must be positive, got %d", o.CanvasWidthPx)
	}
	if o.CanvasHeightPx < 0 {
		return fmt.Errorf("canvas height must be positive, got %d", o.CanvasHeightPx)
	}
	if o.Threshold != 0 {
		if math.IsNaN(o.Threshold) || math.IsInf(o.Threshold, 0) || o.Threshold < 0 || o.Threshold > 1 {
			return fmt.Errorf("threshold must be between 0 and 1, got %g", o.Threshold)
		}
	}
	return nil
}

// applyOverridesToCopy returns a new config with overrides applied.
// Zero values in overrides mean "use base config".
func applyOverridesToCopy(baseCfg *config.Config, o serveOverrides) *config.Config {
	c := *baseCfg
	if o.Port > 0 {
		c.Web.Port = o.Port
	}
	if o.CanvasWidthPx > 0 {
		c.Viewer.CanvasWidthPx = o.CanvasWidthPx
	}
	if o.CanvasHeightPx > 0 {
		c.Viewer.CanvasHeightPx = o.CanvasHeightPx
	}
	if o.Threshold > 0 {
		c.Prediction.Threshold = o.Threshold
	}
	return &c
}

// portFlag implements pflag.Value for --port: 0 = config port, --port= → 8080, --port 8980 → 8980.
type portFlag struct {
	val         int
	defaultPort int
}

func (p *portFlag) String() string {
	return strconv.Itoa(p.val)
}

func (p *portFlag) Set(s string) error {
	if s == "" {
		p.val = p.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	p.val = v
	return nil
}

func (p *portFlag) Type() string { return "port" }
func (p *portFlag) port() int    { return p.val }

func init() {
	serveCmd.Flags().Var(&servePort, "port", "listen on this port instead of web.port")
	serveCmd.Flags().IntVar(&serveOverride.CanvasWidthPx, "canvas-width", 0, "override viewer canvas width in pixels")
	serveCmd.Flags().IntVar(&serveOverride.CanvasHeightPx, "canvas-height", 0, "override viewer canvas height in pixels")
	serveCmd.Flags().Float64Var(&serveOverride.Threshold, "threshold", 0, "override prediction popup threshold (0-1)")
	serveCmd.Flags().BoolVar(&serveReadOnly, "read-only", false, "refuse label writes")
	serveCmd.Flags().BoolVar(&servePredict, "predict", false, "enable mistake prediction")

	rootCmd.AddCommand(serveCmd)
}
