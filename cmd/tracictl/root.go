package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/seyedmohammadhosseini/veins/internal/config"
	"github.com/seyedmohammadhosseini/veins/internal/logging"
	"github.com/seyedmohammadhosseini/veins/internal/protocol/message"
	"github.com/seyedmohammadhosseini/veins/internal/session"
	"github.com/seyedmohammadhosseini/veins/internal/traci"
)

const (
	envHost = "TRACI_HOST"
	envPort = "TRACI_PORT"
)

type app struct {
	configPath string
	envFile    string
	host       string
	port       int
	dialect    string
	logLevel   string

	cfg     config.ClientConfig
	logger  zerolog.Logger
	conn    atomic.Pointer[traci.Connection]
	metrics *metricsServer

	// stopCancel detaches the context watcher that closes conn.
	stopCancel func() bool
}

// run executes one tracictl invocation and always releases the peer
// connection and metrics listener afterwards.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	a := &app{}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, a.teardown())
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tracictl",
		Short:         "Talk to a TraCI simulation peer",
		Long:          "tracictl connects to a traffic simulation peer and issues generic TraCI commands.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&a.configPath, "config", "c", config.DefaultPath, "config file; a missing default file means built-in defaults")
	f.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the config")
	f.StringVar(&a.host, "host", "", "peer host (overrides config and "+envHost+")")
	f.IntVarP(&a.port, "port", "p", 0, "peer port (overrides config and "+envPort+")")
	f.StringVar(&a.dialect, "dialect", "", "wire dialect: plain|sumo")
	f.StringVar(&a.logLevel, "log-level", "", "log level (overrides config)")

	root.AddCommand(
		a.versionCmd(),
		a.stepCmd(),
		a.closeCmd(),
		a.queryCmd(),
		a.convertCmd(),
		a.configCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", a.envFile, err)
	}

	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := a.applyOverrides(cmd, &cfg); err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	a.cfg = cfg

	logging.Configure(logging.ProfileRuntime, cfg.LogLevel)
	a.logger = logging.Component("tracictl")

	if cfg.MetricsAddr != "" {
		srv, err := startMetrics(cfg.MetricsAddr, cfg.Node, a.logger, a.health)
		if err != nil {
			return err
		}
		a.metrics = srv
	}
	return nil
}

func (a *app) loadConfig(cmd *cobra.Command) (config.ClientConfig, error) {
	cfg, err := config.Load(a.configPath)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		return config.Default(), nil
	}
	return config.ClientConfig{}, err
}

// applyOverrides layers the environment and then flags over the file.
func (a *app) applyOverrides(cmd *cobra.Command, cfg *config.ClientConfig) error {
	if v := strings.TrimSpace(os.Getenv(envHost)); v != "" {
		cfg.Host = v
	}
	if v := strings.TrimSpace(os.Getenv(envPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envPort, err)
		}
		cfg.Port = port
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = a.host
	}
	if flags.Changed("port") {
		cfg.Port = a.port
	}
	if flags.Changed("dialect") {
		d, err := message.ParseDialect(a.dialect)
		if err != nil {
			return err
		}
		cfg.Dialect = d
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	return nil
}

func (a *app) teardown() error {
	var errs []error
	if a.stopCancel != nil {
		a.stopCancel()
		a.stopCancel = nil
	}
	if conn := a.conn.Swap(nil); conn != nil {
		errs = append(errs, conn.Close())
	}
	if a.metrics != nil {
		errs = append(errs, a.metrics.shutdown())
		a.metrics = nil
	}
	return errors.Join(errs...)
}

// connect dials the configured peer with retry and applies configured net
// bounds, if any. Cancelling ctx closes the connection, which unblocks any
// exchange waiting on a silent peer.
func (a *app) connect(ctx context.Context) (*traci.Connection, error) {
	opts, err := a.cfg.ConnectionOptions()
	if err != nil {
		return nil, err
	}
	conn, err := session.Dial(ctx, a.cfg.Session, a.cfg.Host, a.cfg.Port, opts...)
	if err != nil {
		return nil, err
	}
	if b := a.cfg.Coordinates.Bounds; b != nil {
		if err := conn.SetNetbounds(b.LowerLeft, b.UpperRight, b.Margin); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	a.conn.Store(conn)
	a.stopCancel = context.AfterFunc(ctx, func() {
		a.logger.Warn().Str("conn", conn.ID()).Msg("interrupted; closing peer connection")
		_ = conn.Close()
	})
	return conn, nil
}

func (a *app) health() (string, bool) {
	conn := a.conn.Load()
	if conn == nil {
		return "idle", true
	}
	state := conn.State()
	return state.String(), state != traci.StateClosed
}
