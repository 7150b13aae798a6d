package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/canlog/internal/cliconfig"
	"github.com/bft-labs/canlog/pkg/canlog"
	logAdapter "github.com/bft-labs/canlog/pkg/log"
	"github.com/bft-labs/canlog/plugins/configwatcher"
	"github.com/bft-labs/canlog/plugins/logretention"
)

const longHelp = `Record a CAN bus serial link to per-minute CSV files.

canlog reads 20-byte frames starting with the sync marker AA 55 from a
serial port, timestamps them with microsecond resolution and appends them
to Logs/CAN_<yyyyMMdd>_<HHmm>.csv once per flush interval:

  13:37:02.123456,AA 55 00 01 02 03 04 05 06 07 08 09 0A 0B 0C 0D 0E 0F 10 11

Port and baud rate come from config.ini next to the executable, which is
created with Port=COM3 and Baud=115200 on first run. They can be
overridden by $HOME/.canlog/config.toml, CANLOG_* variables or flags.`

var exampleUsage = strings.TrimSpace(`
  canlog --port /dev/ttyUSB0 --baud 921600
  canlog --config ./canlog.toml --watch
  canlog status --log-dir Logs
  canlog verify Logs/CAN_20240131_1405.csv
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := logAdapter.NewConsoleLogger(os.Stderr, zerolog.InfoLevel)

	root := &cobra.Command{
		Use:           "canlog",
		Short:         "Record a CAN bus serial link to per-minute CSV files",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			// Flag values are the base every reload starts from.
			base := cfg
			load := func() (cliconfig.Config, error) {
				next := base
				if err := cliconfig.Load(&next, cfgPath, changed); err != nil {
					return next, err
				}
				if err := next.Validate(); err != nil {
					return next, err
				}
				return next, nil
			}

			current, err := load()
			if err != nil {
				return err
			}

			level, err := logAdapter.ParseLevel(current.LogLevel)
			if err != nil {
				return fmt.Errorf("log level: %w", err)
			}
			log = log.Level(level)
			log.Info().Interface("config", current).Msg("configuration")

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			reload := make(chan struct{}, 1)
			if current.Watch {
				watchPath := cfgPath
				if watchPath == "" {
					watchPath = cliconfig.DefaultConfigPath()
				}
				w := configwatcher.New(configwatcher.Config{
					DebounceDelay: 500 * time.Millisecond,
					Files:         []string{watchPath, current.SettingsPath},
					OnChange: func(string) {
						select {
						case reload <- struct{}{}:
						default:
						}
					},
				}, logAdapter.NewZerologAdapterWithLogger(log))
				go func() {
					if err := w.Run(ctx); err != nil {
						log.Warn().Err(err).Msg("config watch disabled")
					}
				}()
			}

			for {
				restart, err := runCapture(ctx, current, log, cmd.OutOrStdout(), reload)
				if err != nil || !restart {
					return err
				}

				next, err := load()
				if err != nil {
					log.Error().Err(err).Msg("config reload failed, keeping previous configuration")
					continue
				}
				current = next
				log.Info().Interface("config", current).Msg("configuration reloaded")
			}
		},
	}

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.canlog/config.toml)")
	f.StringVar(&cfg.SettingsPath, "settings", cfg.SettingsPath, "legacy settings file holding Port and Baud")
	f.StringVar(&cfg.Port, "port", cfg.Port, "serial port name, e.g. COM3 or /dev/ttyUSB0")
	f.IntVar(&cfg.Baud, "baud", cfg.Baud, "serial baud rate")
	f.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "directory receiving the CAN_*.csv files")

	f.DurationVar(&cfg.FlushInterval, "flush-interval", cfg.FlushInterval, "period between two log file appends")
	f.DurationVar(&cfg.StatusInterval, "status-interval", cfg.StatusInterval, "period of the status readout")
	f.DurationVar(&cfg.Grace, "grace", cfg.Grace, "time given to the stages on stop before the port is closed")
	f.BoolVar(&cfg.FlushOnStop, "flush-on-stop", cfg.FlushOnStop, "write queued frames on stop instead of discarding them")

	f.IntVar(&cfg.QueueLimit, "queue-limit", cfg.QueueLimit, "bound of each inter-stage queue (0 = unbounded)")
	f.StringVar(&cfg.OverflowPolicy, "overflow", cfg.OverflowPolicy, "full queue policy: drop-oldest or drop-newest")

	f.DurationVar(&cfg.RetentionInterval, "retention-interval", cfg.RetentionInterval, "how often to check the log directory size")
	f.Int64Var(&cfg.RetentionHigh, "retention-high", cfg.RetentionHigh, "log directory size in bytes that triggers removal of old files (0 = keep all)")
	f.Int64Var(&cfg.RetentionLow, "retention-low", cfg.RetentionLow, "target log directory size after removal (default: 3/4 of --retention-high)")

	f.BoolVar(&cfg.Watch, "watch", cfg.Watch, "restart the capture when the config or settings file changes")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")

	root.AddCommand(newStatusCmd(), newVerifyCmd())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("canlog")
		os.Exit(1)
	}
}

// runCapture runs one capture until ctx is done, the link is lost or a
// reload is requested. It reports whether the caller should restart.
func runCapture(ctx context.Context, cfg cliconfig.Config, log zerolog.Logger, out io.Writer, reload <-chan struct{}) (bool, error) {
	opts := []canlog.Option{
		canlog.WithLogger(logAdapter.NewZerologAdapterWithLogger(log)),
		canlog.WithStatusFile(""),
	}
	if cfg.RetentionHigh > 0 {
		opts = append(opts, logretention.WithLogRetention(logretention.Config{
			CheckInterval: cfg.RetentionInterval,
			HighWatermark: cfg.RetentionHigh,
			LowWatermark:  cfg.RetentionLow,
		}))
	}

	c, err := canlog.New(canlog.Config{
		Port:           cfg.Port,
		Baud:           cfg.Baud,
		LogDir:         cfg.LogDir,
		FlushInterval:  cfg.FlushInterval,
		StatusInterval: cfg.StatusInterval,
		Grace:          cfg.Grace,
		FlushOnStop:    cfg.FlushOnStop,
		QueueLimit:     cfg.QueueLimit,
		OverflowPolicy: cfg.OverflowPolicy,
	}, opts...)
	if err != nil {
		return false, fmt.Errorf("create capture: %w", err)
	}

	if err := c.Start(ctx); err != nil {
		return false, fmt.Errorf("start capture: %w", err)
	}
	log.Info().Str("port", cfg.Port).Int("baud", cfg.Baud).Msg("capture started")

	ticker := time.NewTicker(cfg.StatusInterval)
	defer ticker.Stop()

	restart := false
loop:
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("received signal, stopping...")
			break loop
		case <-reload:
			log.Info().Msg("configuration changed, restarting capture")
			restart = true
			break loop
		case <-c.Done():
			if err := c.Err(); err != nil {
				return false, err
			}
			break loop
		case <-ticker.C:
			fmt.Fprintln(out, canlog.FormatReadout(c.Counters()))
		}
	}

	if err := c.Stop(); err != nil && !errors.Is(err, canlog.ErrNotRunning) {
		return false, fmt.Errorf("stop capture: %w", err)
	}
	counters := c.Counters()
	log.Info().
		Uint64("frames_written", counters.FramesWritten).
		Uint64("frames_dropped", counters.FramesDropped).
		Uint64("bytes_skipped", counters.BytesSkipped).
		Uint64("files_written", counters.FilesWritten).
		Msg("capture stopped")
	return restart, nil
}
