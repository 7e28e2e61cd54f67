package app

import (
	"context"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/component-base/cli/globalflag"
	"k8s.io/component-base/term"

	"github.com/autopeer-io/brokerlink/cmd/brokerlink/app/options"
	"github.com/autopeer-io/brokerlink/internal/server"
	"github.com/autopeer-io/brokerlink/internal/shell"
	"github.com/autopeer-io/brokerlink/internal/supervisor"
	"github.com/autopeer-io/brokerlink/pkg/log"
	"github.com/autopeer-io/brokerlink/pkg/mqtt"
)

const (
	commandName = "brokerlink"
	commandDesc = `brokerlink keeps one connection to an MQTT broker over TCP, TLS or
WebSocket. It tracks the connection state, reconnects on its own and offers
an interactive shell to subscribe, publish and inspect received messages.
Health, status and metrics are served over HTTP.`
)

func NewBrokerlinkCommand(ctx context.Context) *cobra.Command {
	opts := options.NewOptions()
	cmd := &cobra.Command{
		Use:          commandName,
		Short:        "Interactive MQTT client with a supervised broker connection",
		Long:         commandDesc,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := options.NewViper(cmd.Flags())
			if err != nil {
				return err
			}
			if err := opts.Load(v); err != nil {
				return err
			}
			if err := opts.Complete(); err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return err
			}
			return run(ctx, opts, v)
		},
	}

	fs := cmd.Flags()
	namedfs := opts.Flags()
	globalflag.AddGlobalFlags(namedfs.FlagSet("global"), cmd.Name())
	for _, f := range namedfs.FlagSets {
		fs.AddFlagSet(f)
	}

	cols, _, _ := term.TerminalSize(cmd.OutOrStdout())
	cliflag.SetUsageAndHelpFunc(cmd, namedfs, cols)

	return cmd
}

func run(ctx context.Context, opts *options.Options, v *viper.Viper) error {
	log.Init(opts.Log)
	defer func() { _ = log.Sync() }()
	logger := log.Std()

	factory, err := mqtt.NewFactory(opts.MqttOptions.Driver,
		mqtt.WithLogger(logger),
		mqtt.WithProtocolDebug(opts.MqttOptions.Debug),
	)
	if err != nil {
		return fmt.Errorf("failed to create mqtt factory: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sup := supervisor.New(factory, supervisor.WithLogger(logger), supervisor.WithMetrics(reg))

	var sh *shell.Shell
	if opts.ShellOptions.Interactive {
		sh = shell.New(sup, shell.Config{
			BrokerURL:      opts.MqttOptions.Broker,
			ConnectOptions: opts.MqttOptions.ToConnectOptions(),
			HistorySize:    opts.ShellOptions.HistorySize,
			Prompt:         opts.ShellOptions.Prompt,
		}, os.Stdout, logger)
	}

	if opts.ConfigFile != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			next, err := opts.Reload(v)
			if err != nil {
				logger.Error(err, "Ignoring invalid configuration change", "file", e.Name)
				return
			}
			logger.Info("Configuration changed", "file", e.Name, "op", e.Op.String())
			if sh != nil {
				sh.Reload(next.MqttOptions.Broker, next.MqttOptions.ToConnectOptions())
			}
		})
		v.WatchConfig()
	}

	if opts.ShellOptions.AutoConnect {
		// Failures are recorded in the status and shown by the shell.
		_ = sup.Connect(opts.MqttOptions.Broker, opts.MqttOptions.ToConnectOptions())
	}

	mgr, err := server.NewManager(&server.Config{
		HttpOptions: opts.HttpOptions,
		Supervisor:  sup,
		Shell:       sh,
		Gatherer:    reg,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	return mgr.Start(ctx)
}
