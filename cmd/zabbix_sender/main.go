package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	models "github.com/Schera-ole/zabbix-sender/internal/model"
	"github.com/Schera-ole/zabbix-sender/internal/sender"
)

type options struct {
	server         string
	port           string
	host           string
	key            string
	value          string
	inputFile      string
	withTimestamps bool
	noCompression  bool
	verbose        bool
}

func configureFlags(flags *pflag.FlagSet, opts *options) {
	flags.StringVarP(&opts.server, "zabbix-server", "z", "", "Hostname or IP address of Zabbix server or proxy")
	flags.StringVarP(&opts.port, "port", "p", sender.DefaultPort, "Trapper port of the server")
	flags.StringVarP(&opts.host, "host", "s", "", "Host name the item belongs to")
	flags.StringVarP(&opts.key, "key", "k", "", "Item key")
	flags.StringVarP(&opts.value, "value", "o", "", "Item value")
	flags.StringVarP(&opts.inputFile, "input-file", "i", "", "Load values from file, '-' for standard input")
	flags.BoolVarP(&opts.withTimestamps, "with-timestamps", "T", false, "Input lines carry a Unix timestamp before the value")
	flags.BoolVar(&opts.noCompression, "no-compression", false, "Send the request uncompressed")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging")
}

func newRootCommand(stdin io.Reader, dialer sender.Dialer) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "zabbix_sender",
		Short:         "Send values to a Zabbix server or proxy trapper",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, stdin, dialer)
		},
	}
	configureFlags(cmd.Flags(), opts)
	return cmd
}

func buildMeasurements(opts *options, stdin io.Reader) (*models.Measurements, error) {
	if opts.inputFile == "" {
		if opts.host == "" || opts.key == "" {
			return nil, errors.New("--host and --key are required without --input-file")
		}
		return models.NewMeasurements(models.NewMeasurement(opts.host, opts.key, opts.value)), nil
	}

	input := stdin
	if opts.inputFile != "-" {
		file, err := os.Open(opts.inputFile)
		if err != nil {
			return nil, fmt.Errorf("error opening input file: %w", err)
		}
		defer file.Close()
		input = file
	}

	items, err := readInput(input, opts.host, opts.withTimestamps)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.New("no values to send")
	}
	return models.NewMeasurements(items...), nil
}

func run(cmd *cobra.Command, opts *options, stdin io.Reader, dialer sender.Dialer) error {
	if opts.server == "" {
		return errors.New("--zabbix-server is required")
	}

	level := zap.WarnLevel
	if opts.verbose {
		level = zap.DebugLevel
	}
	logConfig := zap.NewDevelopmentConfig()
	logConfig.Level = zap.NewAtomicLevelAt(level)
	logConfig.OutputPaths = []string{"stderr"}
	zapLogger, err := logConfig.Build()
	if err != nil {
		return fmt.Errorf("error creating logger: %w", err)
	}
	defer zapLogger.Sync()

	measurements, err := buildMeasurements(opts, stdin)
	if err != nil {
		return err
	}

	zabbixSender := sender.NewSender(
		net.JoinHostPort(opts.server, opts.port),
		sender.WithCompression(!opts.noCompression),
		sender.WithDialer(dialer),
		sender.WithLogger(zapLogger.Sugar()),
	)

	result, err := zabbixSender.Send(cmd.Context(), measurements)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Response from %q: %s\n", zabbixSender.Address(), result.Info())
	if result.Failed > 0 {
		return fmt.Errorf("%d of %d values failed", result.Failed, result.Total)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand(os.Stdin, &net.Dialer{})
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
