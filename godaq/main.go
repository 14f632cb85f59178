// Command godaq records analog captures from a DAQ device over a serial line,
// cleans them and applies a zero-phase low-pass filter.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/itohio/godaq/pkg/config"
)

// app carries the loaded configuration and global flags into subcommands.
type app struct {
	configPath string
	port       string
	mock       bool
	outDir     string // set by --out; derived files of an existing capture go here

	cfg *config.Config
}

func main() {
	if err := newRootCmd(&app{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "godaq",
		Short:         "Record and low-pass filter analog DAQ captures",
		Long:          "Record voltage samples streamed by a DAQ device, clean malformed rows, estimate the sample rate and apply a zero-phase Butterworth low-pass filter.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "config.yaml", "Configuration file path")
	root.PersistentFlags().StringVarP(&a.port, "port", "p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
	root.PersistentFlags().BoolVar(&a.mock, "mock", false, "Use simulated device instead of serial port")

	root.AddCommand(newRecordCmd(a))
	root.AddCommand(newFilterCmd(a))
	root.AddCommand(newCompareCmd(a))
	root.AddCommand(newResponseCmd(a))
	root.AddCommand(newPortsCmd(a))
	root.AddCommand(newConfigCmd(a))

	return root
}

// load reads the configuration file and applies global overrides.
func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if a.port != "" {
		cfg.Serial.Port = a.port
	}
	a.cfg = cfg
	log.SetFlags(log.Ltime | log.Lmicroseconds)
	return nil
}
