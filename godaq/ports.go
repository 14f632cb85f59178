package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itohio/godaq/pkg/daq"
)

func newPortsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			var finder daq.PortFinder = daq.EnumeratedPorts{}
			if a.port != "" {
				finder = daq.FixedPort{Name: a.port}
			}

			ports, err := finder.Ports()
			if err != nil {
				return err
			}
			if len(ports) == 0 {
				fmt.Fprintln(out, "No serial ports found")
				return nil
			}

			fmt.Fprintln(out, "Available ports:")
			for i, p := range ports {
				marker := ""
				if p.IsUSB {
					marker = " [USB]"
				}
				fmt.Fprintf(out, "%d: %s - %s%s\n", i+1, p.Name, p.Description, marker)
			}
			return nil
		},
	}
}
