// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Chris Toffer

package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info [measurement...]",
	Short: "Ask the device to describe measurement data points",
	Long: `Send an INFO request for the named measurements (default: the
configured poll set) and print the device's self-description: the raw head
byte and, for scaled points, unit, zero, and range.`,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	names := args
	if len(names) == 0 {
		names = cfg.Poll.Measurements
	}

	engine, err := connectedEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Disconnect()

	info, err := engine.RequestInfo(ctx, names)
	if err != nil {
		return err
	}

	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	for _, name := range sorted {
		pi, ok := info[name]
		if !ok {
			fmt.Printf("  %-12s no info\n", name)
			continue
		}
		if pi.Extended {
			fmt.Printf("  %-12s head=0x%02X unit=%d zero=%d range=%d\n",
				name, pi.Head, pi.Unit, pi.Zero, pi.Range)
		} else {
			fmt.Printf("  %-12s head=0x%02X\n", name, pi.Head)
		}
	}
	return nil
}
