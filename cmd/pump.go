// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Chris Toffer

package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Switch the pump to remote control and start it",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		engine, err := connectedEngine(ctx)
		if err != nil {
			return err
		}
		defer engine.Disconnect()

		if err := engine.StartPump(ctx); err != nil {
			return err
		}
		fmt.Println("Pump started")
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the pump",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		engine, err := connectedEngine(ctx)
		if err != nil {
			return err
		}
		defer engine.Disconnect()

		if err := engine.StopPump(ctx); err != nil {
			return err
		}
		fmt.Println("Pump stopped")
		return nil
	},
}

var refCmd = &cobra.Command{
	Use:   "ref <percent>",
	Short: "Set the remote reference setpoint (0-100%)",
	Long: `Write the remote reference setpoint. The value is validated before
any bus traffic: out-of-range input fails locally and never reaches the
device.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("reference must be an integer: %w", err)
		}
		if value < 0 || value > 100 {
			return fmt.Errorf("reference %d outside [0,100]", value)
		}

		ctx := context.Background()
		engine, err := connectedEngine(ctx)
		if err != nil {
			return err
		}
		defer engine.Disconnect()

		if err := engine.SetReference(ctx, value); err != nil {
			return err
		}
		fmt.Printf("Reference set to %d%%\n", value)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(refCmd)
}
