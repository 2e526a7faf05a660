// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Chris Toffer

package cmd

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"

	"github.com/chr15toffer/GrundfosCU300/pkg/genibus"
)

var captureOut string

// captureRecord is one logged frame. Integer keys keep the log compact.
type captureRecord struct {
	Time time.Time `cbor:"1,keyasint"`
	Raw  []byte    `cbor:"2,keyasint"`
}

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Record bus frames to a CBOR log",
	Long: `Listen on the connection, decode GENIBus frames as they arrive, and
append each validated frame to a CBOR log file for later analysis with the
dump command. Frames are also printed as they are captured.

Useful on a shared bus where another master is already polling the device.
Press Ctrl+C to stop.`,
	RunE: runCapture,
}

var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print a captured CBOR frame log",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	captureCmd.Flags().StringVarP(&captureOut, "out", "o", "frames.cblog", "Output log file")
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(dumpCmd)
}

func runCapture(cmd *cobra.Command, args []string) error {
	dial, err := newDialer()
	if err != nil {
		return err
	}
	transport := dial()
	if err := transport.Connect(context.Background()); err != nil {
		return err
	}
	defer transport.Close()

	out, err := os.OpenFile(captureOut, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()
	enc := cbor.NewEncoder(out)

	fmt.Printf("Capturing from %s to %s\n", connectionInfo(), captureOut)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	receiver := genibus.NewReceiver(time.Second)
	count := 0
	for {
		select {
		case <-sigCh:
			fmt.Printf("\nCaptured %d frames\n", count)
			return nil
		default:
		}

		frame, err := receiver.ReadFrame(transport)
		if err != nil {
			if errors.Is(err, genibus.ErrTimeout) {
				continue // quiet bus, keep listening
			}
			fmt.Printf("[ERROR] %v\n", err)
			continue
		}

		record := captureRecord{Time: time.Now(), Raw: frame.Bytes()}
		if err := enc.Encode(record); err != nil {
			return fmt.Errorf("write log: %w", err)
		}
		count++
		fmt.Print(genibus.FormatFrame(frame))
	}
}

func runDump(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	dec := cbor.NewDecoder(f)
	for {
		var record captureRecord
		if err := dec.Decode(&record); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read log: %w", err)
		}
		fmt.Printf("[%s]\n", record.Time.Format("15:04:05.000"))
		frame, err := genibus.ParseFrame(record.Raw)
		if err != nil {
			fmt.Printf("  [invalid frame: %v] %s\n", err, hex.EncodeToString(record.Raw))
			continue
		}
		fmt.Print(genibus.FormatFrame(frame))
	}
}
