// closeday is the end-of-day closing wizard for the front desk terminal.
// It walks staff through counting cash and card totals, submits the close
// under their PIN and prints the report on the receipt printer.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"lengolf-closing/internal/closing"
	"lengolf-closing/internal/config"
	"lengolf-closing/internal/printer"
	"lengolf-closing/internal/printer/ble"
	"lengolf-closing/internal/printer/usbprinter"
	"lengolf-closing/internal/reconcile"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	pc := config.LoadPrinter()

	var (
		date    string
		logFile string
		noPrint bool
	)
	flagSet := pflag.NewFlagSet("closeday", pflag.ContinueOnError)
	flagSet.StringVar(&date, "date", "", "business date to close, YYYY-MM-DD (default today)")
	flagSet.StringVar(&pc.APIURL, "api", pc.APIURL, "closing API base URL")
	flagSet.StringVar(&pc.APIToken, "token", pc.APIToken, "API bearer token for this terminal")
	flagSet.StringVar(&pc.BLEAddress, "ble-address", pc.BLEAddress, "Bluetooth address of the receipt printer")
	flagSet.Uint16Var(&pc.USBVendorID, "usb-vid", pc.USBVendorID, "USB vendor id of the receipt printer")
	flagSet.Uint16Var(&pc.USBProductID, "usb-pid", pc.USBProductID, "USB product id of the receipt printer")
	flagSet.BoolVar(&noPrint, "no-print", false, "close the day without printing")
	flagSet.StringVar(&logFile, "log-file", "", "write JSON logs to this file")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if pc.APIToken == "" {
		return fmt.Errorf("no API token: pass --token or set CLOSING_API_TOKEN")
	}

	// The TUI owns the terminal, so logs go to a file or nowhere.
	logger := config.GetLogger()
	logger.SetOutput(io.Discard)
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logger.SetOutput(f)
	}

	var orch *printer.Orchestrator
	var prn reconcile.Printer
	if !noPrint {
		orch = printer.NewOrchestrator(
			[]printer.Transport{
				printer.NewBluetooth(ble.New(pc.BLEAddress, pc.BLEServiceUUID, pc.BLECharacteristicUUID, logger)),
				printer.NewUSB(usbprinter.New(pc.USBVendorID, pc.USBProductID)),
			},
			printer.WithPacing(time.Duration(pc.PacingMS)*time.Millisecond),
			printer.WithLogger(logger),
		)
		defer orch.Close()
		prn = orch
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var program *tea.Program
	session := reconcile.NewSession(reconcile.Options{
		Backend:   closing.NewClient(pc.APIURL, pc.APIToken),
		Printer:   prn,
		AutoPrint: true,
		Logger:    logger,
		OnChange: func(st reconcile.State) {
			if program != nil {
				program.Send(stateMsg{state: st})
			}
		},
	})

	program = tea.NewProgram(newModel(ctx, session, date, prn != nil), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `closeday: close the business day and print the closing report.

Usage:
  closeday [flags]

Examples:
  # Close today with the printer from the environment
  closeday

  # Close a past date over USB only
  closeday --date 2026-10-15 --ble-address "" --usb-vid 0x0416 --usb-pid 0x5011

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
