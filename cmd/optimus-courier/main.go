package main

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is set at build time
var Version = "dev"

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   serviceName,
		Short: "Optimus Courier waybill integration for a web shop",
		Long: `optimus-courier generates Optimus Courier waybills for shop orders,
serves their label PDFs and tracking history, and emails customers their
tracking links.

Configuration is read from the environment. Business settings live in the
YAML file named by SETTINGS_FILE.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(validateCredentialsCmd())
	cmd.AddCommand(trackCmd())
	cmd.AddCommand(statusCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", serviceName, Version)
		},
	})

	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the order event consumer and the outbox publisher",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.ServerAddr = addr
			}
			return serve(cfg)
		},
	}
	cmd.Flags().String("addr", "", "listen address, overrides SERVER_ADDR")
	return cmd
}

func validateCredentialsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-credentials",
		Short: "Check the configured courier credentials and record the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newCLIApp(loadConfig())
			if err != nil {
				return err
			}
			status := app.tracking.ValidateCredentials(cmd.Context())
			if err := printJSON(status); err != nil {
				return err
			}
			if !status.Connected {
				return fmt.Errorf("credentials rejected: %s", status.Message)
			}
			return nil
		},
	}
}

func trackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "track <awb>",
		Short: "Print the tracking history of a waybill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newCLIApp(loadConfig())
			if err != nil {
				return err
			}
			view, err := app.tracking.Track(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(view)
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <awb>",
		Short: "Print the raw courier status of a waybill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newCLIApp(loadConfig())
			if err != nil {
				return err
			}
			status, err := app.tracking.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(status)
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
