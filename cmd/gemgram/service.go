package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

// program satisfies service.Interface. The service manager execs the
// binary with "start" arguments, so Start/Stop here never run real work.
type program struct{}

func (program) Start(service.Service) error { return nil }
func (program) Stop(service.Service) error  { return nil }

// newService builds the system service definition. A non-empty cfgPath is
// made absolute so the service works regardless of its working directory.
func newService(cfgPath string) (service.Service, error) {
	args := []string{"start"}
	if cfgPath != "" {
		abs, err := filepath.Abs(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("resolving config path: %w", err)
		}
		args = append(args, "--config", abs)
	}

	return service.New(program{}, &service.Config{
		Name:        "gemgram",
		DisplayName: "gemgram",
		Description: "Telegram bot that relays messages to Gemini",
		Arguments:   args,
	})
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage gemgram as a system service",
	}

	var cfgPath string

	install := &cobra.Command{
		Use:   "install",
		Short: "Install the system service",
		RunE: func(_ *cobra.Command, _ []string) error {
			svc, err := newService(cfgPath)
			if err != nil {
				return err
			}
			if err := svc.Install(); err != nil {
				return fmt.Errorf("installing service: %w", err)
			}
			fmt.Println("Service installed. Start it with: gemgram service start")
			return nil
		},
	}
	install.Flags().StringVarP(&cfgPath, "config", "c", "", "Config file the service starts with")

	uninstall := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the system service",
		RunE: func(_ *cobra.Command, _ []string) error {
			svc, err := newService("")
			if err != nil {
				return err
			}
			if err := svc.Uninstall(); err != nil {
				return fmt.Errorf("uninstalling service: %w", err)
			}
			fmt.Println("Service uninstalled.")
			return nil
		},
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Start the system service",
		RunE: func(_ *cobra.Command, _ []string) error {
			svc, err := newService("")
			if err != nil {
				return err
			}
			if err := svc.Start(); err != nil {
				return fmt.Errorf("starting service: %w", err)
			}
			fmt.Println("Service started.")
			return nil
		},
	}

	stop := &cobra.Command{
		Use:   "stop",
		Short: "Stop the system service",
		RunE: func(_ *cobra.Command, _ []string) error {
			svc, err := newService("")
			if err != nil {
				return err
			}
			if err := svc.Stop(); err != nil {
				return fmt.Errorf("stopping service: %w", err)
			}
			fmt.Println("Service stopped.")
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the system service status",
		RunE: func(_ *cobra.Command, _ []string) error {
			svc, err := newService("")
			if err != nil {
				return err
			}
			st, err := svc.Status()
			if err != nil {
				if errors.Is(err, service.ErrNotInstalled) {
					fmt.Println("Service is not installed.")
					return nil
				}
				return fmt.Errorf("querying service status: %w", err)
			}
			switch st {
			case service.StatusRunning:
				fmt.Println("Service is running.")
			case service.StatusStopped:
				fmt.Println("Service is stopped.")
			default:
				fmt.Println("Service status is unknown.")
			}
			return nil
		},
	}

	cmd.AddCommand(install, uninstall, start, stop, status)
	return cmd
}
