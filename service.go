package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"diagramgen/logging"
	"diagramgen/shutdown"
)

// serviceStopTimeout bounds how long Stop waits for the server to drain.
const serviceStopTimeout = 30 * time.Second

// program runs the web server under the host service manager.
type program struct {
	envFile string

	logger *logging.Logger
	mgr    *shutdown.Manager
	exit   chan struct{}
	err    error
}

// Start loads the configuration synchronously so a broken setup fails the
// service start, then serves in the background.
func (p *program) Start(s service.Service) error {
	cfg, logger, err := loadEnvironment(p.envFile)
	if err != nil {
		return err
	}
	p.logger = logger
	p.mgr = shutdown.NewManager(logger.Zap(), shutdown.WithTimeout(cfg.RunTimeout))
	p.exit = make(chan struct{})

	go func() {
		defer close(p.exit)
		p.err = serve(context.Background(), cfg, logger, p.mgr)
		if p.err != nil {
			logger.Error("Service stopped with error", zap.Error(p.err))
		}
	}()
	return nil
}

// Stop triggers graceful shutdown and waits for serve to return.
func (p *program) Stop(s service.Service) error {
	if p.mgr == nil {
		return nil
	}
	p.logger.Info("Service stop requested")
	p.mgr.Trigger()

	select {
	case <-p.exit:
		return p.err
	case <-time.After(serviceStopTimeout):
		return errors.New("timeout waiting for service to stop")
	}
}

func serviceConfig() *service.Config {
	return &service.Config{
		Name:        "diagramgen",
		DisplayName: "Diagram Generator",
		Description: "Serves the diagram generator web UI and JSON API",
		Arguments:   []string{"--env-file", rootFlags.envFile, "service", "run"},
		Option: service.KeyValue{
			"StartType": "automatic",
			"Restart":   "on-failure",
		},
	}
}

func newService() (service.Service, error) {
	s, err := service.New(&program{envFile: rootFlags.envFile}, serviceConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return s, nil
}

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Install and control diagramgen as a system service",
	Long: `Manage the background service that runs "diagramgen serve".

  diagramgen service install     Register the service with the host
  diagramgen service start       Start it
  diagramgen service status      Show whether it is running
  diagramgen service stop        Stop it (in-flight runs are drained)
  diagramgen service uninstall   Remove it`,
}

func controlCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newService()
			if err != nil {
				return err
			}
			if err := service.Control(s, action); err != nil {
				return fmt.Errorf("failed to %s service: %w", action, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("Service %s: ok", action))
			return nil
		},
	}
}

func init() {
	serviceCmd.AddCommand(
		controlCmd("install", "Register the service"),
		controlCmd("uninstall", "Remove the service"),
		controlCmd("start", "Start the service"),
		controlCmd("stop", "Stop the service"),
		controlCmd("restart", "Stop then start the service"),
		&cobra.Command{
			Use:   "status",
			Short: "Show the service status",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, err := newService()
				if err != nil {
					return err
				}
				status, err := s.Status()
				if err != nil {
					return fmt.Errorf("failed to get service status: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), statusText(status))
				return nil
			},
		},
		&cobra.Command{
			Use:    "run",
			Short:  "Run under the service manager (used by the installed service)",
			Hidden: true,
			Args:   cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, err := newService()
				if err != nil {
					return err
				}
				return s.Run()
			},
		},
	)
}

func statusText(status service.Status) string {
	switch status {
	case service.StatusRunning:
		return color.GreenString("Service is running")
	case service.StatusStopped:
		return color.YellowString("Service is stopped")
	default:
		return "Service status unknown"
	}
}
