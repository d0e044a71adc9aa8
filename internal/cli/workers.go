package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/simfleet/internal/address"
	"github.com/wesleyorama2/simfleet/internal/fleeterr"
	"github.com/wesleyorama2/simfleet/internal/vendor"
)

func (a *app) killCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kill [WORKER_ADDRESS]",
		Short: "Stop a single worker and remove it from the topology",
		Long: `kill stops the worker at WORKER_ADDRESS, or the worker with the lowest
address when none is given, and removes it from the topology.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var workerAddress address.SimulatorAddress
			if len(args) == 1 {
				parsed, err := address.Parse(args[0])
				if err != nil {
					return err
				}
				workerAddress = parsed
			}
			s, err := a.load()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				first, ok := s.reg.FirstWorker()
				if !ok {
					return fleeterr.Configurationf("no workers to kill")
				}
				workerAddress = first.Address
			}
			if err := a.coordinator(s, vendor.NewStubDriver()).KillWorker(cmd.Context(), workerAddress); err != nil {
				return err
			}
			if err := a.save(s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "killed worker %s\n", workerAddress)
			return nil
		},
	}
}

func (a *app) terminateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "terminate",
		Short: "Stop all workers, keeping the agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.load()
			if err != nil {
				return err
			}
			count := s.reg.WorkerCount()
			termErr := a.coordinator(s, vendor.NewStubDriver()).Terminate(cmd.Context())
			if err := a.save(s); err != nil {
				return err
			}
			if termErr != nil {
				return termErr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "terminated %d workers\n", count)
			return nil
		},
	}
}

func (a *app) teardownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "teardown",
		Short: "Stop all workers and forget every agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.load()
			if err != nil {
				return err
			}
			agents := s.reg.AgentCount()
			termErr := a.coordinator(s, vendor.NewStubDriver()).Terminate(cmd.Context())
			if termErr == nil {
				s.reg.RemoveAgents()
			}
			if err := a.save(s); err != nil {
				return err
			}
			if termErr != nil {
				return termErr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d agents\n", agents)
			return nil
		},
	}
}
