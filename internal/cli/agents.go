package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/simfleet/internal/fleeterr"
)

func (a *app) agentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Manage the agents of the fleet",
	}

	add := &cobra.Command{
		Use:   "add PUBLIC_ADDRESS [PRIVATE_ADDRESS]",
		Short: "Register a machine as the next agent",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.load()
			if err != nil {
				return err
			}
			private := ""
			if len(args) == 2 {
				private = args[1]
			}
			agent := s.reg.AddAgent(args[0], private)
			if err := a.save(s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added agent %s (%s)\n", agent.Address, agent.PublicAddress)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the registered agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.load()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), a.formatter(cmd.OutOrStdout()).Agents(s.reg.Agents()))
			return nil
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func (a *app) dedicateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dedicate COUNT",
		Short: "Reserve the first COUNT agents for members, 0 to mix members and clients again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := strconv.Atoi(args[0])
			if err != nil {
				return fleeterr.Configurationf("invalid dedicated machine count %q", args[0])
			}
			s, err := a.load()
			if err != nil {
				return err
			}
			if err := s.reg.AssignDedicatedMemberMachines(count); err != nil {
				return err
			}
			if err := a.save(s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d agents dedicated to members\n", count, s.reg.AgentCount())
			return nil
		},
	}
}
