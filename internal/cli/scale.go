package cli

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wesleyorama2/simfleet/internal/config"
	"github.com/wesleyorama2/simfleet/internal/coordinator"
	"github.com/wesleyorama2/simfleet/internal/vendor"
	"github.com/wesleyorama2/simfleet/internal/worker"
)

func addScaleFlags(cmd *cobra.Command) {
	cmd.Flags().Int("members", 0, "number of member workers to add")
	cmd.Flags().Int("clients", 0, "number of client workers to add")
	cmd.Flags().String("client-type", worker.TypeJavaClient, "worker type of the clients")
	cmd.Flags().String("version-spec", "", "product version the new workers run")
	cmd.Flags().String("config", "", "fleet file providing the vendor settings")
}

func scaleRequest(cmd *cobra.Command) coordinator.ScaleRequest {
	members, _ := cmd.Flags().GetInt("members")
	clients, _ := cmd.Flags().GetInt("clients")
	clientType, _ := cmd.Flags().GetString("client-type")
	versionSpec, _ := cmd.Flags().GetString("version-spec")
	return coordinator.ScaleRequest{
		Members:     members,
		Clients:     clients,
		ClientType:  clientType,
		VersionSpec: versionSpec,
	}
}

func (a *app) planCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show where new workers would be placed without starting them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			driver, err := a.driver(configPath)
			if err != nil {
				return err
			}
			s, err := a.load()
			if err != nil {
				return err
			}

			p, err := a.coordinator(s, driver).Plan(scaleRequest(cmd))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), a.formatter(cmd.OutOrStdout()).Plan(p))
			return nil
		},
	}
	addScaleFlags(cmd)
	return cmd
}

func (a *app) scaleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scale",
		Short: "Add workers to the fleet and record them in the topology",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			metricsFile, _ := cmd.Flags().GetString("metrics-file")
			driver, err := a.driver(configPath)
			if err != nil {
				return err
			}
			return a.scale(cmd, driver, scaleRequest(cmd), metricsFile)
		},
	}
	addScaleFlags(cmd)
	cmd.Flags().String("metrics-file", "", "write prometheus metrics to this file after scaling")
	return cmd
}

// scale runs one scale operation against the state file. Workers that
// started are saved even when others failed.
func (a *app) scale(cmd *cobra.Command, driver vendor.Driver, req coordinator.ScaleRequest, metricsFile string) error {
	s, err := a.load()
	if err != nil {
		return err
	}

	c := a.coordinator(s, driver)
	result, scaleErr := c.Scale(cmd.Context(), req)
	if result == nil {
		return scaleErr
	}
	if err := a.save(s); err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), a.formatter(cmd.OutOrStdout()).ScaleResult(result, c.Metrics.LaunchLatency(), c.Metrics.LaunchLatencyByType()))

	if metricsFile != "" {
		if err := c.Metrics.WriteTextfile(metricsFile); err != nil {
			return err
		}
	}
	return scaleErr
}

func (a *app) applyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Bring the fleet in line with a fleet file",
		Long: `apply registers the agents of the fleet file that are not known yet,
assigns the dedicated member machines and starts as many workers as are
missing to reach the configured member and client counts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			metricsFile, _ := cmd.Flags().GetString("metrics-file")

			cfg, err := config.LoadValidated(configPath)
			if err != nil {
				return err
			}
			driver, err := cfg.BuildDriver()
			if err != nil {
				return err
			}

			s, err := a.load()
			if err != nil {
				return err
			}
			known := make(map[string]bool)
			for _, agent := range s.reg.Agents() {
				known[agent.PublicAddress] = true
			}
			for _, agent := range cfg.Agents {
				if !known[agent.PublicAddress] {
					s.reg.AddAgent(agent.PublicAddress, agent.PrivateAddress)
				}
			}
			if err := s.reg.AssignDedicatedMemberMachines(cfg.DedicatedMemberMachines); err != nil {
				return err
			}
			if err := a.save(s); err != nil {
				return err
			}

			members := len(s.reg.WorkersOfType(worker.TypeMember))
			clients := 0
			if cfg.Workers.ClientType != "" {
				clients = len(s.reg.WorkersOfType(cfg.Workers.ClientType))
			}
			req := coordinator.ScaleRequest{
				Members:    max(cfg.Workers.Members-members, 0),
				Clients:    max(cfg.Workers.Clients-clients, 0),
				ClientType: cfg.Workers.ClientType,
			}
			log.WithFields(log.Fields{
				"members": req.Members,
				"clients": req.Clients,
			}).Info("applying fleet file")
			return a.scale(cmd, driver, req, metricsFile)
		},
	}
	cmd.Flags().String("config", "", "fleet file to apply")
	cmd.Flags().String("metrics-file", "", "write prometheus metrics to this file after scaling")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
