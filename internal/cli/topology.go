package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/simfleet/internal/topology"
)

func (a *app) topologyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topology",
		Short: "Show the recorded agents and workers",
		Example: `  simfleet topology
  simfleet topology --json
  simfleet topology --query 'agents.#.address'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			query, _ := cmd.Flags().GetString("query")

			s, err := a.load()
			if err != nil {
				return err
			}
			snapshot := topology.NewSnapshot(s.id, s.reg)
			out := cmd.OutOrStdout()

			switch {
			case query != "":
				js, err := snapshot.ToJSON()
				if err != nil {
					return err
				}
				value, err := topology.Query(js, query)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, value)
			case asJSON:
				data, err := snapshot.Marshal("topology.json")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
			default:
				fmt.Fprint(out, a.formatter(out).Topology(snapshot))
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "print the topology as JSON")
	cmd.Flags().String("query", "", "print a single value selected by a gjson or JSONPath expression")
	return cmd
}
