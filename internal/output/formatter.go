package output

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/wesleyorama2/simfleet/internal/coordinator"
	"github.com/wesleyorama2/simfleet/internal/metrics"
	"github.com/wesleyorama2/simfleet/internal/plan"
	"github.com/wesleyorama2/simfleet/internal/registry"
	"github.com/wesleyorama2/simfleet/internal/topology"
)

// Formatter renders fleet state for the terminal.
type Formatter struct {
	Colors  *ColorScheme
	NoColor bool
}

// NewFormatter creates a formatter; colored selects ANSI colors.
func NewFormatter(colored bool) *Formatter {
	if !colored {
		return &Formatter{Colors: NoColorScheme(), NoColor: true}
	}
	scheme := DefaultColorScheme()
	for _, c := range scheme.all() {
		c.EnableColor()
	}
	return &Formatter{Colors: scheme}
}

// Agents renders one row per agent.
func (f *Formatter) Agents(agents []registry.AgentData) string {
	if len(agents) == 0 {
		return f.Colors.Muted.Sprint("no agents registered") + "\n"
	}

	var buf strings.Builder
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tPUBLIC\tPRIVATE\tMODE\tWORKERS")
	for _, agent := range agents {
		private := agent.PrivateAddress
		if private == "" {
			private = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			agent.Address, agent.PublicAddress, private, agent.WorkerMode, workerSummary(agent.Workers))
	}
	tw.Flush()
	return buf.String()
}

// workerSummary condenses a worker list into "member x2, javaclient x1".
func workerSummary(workers []registry.WorkerData) string {
	if len(workers) == 0 {
		return "-"
	}
	counts := make(map[string]int)
	var order []string
	for _, w := range workers {
		if counts[w.WorkerType] == 0 {
			order = append(order, w.WorkerType)
		}
		counts[w.WorkerType]++
	}
	parts := make([]string, len(order))
	for i, workerType := range order {
		parts[i] = fmt.Sprintf("%s x%d", workerType, counts[workerType])
	}
	return strings.Join(parts, ", ")
}

// Plan renders the planned additions per agent.
func (f *Formatter) Plan(p *plan.DeploymentPlan) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s %d new workers\n", f.Colors.Highlight.Sprint("Deployment plan:"), p.WorkerCount())

	deployment := p.WorkerDeployment()
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AGENT\tMEMBERS\tCLIENTS\tWORKERS")
	for _, agent := range p.Agents() {
		members, clients := p.Counts(agent)
		types := make([]string, len(deployment[agent]))
		for i, params := range deployment[agent] {
			types[i] = params.WorkerType
		}
		listed := "-"
		if len(types) > 0 {
			listed = strings.Join(types, ", ")
		}
		fmt.Fprintf(tw, "%s\t+%d\t+%d\t%s\n", agent, members, clients, listed)
	}
	tw.Flush()

	if specs := p.VersionSpecs(); len(specs) > 0 {
		fmt.Fprintf(&buf, "%s %s\n", f.Colors.Header.Sprint("Version specs:"), strings.Join(specs, ", "))
	}
	return buf.String()
}

// ScaleResult renders the outcome of a scale operation with launch latencies,
// overall and per worker type.
func (f *Formatter) ScaleResult(r *coordinator.ScaleResult, latency metrics.LatencyStats, byType map[string]metrics.LatencyStats) string {
	var buf strings.Builder
	icon := SuccessIcon(f.NoColor)
	if len(r.Failed) > 0 {
		icon = WarningIcon(f.NoColor)
	}
	fmt.Fprintf(&buf, "%s started %d workers\n", icon, len(r.Started))
	for _, w := range r.Started {
		fmt.Fprintf(&buf, "  %s %s\n", f.Colors.Address.Sprint(w.Address), w.WorkerType)
	}
	if len(r.Failed) > 0 {
		fmt.Fprintf(&buf, "%s %d workers failed to start\n", ErrorIcon(f.NoColor), len(r.Failed))
		for _, failed := range r.Failed {
			fmt.Fprintf(&buf, "  agent %s %s: %s\n", failed.Agent, failed.WorkerType, f.Colors.Error.Sprint(failed.Err))
		}
	}
	if latency.Count > 0 {
		fmt.Fprintf(&buf, "%s %s\n", f.Colors.Header.Sprint("Launch latency:"), latencySummary(latency))
		for _, workerType := range slices.Sorted(maps.Keys(byType)) {
			fmt.Fprintf(&buf, "  %s %s\n", workerType, latencySummary(byType[workerType]))
		}
	}
	return buf.String()
}

func latencySummary(l metrics.LatencyStats) string {
	return fmt.Sprintf("p50=%s p95=%s p99=%s max=%s", l.P50, l.P95, l.P99, l.Max)
}

// Topology renders a snapshot as a tree of agents and their workers.
func (f *Formatter) Topology(s *topology.Snapshot) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s %s\n", f.Colors.Header.Sprint("Session:"), s.SessionID)
	if len(s.Agents) == 0 {
		buf.WriteString(f.Colors.Muted.Sprint("no agents registered") + "\n")
		return buf.String()
	}

	for _, agent := range s.Agents {
		mode := agent.WorkerMode.String()
		if agent.WorkerMode == registry.MembersOnly {
			mode = f.Colors.Dedicated.Sprint(mode)
		}
		fmt.Fprintf(&buf, "%s %s (%s)\n", f.Colors.Address.Sprint(agent.Address), agent.PublicAddress, mode)

		for i, w := range agent.Workers {
			branch := "├──"
			if i == len(agent.Workers)-1 {
				branch = "└──"
			}
			fmt.Fprintf(&buf, "  %s %s %s %s\n", branch, w.Address, w.WorkerType, f.Colors.Muted.Sprint(w.VersionSpec))
		}
	}
	return buf.String()
}
