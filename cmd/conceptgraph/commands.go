package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/conceptgraph"
	"github.com/brunobiangulo/conceptgraph/graph"
)

func newBuildCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "build <path>...",
		Short: "Load definitions, build the graph and save it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			info, err := e.Ingest(cmd.Context(), args...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return writeJSON(out, info)
			}
			fmt.Fprintf(out, "build %s\n", info.UUID)
			fmt.Fprintf(out, "  weights     %s\n", info.Weights)
			fmt.Fprintf(out, "  concepts    %d\n", info.Concepts)
			fmt.Fprintf(out, "  pairs       %d\n", info.Pairs)
			fmt.Fprintf(out, "  neighbors   %d\n", info.Neighbors)
			fmt.Fprintf(out, "  references  %d\n", info.References)
			fmt.Fprintf(out, "  undefined   %d\n", info.Undefined)
			fmt.Fprintf(out, "  clusters    %d\n", info.Clusters)
			fmt.Fprintf(out, "  elapsed     %dms\n", info.ElapsedMS)
			return nil
		},
	}
}

func newNeighborsCmd(opts *globalOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "neighbors <name>",
		Short: "Show the ranked neighbors of a concept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			neighbors, err := e.Neighbors(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if limit > 0 && len(neighbors) > limit {
				neighbors = neighbors[:limit]
			}
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return writeJSON(out, neighbors)
			}
			for _, n := range neighbors {
				fmt.Fprintf(out, "%3d  %6.2f  %s\n", n.Rank+1, n.Score, n.Name)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most n neighbors (0 = all)")
	return cmd
}

func newRefsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refs <name>",
		Short: "Show the references of a concept in both directions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			refs, err := e.References(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return writeJSON(out, refs)
			}
			fmt.Fprintf(out, "%s\n", refs.Concept)
			for _, name := range refs.ReferenceTo {
				fmt.Fprintf(out, "  -> %s\n", name)
				if s, ok := refs.Evidence[name]; ok {
					fmt.Fprintf(out, "       %q\n", s)
				}
			}
			for _, name := range refs.ReferencedBy {
				fmt.Fprintf(out, "  <- %s\n", name)
			}
			return nil
		},
	}
}

func newConceptsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "concepts",
		Short: "List the concepts of the latest build",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			concepts, err := e.ListConcepts(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return writeJSON(out, concepts)
			}
			for _, c := range concepts {
				mark := " "
				if c.Process {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %4d  %-24s %-10s %s\n", mark, c.ID, c.Name, c.Language, strings.Join(c.Tags, ", "))
			}
			return nil
		},
	}
}

func newBuildsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "builds",
		Short: "List saved builds, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			builds, err := e.ListBuilds(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return writeJSON(out, builds)
			}
			for _, b := range builds {
				fmt.Fprintf(out, "%s  %s  weights=%s concepts=%d neighbors=%d references=%d\n",
					b.UUID, b.CreatedAt, b.Weights, b.Concepts, b.Neighbors, b.References)
			}
			return nil
		},
	}
}

func newImagesCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "images <name>",
		Short: "Search candidate image URLs for a concept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			cfg.ImageSearch.Enabled = true
			e, err := conceptgraph.New(cfg)
			if err != nil {
				return err
			}
			defer e.Close()

			res, err := e.SearchImages(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return writeJSON(out, res)
			}
			fmt.Fprintf(out, "query %q: %s\n", res.Query, res.Status)
			if res.Err != nil {
				fmt.Fprintf(out, "  error: %v\n", res.Err)
			}
			for _, u := range res.URLs {
				fmt.Fprintf(out, "  %s\n", u)
			}
			return nil
		},
	}
}

// newTraceCmd builds in memory, without saving, and walks the reference
// edges from the seeds. Each visited concept is listed with distractor names
// taken from its neighbors.
func newTraceCmd(opts *globalOptions) *cobra.Command {
	var (
		seeds       []string
		depth       int
		distractors int
	)
	cmd := &cobra.Command{
		Use:   "trace <path>...",
		Short: "Follow references from seed concepts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(seeds) == 0 {
				return fmt.Errorf("at least one --seed is required")
			}
			e, err := openEngine(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			concepts, err := e.Load(cmd.Context(), args...)
			if err != nil {
				return err
			}
			res, err := e.Build(cmd.Context(), concepts)
			if err != nil {
				return err
			}
			trace := graph.Traverse(graph.NewIndex(res.Concepts), seeds, depth)

			type row struct {
				Name        string   `json:"name"`
				Depth       int      `json:"depth"`
				Distractors []string `json:"distractors"`
			}
			rows := make([]row, len(trace.Visits))
			for i, v := range trace.Visits {
				rows[i] = row{Name: v.Concept.Name(), Depth: v.Depth, Distractors: graph.Distractors(v.Concept, distractors)}
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return writeJSON(out, map[string]any{"visits": rows, "missing": trace.Missing})
			}
			for _, r := range rows {
				fmt.Fprintf(out, "%s%s", strings.Repeat("  ", r.Depth), r.Name)
				if len(r.Distractors) > 0 {
					fmt.Fprintf(out, "  [%s]", strings.Join(r.Distractors, ", "))
				}
				fmt.Fprintln(out)
			}
			for _, m := range trace.Missing {
				fmt.Fprintf(out, "missing: %s\n", m)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&seeds, "seed", "s", nil, "Seed concept names")
	cmd.Flags().IntVarP(&depth, "depth", "d", 2, "Maximum reference hops")
	cmd.Flags().IntVar(&distractors, "distractors", 3, "Distractor names per concept")
	return cmd
}

// newEdgesCmd builds in memory and prints the edge list.
func newEdgesCmd(opts *globalOptions) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "edges <path>...",
		Short: "Print the neighbor and reference edges of a collection",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			concepts, err := e.Load(cmd.Context(), args...)
			if err != nil {
				return err
			}
			res, err := e.Build(cmd.Context(), concepts)
			if err != nil {
				return err
			}

			var edges []graph.Edge
			for _, edge := range graph.Edges(res.Concepts) {
				if kind == "" || edge.Kind == kind {
					edges = append(edges, edge)
				}
			}
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return writeJSON(out, edges)
			}
			for _, edge := range edges {
				fmt.Fprintf(out, "%s\t%s\t%s\t%.2f\n", edge.From, edge.Kind, edge.To, edge.Weight)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Only edges of this kind: neighbor|reference")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
