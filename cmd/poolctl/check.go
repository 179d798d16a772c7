package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/warp/pool-engine/factory"
	"github.com/warp/pool-engine/pooling"
	"gopkg.in/yaml.v3"
)

// partitionFile is the document poolctl check reads. A bare list of ranges
// is accepted too.
type partitionFile struct {
	DateRanges []factory.DateRangeJSON `yaml:"date_ranges"`
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Report overlaps and gaps in a partition file (YAML or JSON)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			partition, err := parsePartition(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			slog.Debug("partition loaded", "file", args[0], "ranges", len(partition))

			findings := partition.Validate()
			out := cmd.OutOrStdout()
			for _, f := range findings {
				fmt.Fprintln(out, f)
			}
			if len(findings) > 0 {
				return fmt.Errorf("%d problem(s) found", len(findings))
			}
			fmt.Fprintf(out, "OK: %d range(s), no overlaps or gaps\n", len(partition))
			return nil
		},
	}
}

func parsePartition(data []byte) (pooling.Partition, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	var ranges []factory.DateRangeJSON
	if doc.Content[0].Kind == yaml.SequenceNode {
		if err := doc.Content[0].Decode(&ranges); err != nil {
			return nil, err
		}
	} else {
		var pf partitionFile
		if err := doc.Content[0].Decode(&pf); err != nil {
			return nil, err
		}
		ranges = pf.DateRanges
	}
	if len(ranges) == 0 {
		return nil, fmt.Errorf("no date ranges")
	}
	return factory.NewPoolFactory().Partition(ranges)
}
