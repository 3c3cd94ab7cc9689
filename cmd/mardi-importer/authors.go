// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/mardi4nfdi/importer/internal/identity"
	"github.com/mardi4nfdi/importer/pkg/types"
)

var authorsCmd = &cobra.Command{
	Use:   "authors",
	Short: "Cluster contributor mentions into people",
}

var authorsDedupeCmd = &cobra.Command{
	Use:   "dedupe <mentions.yaml>",
	Short: "Disambiguate contributor mentions and write their records",
	Long: `Dedupe reads a YAML list of contributor mentions (name, strong_id,
secondary_id, affiliation, aliases, local_id), groups mentions of the same
person and makes sure each person has one local record. The resolved
identities are printed as YAML.

Grouping depends on the order of the list. Use --dry-run to print the
clusters without touching the local graph.`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthorsDedupe,
}

func init() {
	authorsDedupeCmd.Flags().Bool("dry-run", false, "print clusters without writing records")

	authorsCmd.AddCommand(authorsDedupeCmd)
	rootCmd.AddCommand(authorsCmd)
}

func runAuthorsDedupe(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	mentions, err := readMentions(args[0])
	if err != nil {
		return err
	}

	if dryRun {
		c := identity.Clusters(mentions)
		for i, cl := range c.Clusters {
			fmt.Printf("cluster %d: %s %v\n", i+1, cl.Identity.Name, cl.Members)
		}
		fmt.Printf("\n%d mention(s), %d cluster(s)\n", len(mentions), len(c.Clusters))
		return nil
	}

	s, err := openStores(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	r, err := identity.New(s.local, s.mapping, cfg.Identity, identity.WithLogger(logger.Named("identity")))
	if err != nil {
		return err
	}
	resolved, err := r.Disambiguate(cmd.Context(), mentions)
	if err != nil {
		return err
	}
	return writeYAML(os.Stdout, resolved)
}

func readMentions(path string) ([]types.IdentityMention, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mentions: %w", err)
	}
	var mentions []types.IdentityMention
	if err := yaml.Unmarshal(data, &mentions); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return mentions, nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
