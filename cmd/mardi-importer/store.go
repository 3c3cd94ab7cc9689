// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mardi4nfdi/importer/internal/localstore"
	"github.com/mardi4nfdi/importer/pkg/types"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Query and export the local graph",
	Long: `Store reads the local SQLite graph: full-text search over labels,
descriptions and aliases, single records by id, and YAML or JSON exports.`,
}

var storeSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search local records by their terms",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStoreSearch,
}

var storeShowCmd = &cobra.Command{
	Use:   "show <local-id>",
	Short: "Print one local record as YAML",
	Args:  cobra.ExactArgs(1),
	RunE:  runStoreShow,
}

var storeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export local records to YAML or JSON",
	RunE:  runStoreExport,
}

func init() {
	storeSearchCmd.Flags().String("namespace", "", "restrict to item or property")
	storeSearchCmd.Flags().String("language", "", "restrict matching terms to one language")
	storeSearchCmd.Flags().Int("max-results", 0, "maximum number of results (default from config)")
	storeSearchCmd.Flags().Bool("json", false, "output results as JSON")

	storeExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	storeExportCmd.Flags().String("namespace", "", "restrict to item or property")

	storeCmd.AddCommand(storeSearchCmd)
	storeCmd.AddCommand(storeShowCmd)
	storeCmd.AddCommand(storeExportCmd)
	rootCmd.AddCommand(storeCmd)
}

func runStoreSearch(cmd *cobra.Command, args []string) error {
	ns, err := namespaceFlag(cmd)
	if err != nil {
		return err
	}
	lang, _ := cmd.Flags().GetString("language")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	asJSON, _ := cmd.Flags().GetBool("json")

	s, err := openStores(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	results, err := s.local.Search(cmd.Context(), localstore.QueryOptions{
		Query:      strings.Join(args, " "),
		Namespace:  ns,
		Language:   lang,
		MaxResults: maxResults,
	})
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	for _, r := range results {
		fmt.Printf("%-10s %s", r.ID, r.Label)
		if r.Description != "" {
			fmt.Printf(" (%s)", r.Description)
		}
		if r.MatchedTerm != r.Label {
			fmt.Printf(" [matched: %s]", r.MatchedTerm)
		}
		fmt.Println()
	}
	return nil
}

func runStoreShow(cmd *cobra.Command, args []string) error {
	id, err := types.ParseEntityID(args[0])
	if err != nil {
		return err
	}

	s, err := openStores(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	e, err := s.local.Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	return writeYAML(os.Stdout, e)
}

func runStoreExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	ns, err := namespaceFlag(cmd)
	if err != nil {
		return err
	}

	s, err := openStores(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	var path string
	switch format {
	case "yaml":
		path, err = s.local.ExportYAML(cmd.Context(), ns)
	case "json":
		path, err = s.local.ExportJSON(cmd.Context(), ns)
	default:
		return fmt.Errorf("unknown format %q (expected yaml or json)", format)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Exported to %s\n", path)
	return nil
}

// namespaceFlag reads --namespace; zero means both namespaces.
func namespaceFlag(cmd *cobra.Command) (types.Namespace, error) {
	raw, _ := cmd.Flags().GetString("namespace")
	if raw == "" {
		return 0, nil
	}
	ns, err := parseNamespaces(raw)
	if err != nil {
		return 0, err
	}
	return ns[0], nil
}
