// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mardi4nfdi/importer/pkg/types"
)

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Inspect the foreign-to-local id mapping",
}

var mappingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List mapping rows in insertion order",
	RunE:  runMappingList,
}

var mappingLookupCmd = &cobra.Command{
	Use:   "lookup <id>",
	Short: "Show the mapping row of a foreign id",
	Args:  cobra.ExactArgs(1),
	RunE:  runMappingLookup,
}

func init() {
	mappingListCmd.Flags().String("namespace", "", "restrict to item or property")
	mappingListCmd.Flags().Bool("json", false, "output rows as JSON")

	mappingCmd.AddCommand(mappingListCmd)
	mappingCmd.AddCommand(mappingLookupCmd)
	rootCmd.AddCommand(mappingCmd)
}

func runMappingList(cmd *cobra.Command, args []string) error {
	raw, _ := cmd.Flags().GetString("namespace")
	namespaces, err := parseNamespaces(raw)
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")

	s, err := openStores(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	var rows []types.MappingEntry
	for _, ns := range namespaces {
		r, err := s.mapping.List(cmd.Context(), ns)
		if err != nil {
			return err
		}
		rows = append(rows, r...)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	for _, r := range rows {
		fmt.Printf("%-10s -> %-10s full=%t\n", r.ForeignID, r.LocalID, r.FullyImported)
	}
	fmt.Printf("\n%d row(s)\n", len(rows))
	return nil
}

func runMappingLookup(cmd *cobra.Command, args []string) error {
	id, err := types.ParseEntityID(args[0])
	if err != nil {
		return err
	}

	s, err := openStores(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	e, ok, err := s.mapping.Lookup(cmd.Context(), id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", id, types.ErrNotFound)
	}
	fmt.Printf("%s -> %s full=%t\n", e.ForeignID, e.LocalID, e.FullyImported)
	return nil
}

// parseNamespaces maps a --namespace flag to the namespaces it selects.
// An empty value selects both, items first.
func parseNamespaces(raw string) ([]types.Namespace, error) {
	switch raw {
	case "":
		return []types.Namespace{types.NamespaceItem, types.NamespaceProperty}, nil
	case "item", "items", "Q", "q":
		return []types.Namespace{types.NamespaceItem}, nil
	case "property", "properties", "P", "p":
		return []types.Namespace{types.NamespaceProperty}, nil
	default:
		return nil, fmt.Errorf("unknown namespace %q (expected item or property)", raw)
	}
}
