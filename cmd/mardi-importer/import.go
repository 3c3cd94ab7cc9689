// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mardi4nfdi/importer/internal/importer"
	"github.com/mardi4nfdi/importer/pkg/types"
)

var importCmd = &cobra.Command{
	Use:   "import [ids...]",
	Short: "Import Wikidata items and properties",
	Long: `Import copies the given entities (Q or P ids) into the local graph.
Every entity they reference is created first with its labels, descriptions
and aliases only. Entities that are already fully imported are not fetched
again.

Without --recurse the given entities themselves are imported shallowly.`,
	RunE: runImport,
}

var updateCmd = &cobra.Command{
	Use:   "update [ids...]",
	Short: "Re-import entities and merge them into their local records",
	Long: `Update fetches the given entities again, even when they are fully
imported, and adds their statements to the existing local records. Local
descriptions are kept.`,
	RunE: runUpdate,
}

var overwriteCmd = &cobra.Command{
	Use:   "overwrite <foreign-id> <local-id>",
	Short: "Import a foreign entity into a chosen local record",
	Long: `Overwrite imports the foreign entity and merges it into the given local
record, replacing its descriptions. Both ids must be of the same kind.`,
	Args: cobra.ExactArgs(2),
	RunE: runOverwrite,
}

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create the properties linking local records to Wikidata",
	RunE:  runBootstrap,
}

func init() {
	importCmd.Flags().Bool("recurse", true, "import statements of the given entities")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(overwriteCmd)
	rootCmd.AddCommand(bootstrapCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more entity ids (e.g. Q42, P31)")
	}
	recurse, _ := cmd.Flags().GetBool("recurse")

	im, s, err := newImporter(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	result := im.ImportBatch(cmd.Context(), args, recurse, os.Stdout)
	if result.HasFailures() {
		return fmt.Errorf("%d entit(y/ies) failed import", result.Failed)
	}
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more entity ids (e.g. Q42, P31)")
	}

	im, s, err := newImporter(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	ids, err := im.UpdateEntities(cmd.Context(), args)
	if err != nil {
		return err
	}
	printMapping(ids)
	return nil
}

func runOverwrite(cmd *cobra.Command, args []string) error {
	im, s, err := newImporter(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	local, err := im.OverwriteEntity(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("overwritten: %s -> %s\n", args[0], local)
	return nil
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	im, s, err := newImporter(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("%s: %s\n", importer.ItemBacklinkLabel, im.Backlink(types.NamespaceItem))
	fmt.Printf("%s: %s\n", importer.PropertyBacklinkLabel, im.Backlink(types.NamespaceProperty))
	return nil
}

func printMapping(ids map[string]types.EntityID) {
	keys := make([]string, 0, len(ids))
	for k := range ids {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("updated: %s -> %s\n", k, ids[k])
	}
	fmt.Printf("\n%d entit(y/ies) updated\n", len(ids))
}
