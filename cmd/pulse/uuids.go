package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srg/pulse/internal/bledb"
)

// uuidsCmd lists the built-in registry
var uuidsCmd = &cobra.Command{
	Use:   "uuids",
	Short: "List known service, characteristic, and descriptor UUIDs",
	Args:  cobra.NoArgs,
	RunE:  runUUIDs,
}

var uuidsKind string

func init() {
	uuidsCmd.Flags().StringVarP(&uuidsKind, "kind", "k", "", "Only list one kind (service, characteristic, descriptor)")
}

func runUUIDs(cmd *cobra.Command, _ []string) error {
	kinds := []bledb.Kind{bledb.KindService, bledb.KindCharacteristic, bledb.KindDescriptor}
	if uuidsKind != "" {
		k := bledb.Kind(uuidsKind)
		switch k {
		case bledb.KindService, bledb.KindCharacteristic, bledb.KindDescriptor:
			kinds = []bledb.Kind{k}
		default:
			return fmt.Errorf("invalid kind '%s': must be service, characteristic, or descriptor", uuidsKind)
		}
	}
	cmd.SilenceUsage = true

	r := newRenderer(cmd.OutOrStdout(), false)
	registry := bledb.Default()
	for i, k := range kinds {
		if i > 0 {
			fmt.Fprintln(cmd.OutOrStdout())
		}
		if err := r.entries(k, registry.Entries(k)); err != nil {
			return err
		}
	}
	return nil
}
