package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPluginsCmd(state *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Inspect the plugin registry",
	}
	cmd.AddCommand(newPluginsListCmd(state))
	cmd.AddCommand(newPluginsDescribeCmd(state))
	return cmd
}

func newPluginsListCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every discovered plugin manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			manifests := state.registry.Manifests()
			if len(manifests) == 0 {
				fmt.Println("no plugins discovered")
				return nil
			}
			for _, m := range manifests {
				impl := "no"
				if state.registry.HasImplementation(m.ID) {
					impl = "yes"
				}
				fmt.Printf("%-20s %-10s v%-10s implementation=%s\n", m.ID, m.Kind, m.Version, impl)
			}
			return nil
		},
	}
}

func newPluginsDescribeCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <id>",
		Short: "Print a single plugin's manifest in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			m, ok := state.registry.GetManifest(id)
			if !ok {
				return fmt.Errorf("plugin %q not discovered", id)
			}
			fmt.Printf("id:           %s\n", m.ID)
			fmt.Printf("name:         %s\n", m.Name)
			fmt.Printf("version:      %s\n", m.Version)
			fmt.Printf("kind:         %s\n", m.Kind)
			fmt.Printf("capabilities: %v\n", m.Capabilities)
			fmt.Printf("dependencies: %v\n", m.Dependencies)
			if m.Description != "" {
				fmt.Printf("description:  %s\n", m.Description)
			}
			deps, err := state.registry.ResolveDependencies(id)
			if err != nil {
				fmt.Printf("dependency order: error: %v\n", err)
			} else {
				fmt.Printf("dependency order: %v\n", deps)
			}
			return nil
		},
	}
}
