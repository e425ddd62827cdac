package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ubiquits/ubiquits/internal/cli/remote"
	"github.com/ubiquits/ubiquits/internal/models"
	"github.com/ubiquits/ubiquits/internal/orm/schema"
)

func newModelsCommand(_ *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the declared model classes and their relations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := schema.NewRegistry()
			if _, err := models.Define(registry); err != nil {
				return err
			}
			registry.Freeze()
			return remote.RenderModels(cmd.OutOrStdout(), registry, color.NoColor)
		},
	}
}
