package cmd

import (
	"context"
	"fmt"

	"github.com/nikogura/resume-ai/pkg/llm"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models the configured backend accepts",
	Long: `Lists model identifiers from the configured provider, using its SDK when it
has a listing call and the HTTP models endpoint otherwise. Failures are printed
as {"error": "..."}.`,
	Args:          cobra.NoArgs,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runModels,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(_ *cobra.Command, _ []string) (err error) {
	ctx := context.Background()

	var client *llm.Client
	_, client, err = newClient()
	if err != nil {
		_ = printJSON(map[string]string{"error": err.Error()})
		return err
	}
	defer client.Close()

	var list llm.ModelList
	list, err = client.ListModels(ctx)
	if err != nil {
		_ = printJSON(map[string]string{"error": err.Error()})
		return err
	}

	if getJSONOutput() {
		err = printJSON(list)
		return err
	}

	fmt.Printf("Models (%s):\n", list.Source)
	for _, m := range list.Models {
		if m.DisplayName != "" {
			fmt.Printf("  %-40s %s\n", m.ID, m.DisplayName)
			continue
		}
		fmt.Printf("  %s\n", m.ID)
	}

	return err
}
