package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samops/filerelay/internal/transform"
)

var (
	transformName string
	transformPath string
)

// transformCmd previews the canonicalization of a staged file name without
// touching storage.
var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Preview the canonical destination for a file name and folder path",
	Example: `  relayctl transform --name "SAM_P23-380_TEST_TV_BLINDED_UC lab_20231030.csv" --path "samprod-fileingestion/P23-380/"
  relayctl transform --name my_report.pdf --path "samprod-fileingestion/Mock Study 33/"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		loc, err := transform.Grammar{}.Transform(ctx, transformName, transformPath)
		if err != nil {
			return err
		}

		rule := "A"
		if loc.FileName == transformName {
			rule = "B"
		}

		result := struct {
			TargetPath string `json:"target_path"`
			TargetName string `json:"target_name"`
			ObjectKey  string `json:"object_key"`
			Rule       string `json:"rule"`
		}{
			TargetPath: loc.Path(),
			TargetName: loc.FileName,
			ObjectKey:  loc.Key(),
			Rule:       rule,
		}

		printOutput(result, func() {
			fmt.Printf("Target path: %s\n", result.TargetPath)
			fmt.Printf("Target name: %s\n", result.TargetName)
			fmt.Printf("Object key:  %s\n", result.ObjectKey)
			fmt.Printf("Rule:        %s\n", result.Rule)
		})
		return nil
	},
}

func init() {
	transformCmd.Flags().StringVar(&transformName, "name", "", "source file name (required)")
	transformCmd.Flags().StringVar(&transformPath, "path", "", "source folder path, with trailing separator")
	transformCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(transformCmd)
}
