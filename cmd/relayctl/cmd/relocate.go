package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samops/filerelay/internal/config"
	"github.com/samops/filerelay/internal/envelope"
	"github.com/samops/filerelay/internal/relocate"
	"github.com/samops/filerelay/internal/transform"
)

var (
	relocateBucket string
	relocateKey    string
)

// relocateCmd runs the transform+copy pipeline once for a single object,
// bypassing the queue.
var relocateCmd = &cobra.Command{
	Use:   "relocate",
	Short: "Relocate a single object to its canonical destination",
	Long: `Relocate copies one object from the staging bucket to its canonical
destination, using the same grammar the worker applies. Storage settings come
from the environment (S3_ENDPOINT, S3_ACCESS_KEY, S3_SECRET_KEY,
DESTINATION_BUCKET).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromEnv()
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		fileName, folderPath := envelope.SplitKey(relocateKey)
		loc, err := transform.Grammar{}.Transform(ctx, fileName, folderPath)
		if err != nil {
			return err
		}

		executor, err := relocate.New(relocate.Config{
			Endpoint:          cfg.Storage.Endpoint,
			AccessKey:         cfg.Storage.AccessKey,
			SecretKey:         cfg.Storage.SecretKey,
			Region:            cfg.Storage.Region,
			UseSSL:            cfg.Storage.UseSSL,
			DestinationBucket: cfg.Storage.DestinationBucket,
		})
		if err != nil {
			return err
		}

		if err := executor.Relocate(ctx, relocateBucket, relocateKey, loc); err != nil {
			return err
		}

		result := struct {
			Source      string `json:"source"`
			Destination string `json:"destination"`
		}{
			Source:      relocateBucket + "/" + relocateKey,
			Destination: cfg.Storage.DestinationBucket + "/" + loc.Key(),
		}
		printOutput(result, func() {
			fmt.Printf("Copied %s -> %s\n", result.Source, result.Destination)
		})
		return nil
	},
}

func init() {
	relocateCmd.Flags().StringVar(&relocateBucket, "source-bucket", "", "source bucket (required)")
	relocateCmd.Flags().StringVar(&relocateKey, "key", "", "source object key (required)")
	relocateCmd.MarkFlagRequired("source-bucket")
	relocateCmd.MarkFlagRequired("key")
	rootCmd.AddCommand(relocateCmd)
}
