// Handles the "osscli rb" command

package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var rbCmdConfig struct {
	force bool
}

var rbCmd = &cobra.Command{
	Use:   "rb oss://bucket",
	Short: "Remove a bucket",
	Long: `Removes an empty bucket. With --force the objects in it are deleted
first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bucketName, key, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		if key != "" {
			return errors.Errorf("%s names an object, not a bucket", args[0])
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()
		bucket := client.Bucket(bucketName)
		ctx := cmd.Context()

		if rbCmdConfig.force {
			deleted, err := deletePrefix(ctx, bucket, "")
			if err != nil {
				return errors.Wrapf(err, "failed to empty bucket %s", bucketName)
			}
			if deleted > 0 {
				fmt.Printf("Deleted %d objects\n", deleted)
			}
		}
		if err := bucket.DeleteBucket(ctx); err != nil {
			return errors.Wrapf(err, "failed to remove bucket %s", bucketName)
		}
		fmt.Printf("Removed oss://%s\n", bucketName)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rbCmd)

	rbCmd.Flags().BoolVarP(&rbCmdConfig.force, "force", "f", false, "delete the objects in the bucket first")
}
