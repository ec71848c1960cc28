// Handles the "osscli rm" command

package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jerevia/go-oss/oss"
)

// batchDeleteLimit is the service cap on keys per batch delete call.
const batchDeleteLimit = 1000

var rmCmdConfig struct {
	batch bool
	force bool
}

var rmCmd = &cobra.Command{
	Use:   "rm oss://bucket/key",
	Short: "Delete objects",
	Long: `Deletes one object, or with --batch every object under the prefix.
Deleting a key that does not exist succeeds quietly.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bucketName, key, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()
		bucket := client.Bucket(bucketName)
		ctx := cmd.Context()

		if !rmCmdConfig.batch {
			if key == "" {
				return errors.Errorf("%s names no object, did you mean --batch?", args[0])
			}
			if err := bucket.DeleteObject(ctx, key); err != nil {
				return errors.Wrapf(err, "failed to delete %s", args[0])
			}
			return nil
		}

		if !rmCmdConfig.force {
			fmt.Printf("Delete every object under oss://%s/%s?\n", bucketName, key)
			if !confirm(false) {
				return nil
			}
		}
		deleted, err := deletePrefix(ctx, bucket, key)
		if err != nil {
			return errors.Wrapf(err, "failed to delete under %s", args[0])
		}
		fmt.Printf("Deleted %d objects\n", deleted)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)

	rmCmd.Flags().BoolVar(&rmCmdConfig.batch, "batch", false, "treat the key as a prefix and delete everything under it")
	rmCmd.Flags().BoolVarP(&rmCmdConfig.force, "force", "f", false, "no confirmation prompt")
}

// deletePrefix walks the listing under prefix and removes the keys in
// service sized batches. It returns how many keys the service deleted.
func deletePrefix(ctx context.Context, bucket *oss.Bucket, prefix string) (int, error) {
	deleted := 0
	batch := make([]string, 0, batchDeleteLimit)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		result, err := bucket.DeleteObjects(ctx, batch)
		if err != nil {
			return err
		}
		deleted += len(result.DeletedKeys)
		batch = batch[:0]
		return nil
	}

	it := bucket.Objects(prefix, "", "", 0)
	for {
		info, err := it.Next(ctx)
		if err == oss.ErrNoMoreObjects {
			break
		}
		if err != nil {
			return deleted, err
		}
		batch = append(batch, info.Key)
		if len(batch) == batchDeleteLimit {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	return deleted, flush()
}
