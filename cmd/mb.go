// Handles the "osscli mb" command

package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var mbCmdConfig struct {
	acl string
}

var mbCmd = &cobra.Command{
	Use:   "mb oss://bucket",
	Short: "Make a bucket",
	Args:  cobra.ExactArgs(1),
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

		var headers map[string]string
		if mbCmdConfig.acl != "" {
			headers = map[string]string{"x-oss-acl": mbCmdConfig.acl}
		}
		if err := client.Bucket(bucketName).CreateBucket(cmd.Context(), headers); err != nil {
			return errors.Wrapf(err, "failed to create bucket %s", bucketName)
		}
		fmt.Printf("Created oss://%s\n", bucketName)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mbCmd)

	mbCmd.Flags().StringVar(&mbCmdConfig.acl, "acl", "", "bucket ACL: private, public-read or public-read-write")
}
