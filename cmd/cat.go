// Handles the "osscli cat" command

package cmd

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var catCmd = &cobra.Command{
	Use:   "cat oss://bucket/key",
	Short: "Write an object to standard output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bucket, key, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		if key == "" {
			return errors.Errorf("%s names no object", args[0])
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		result, err := client.Bucket(bucket).GetObject(cmd.Context(), key, nil)
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", args[0])
		}
		defer result.Close()
		if _, err := io.Copy(os.Stdout, result); err != nil {
			return errors.Wrapf(err, "failed to read %s", args[0])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catCmd)
}
