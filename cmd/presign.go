// Handles the "osscli presign" command

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var presignCmdConfig struct {
	expires time.Duration
	method  string
}

var presignCmd = &cobra.Command{
	Use:   "presign oss://bucket/key",
	Short: "Print a presigned URL for an object",
	Long: `Prints a URL carrying the signature in its query string, so whoever
holds it can perform the one request until the expiry passes.`,
	Args: cobra.ExactArgs(1),
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

		method := strings.ToUpper(presignCmdConfig.method)
		signed, err := client.Bucket(bucket).SignURL(method, key, presignCmdConfig.expires, nil, nil)
		if err != nil {
			return errors.Wrapf(err, "failed to presign %s", args[0])
		}
		fmt.Println(signed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(presignCmd)

	presignCmd.Flags().DurationVarP(&presignCmdConfig.expires, "expires", "e", time.Hour, "how long the URL stays valid")
	presignCmd.Flags().StringVarP(&presignCmdConfig.method, "method", "X", "GET", "HTTP method the URL allows")
}
