// Handles the "osscli stat" command

package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var statCmd = &cobra.Command{
	Use:   "stat oss://bucket[/key]",
	Short: "Show bucket or object details",
	Args:  cobra.ExactArgs(1),
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

		if key == "" {
			info, err := bucket.GetBucketInfo(ctx)
			if err != nil {
				return errors.Wrapf(err, "failed to stat bucket %s", bucketName)
			}
			stat, err := bucket.GetBucketStat(ctx)
			if err != nil {
				return errors.Wrapf(err, "failed to stat bucket %s", bucketName)
			}
			fmt.Printf("%-15s %s\n", "Name", info.Name)
			fmt.Printf("%-15s %s\n", "Location", info.Location)
			fmt.Printf("%-15s %s\n", "Created", info.CreationDate.Format(lsTimeFormat))
			fmt.Printf("%-15s %s\n", "StorageClass", info.StorageClass)
			fmt.Printf("%-15s %d\n", "Objects", stat.ObjectCount)
			fmt.Printf("%-15s %s\n", "Storage", formatBytes(stat.Storage))
			return nil
		}

		head, err := bucket.HeadObject(ctx, key, nil)
		if err != nil {
			return errors.Wrapf(err, "failed to stat %s", args[0])
		}
		fmt.Printf("%-15s %s\n", "Key", key)
		fmt.Printf("%-15s %d\n", "Size", head.ContentLength)
		fmt.Printf("%-15s %s\n", "Content-Type", head.ContentType)
		fmt.Printf("%-15s %s\n", "ETag", head.ETag)
		fmt.Printf("%-15s %s\n", "Modified", head.LastModified.Format(lsTimeFormat))
		fmt.Printf("%-15s %s\n", "Type", head.ObjectType)
		if head.StorageClass != "" {
			fmt.Printf("%-15s %s\n", "StorageClass", head.StorageClass)
		}
		for _, line := range userMetaLines(head.Headers) {
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statCmd)
}

// userMetaLines renders the x-oss-meta-* headers, sorted.
func userMetaLines(headers map[string][]string) []string {
	var lines []string
	for name, values := range headers {
		lower := strings.ToLower(name)
		if strings.HasPrefix(lower, "x-oss-meta-") && len(values) > 0 {
			lines = append(lines, fmt.Sprintf("%-15s %s", lower, values[0]))
		}
	}
	sort.Strings(lines)
	return lines
}
