// Handles the "osscli ls" command

package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jerevia/go-oss/oss"
)

const lsTimeFormat = "2006-01-02 15:04:05"

var lsCmdConfig struct {
	long      bool
	delimiter string
}

var lsCmd = &cobra.Command{
	Use:   "ls [oss://bucket[/prefix]]",
	Short: "List buckets or objects",
	Long: `Without an argument ls lists the buckets the account owns. With an
address it lists the objects under the prefix, following pagination
until the listing is exhausted. With --delimiter the listing is
grouped the way a directory hierarchy would be.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()
		ctx := cmd.Context()

		if len(args) == 0 {
			return listBuckets(ctx, client)
		}
		bucket, prefix, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		if lsCmdConfig.delimiter != "" {
			return listGrouped(ctx, client.Bucket(bucket), prefix)
		}
		return listFlat(ctx, client.Bucket(bucket), prefix)
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)

	lsCmd.Flags().BoolVarP(&lsCmdConfig.long, "long", "l", false, "show size and modification time")
	lsCmd.Flags().StringVarP(&lsCmdConfig.delimiter, "delimiter", "d", "", "group keys on this delimiter, usually /")
}

func listBuckets(ctx context.Context, client *oss.Client) error {
	marker := ""
	for {
		result, err := client.ListBuckets(ctx, "", marker, 0)
		if err != nil {
			return errors.Wrap(err, "failed to list buckets")
		}
		for _, b := range result.Buckets {
			if lsCmdConfig.long {
				fmt.Printf("%s  %-16s  %s\n", b.CreationDate.Format(lsTimeFormat), b.Location, b.Name)
			} else {
				fmt.Println(b.Name)
			}
		}
		if !result.IsTruncated {
			return nil
		}
		marker = result.NextMarker
	}
}

func listFlat(ctx context.Context, bucket *oss.Bucket, prefix string) error {
	it := bucket.Objects(prefix, "", "", 0)
	count := 0
	for {
		info, err := it.Next(ctx)
		if err == oss.ErrNoMoreObjects {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "failed to list oss://%s/%s", bucket.Name(), prefix)
		}
		printObject(info)
		count++
	}
	log.Debugf("Listed %d objects in Bucket(%s)", count, bucket.Name())
	return nil
}

func listGrouped(ctx context.Context, bucket *oss.Bucket, prefix string) error {
	marker := ""
	for {
		page, err := bucket.ListObjects(ctx, prefix, lsCmdConfig.delimiter, marker, 0)
		if err != nil {
			return errors.Wrapf(err, "failed to list oss://%s/%s", bucket.Name(), prefix)
		}
		for _, p := range page.CommonPrefixes {
			fmt.Println(p)
		}
		for _, o := range page.Objects {
			printObject(o)
		}
		if !page.IsTruncated {
			return nil
		}
		marker = page.NextMarker
	}
}

func printObject(info oss.ObjectInfo) {
	if lsCmdConfig.long {
		fmt.Printf("%12d  %s  %s\n", info.Size, info.LastModified.Format(lsTimeFormat), info.Key)
	} else {
		fmt.Println(info.Key)
	}
}
