// Handles the "osscli cp" command

package cmd

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jerevia/go-oss/oss"
)

var cpCmdConfig struct {
	jobs        int
	meta        string
	contentType string
	quiet       bool
}

var cpCmd = &cobra.Command{
	Use:   "cp SOURCE... DEST",
	Short: "Copy files to, from or between buckets",
	Long: `Uploads local files to a bucket, downloads objects to a local path,
or copies objects between buckets server side. The direction follows
from which arguments carry the oss:// scheme; mixing local and remote
sources is not allowed.

Several files are transferred concurrently, see --jobs.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cpCmdConfig.jobs < 1 {
			return errors.New("--jobs must be at least 1")
		}
		sources, dst := args[:len(args)-1], args[len(args)-1]
		remote := 0
		for _, src := range sources {
			if isRemote(src) {
				remote++
			}
		}
		if remote != 0 && remote != len(sources) {
			return errors.New("cannot mix local and remote sources")
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()
		ctx := cmd.Context()

		switch {
		case remote == 0 && isRemote(dst):
			return runUpload(ctx, client, sources, dst)
		case remote > 0 && !isRemote(dst):
			return runDownload(ctx, client, sources, dst)
		case remote > 0 && isRemote(dst):
			return runServerCopy(ctx, client, sources, dst)
		default:
			return errors.New("either the sources or the destination must be an oss:// address")
		}
	},
}

func init() {
	rootCmd.AddCommand(cpCmd)

	cpCmd.Flags().IntVarP(&cpCmdConfig.jobs, "jobs", "j", 4, "number of concurrent transfers")
	cpCmd.Flags().StringVar(&cpCmdConfig.meta, "meta", "", "user metadata to store: k1=v1,k2=v2")
	cpCmd.Flags().StringVar(&cpCmdConfig.contentType, "content-type", "", "Content-Type to store instead of sniffing from the name")
	cpCmd.Flags().BoolVarP(&cpCmdConfig.quiet, "quiet", "q", false, "no progress output")
}

func runUpload(ctx context.Context, client *oss.Client, sources []string, dst string) error {
	bucketName, keyPrefix, err := parseAddress(dst)
	if err != nil {
		return err
	}
	bucket := client.Bucket(bucketName)
	multi := len(sources) > 1

	stats := newTransferStats(len(sources))
	stop := progressFor(stats)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cpCmdConfig.jobs)
	for _, src := range sources {
		src := src
		g.Go(func() error {
			info, err := os.Stat(src)
			if err != nil {
				return errors.Wrapf(err, "failed to read %s", src)
			}
			key, err := destKey(keyPrefix, filepath.Base(src), multi)
			if err != nil {
				return err
			}
			if _, err := bucket.PutObjectFromFile(ctx, key, src, transferHeaders()); err != nil {
				return errors.Wrapf(err, "failed to upload %s", src)
			}
			log.Debugf("Uploaded %s to oss://%s/%s", src, bucketName, key)
			stats.add(info.Size())
			return nil
		})
	}
	err = g.Wait()
	stop()
	return err
}

func runDownload(ctx context.Context, client *oss.Client, sources []string, dst string) error {
	multi := len(sources) > 1

	stats := newTransferStats(len(sources))
	stop := progressFor(stats)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cpCmdConfig.jobs)
	for _, src := range sources {
		src := src
		g.Go(func() error {
			bucketName, key, err := parseAddress(src)
			if err != nil {
				return err
			}
			if key == "" {
				return errors.Errorf("source %s names no object", src)
			}
			target, err := destPath(dst, key, multi)
			if err != nil {
				return err
			}
			if err := client.Bucket(bucketName).GetObjectToFile(ctx, key, target, nil); err != nil {
				return errors.Wrapf(err, "failed to download %s", src)
			}
			log.Debugf("Downloaded oss://%s/%s to %s", bucketName, key, target)
			if info, err := os.Stat(target); err == nil {
				stats.add(info.Size())
			}
			return nil
		})
	}
	err := g.Wait()
	stop()
	return err
}

func runServerCopy(ctx context.Context, client *oss.Client, sources []string, dst string) error {
	bucketName, keyPrefix, err := parseAddress(dst)
	if err != nil {
		return err
	}
	bucket := client.Bucket(bucketName)
	multi := len(sources) > 1

	headers := transferHeaders()
	if headers != nil {
		// Fresh metadata was asked for, so do not carry the source's.
		headers["x-oss-metadata-directive"] = "REPLACE"
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cpCmdConfig.jobs)
	for _, src := range sources {
		src := src
		g.Go(func() error {
			srcBucket, srcKey, err := parseAddress(src)
			if err != nil {
				return err
			}
			if srcKey == "" {
				return errors.Errorf("source %s names no object", src)
			}
			key, err := destKey(keyPrefix, path.Base(srcKey), multi)
			if err != nil {
				return err
			}
			if _, err := bucket.CopyObject(ctx, srcBucket, srcKey, key, headers); err != nil {
				return errors.Wrapf(err, "failed to copy %s", src)
			}
			log.Debugf("Copied %s to oss://%s/%s", src, bucketName, key)
			return nil
		})
	}
	return g.Wait()
}

// progressFor starts the progress line unless --quiet asked for
// silence. The returned func always stops it.
func progressFor(stats *transferStats) func() {
	if cpCmdConfig.quiet {
		return func() {}
	}
	return startProgress(stats)
}

// destKey decides the object key for one transferred file.
func destKey(prefix, name string, multi bool) (string, error) {
	if prefix == "" {
		return name, nil
	}
	if strings.HasSuffix(prefix, "/") {
		return prefix + name, nil
	}
	if multi {
		return "", errors.Errorf("destination key %q must end with / when copying several files", prefix)
	}
	return prefix, nil
}

// destPath decides the local path for one downloaded object.
func destPath(dst, key string, multi bool) (string, error) {
	info, err := os.Stat(dst)
	if (err == nil && info.IsDir()) || strings.HasSuffix(dst, string(os.PathSeparator)) {
		return filepath.Join(dst, path.Base(key)), nil
	}
	if multi {
		return "", errors.Errorf("destination %s must be a directory when downloading several objects", dst)
	}
	return dst, nil
}

func transferHeaders() map[string]string {
	headers := make(map[string]string)
	for k, v := range parseKeyValue(cpCmdConfig.meta) {
		headers["x-oss-meta-"+k] = v
	}
	if cpCmdConfig.contentType != "" {
		headers["Content-Type"] = cpCmdConfig.contentType
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}
