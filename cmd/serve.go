// Handles the "osscli serve" command

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jerevia/go-oss/oss"
	"github.com/jerevia/go-oss/osstest"
)

var serveCmdConfig struct {
	addr     string
	seed     string
	baseHost string
	open     bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local in-memory OSS endpoint",
	Long: `Serves the emulator over HTTP for development and tests. Requests
are verified against the configured access key unless --open is given.
A YAML seed file can preload buckets and objects; SIGHUP loads it
again.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts []osstest.ServerOption
		if !serveCmdConfig.open {
			creds, err := serveCredentials()
			if err != nil {
				return err
			}
			opts = append(opts, osstest.WithCredentials(creds))
		}
		if serveCmdConfig.baseHost != "" {
			opts = append(opts, osstest.WithBaseHost(serveCmdConfig.baseHost))
		}

		store := osstest.NewServer(opts...)
		if serveCmdConfig.seed != "" {
			if err := store.LoadSeed(serveCmdConfig.seed); err != nil {
				return err
			}
		}

		srv := &http.Server{
			Addr:              serveCmdConfig.addr,
			Handler:           store,
			ReadHeaderTimeout: 10 * time.Second,
		}
		errc := make(chan error, 1)
		go func() {
			fmt.Printf("Serving on http://%s (in memory, data is gone on exit)\n", serveCmdConfig.addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errc <- err
			}
		}()

		sighup := make(chan os.Signal, 1)
		NotifyOnSigHup(sighup)

		ctx := cmd.Context()
		for {
			select {
			case <-ctx.Done():
				fmt.Println("\nShutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			case err := <-errc:
				return errors.Wrap(err, "emulator failed")
			case <-sighup:
				if serveCmdConfig.seed == "" {
					continue
				}
				if err := store.LoadSeed(serveCmdConfig.seed); err != nil {
					log.Warnf("Seed reload failed: %v", err)
				} else {
					fmt.Printf("Loaded seed %s\n", serveCmdConfig.seed)
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveCmdConfig.addr, "addr", "127.0.0.1:9000", "listen address")
	serveCmd.Flags().StringVar(&serveCmdConfig.seed, "seed", "", "YAML file with buckets and objects to preload")
	serveCmd.Flags().StringVar(&serveCmdConfig.baseHost, "base-host", "", "answer virtual host requests under this domain")
	serveCmd.Flags().BoolVar(&serveCmdConfig.open, "open", false, "skip signature verification")
}

// serveCredentials resolves just the key pair; serve has no use for an
// endpoint.
func serveCredentials() (*oss.Credentials, error) {
	id := settings.GetString("access-key-id")
	secret := settings.GetString("access-key-secret")
	if id == "" || secret == "" {
		path := settings.GetString("config")
		if _, err := os.Stat(path); err == nil {
			_, fileCreds, err := oss.LoadCredentialsFile(path, oss.CredentialsSection)
			if err != nil {
				return nil, err
			}
			if id == "" {
				id = fileCreds.AccessKeyID()
			}
			if secret == "" {
				secret = fileCreds.AccessKeySecret()
			}
		}
	}
	creds, err := oss.NewCredentials(id, secret)
	if err != nil {
		return nil, errors.Wrap(err, `no access key to verify against, run "osscli config" or pass --open`)
	}
	return creds, nil
}
