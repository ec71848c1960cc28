// Root of command-line argument parsing, based on the standard cobra
// layout, see https://github.com/spf13/cobra

package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jerevia/go-oss/oss"
)

// settings merges flags, OSS_* environment variables and defaults.
// The credentials file sits below all of them, see resolveConfig.
var settings *viper.Viper

var rootCmd = &cobra.Command{
	Use:   "osscli",
	Short: "Object storage from the command line",
	Long: `osscli talks to an OSS style object store: copy objects in and out,
list and inspect them, presign URLs, and run a local emulator.

Remote addresses are written oss://bucket/key.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			log.SetLevel(log.DebugLevel)
		} else {
			log.SetLevel(log.WarnLevel)
		}
		initSettings()
	},
}

// Execute runs the root command. It is called once, by main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "credentials file (default is ~/.ossconfig)")
	pf.String("endpoint", "", "service endpoint, e.g. oss-cn-hangzhou.aliyuncs.com")
	pf.String("access-key-id", "", "access key id")
	pf.String("access-key-secret", "", "access key secret")
	pf.Bool("cname", false, "treat the endpoint as a CNAME bound to a single bucket")
	pf.Duration("timeout", 60*time.Second, "per request timeout")
	pf.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9184")
	pf.BoolP("verbose", "v", false, "debug logging")
}

func initSettings() {
	settings = viper.New()
	settings.SetDefault("config", defaultConfigPath())
	settings.BindEnv("endpoint", "OSS_ENDPOINT")
	settings.BindEnv("access-key-id", "OSS_ACCESS_KEY_ID")
	settings.BindEnv("access-key-secret", "OSS_ACCESS_KEY_SECRET")
	for _, name := range []string{"config", "endpoint", "access-key-id", "access-key-secret", "cname", "timeout", "metrics-addr"} {
		settings.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func defaultConfigPath() string {
	home, err := homedir.Dir()
	if err != nil {
		return ".ossconfig"
	}
	return filepath.Join(home, ".ossconfig")
}

// resolveConfig returns the endpoint and credentials, taking flags
// first, then environment, then the credentials file.
func resolveConfig() (string, *oss.Credentials, error) {
	endpoint := settings.GetString("endpoint")
	id := settings.GetString("access-key-id")
	secret := settings.GetString("access-key-secret")

	if endpoint == "" || id == "" || secret == "" {
		path := settings.GetString("config")
		if _, err := os.Stat(path); err == nil {
			fileEndpoint, fileCreds, err := oss.LoadCredentialsFile(path, oss.CredentialsSection)
			if err != nil {
				return "", nil, err
			}
			if endpoint == "" {
				endpoint = fileEndpoint
			}
			if id == "" {
				id = fileCreds.AccessKeyID()
			}
			if secret == "" {
				secret = fileCreds.AccessKeySecret()
			}
		}
	}

	if endpoint == "" {
		return "", nil, errors.New(`no endpoint configured, pass --endpoint or run "osscli config"`)
	}
	creds, err := oss.NewCredentials(id, secret)
	if err != nil {
		return "", nil, errors.Wrap(err, `no access key configured, run "osscli config"`)
	}
	return endpoint, creds, nil
}

// newClient builds the client the remote commands share.
func newClient() (*oss.Client, error) {
	endpoint, creds, err := resolveConfig()
	if err != nil {
		return nil, err
	}

	opts := []oss.OptionFunc{
		oss.WithTimeout(settings.GetDuration("timeout")),
		oss.WithAppName("osscli"),
	}
	if settings.GetBool("cname") {
		opts = append(opts, oss.WithCNAME())
	}
	if addr := settings.GetString("metrics-addr"); addr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, oss.WithMetrics(reg))
		serveMetrics(addr, reg)
	}

	client, err := oss.New(endpoint, creds, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build client")
	}
	return client, nil
}

// serveMetrics exposes the registry for scraping. The listener lives
// for the rest of the process; long copies and serve are the users.
func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Warnf("Metrics listener on %s failed: %v", addr, err)
		}
	}()
}

// parseAddress splits an oss://bucket/key address. The scheme is
// optional and the key part may be empty.
func parseAddress(s string) (bucket, key string, err error) {
	trimmed := strings.TrimPrefix(s, "oss://")
	bucket, key, _ = strings.Cut(trimmed, "/")
	if bucket == "" {
		return "", "", errors.Errorf("address %q has no bucket", s)
	}
	return bucket, key, nil
}

// isRemote reports whether the argument names an object store address
// rather than a local path.
func isRemote(s string) bool {
	return strings.HasPrefix(s, "oss://")
}

// parseKeyValue turns "k1=v1,k2=v2" into a map.
func parseKeyValue(s string) map[string]string {
	if s == "" {
		return nil
	}
	result := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		if k, v, ok := strings.Cut(pair, "="); ok {
			result[k] = v
		}
	}
	return result
}
