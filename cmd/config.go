// Handles the "osscli config" command

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Unknwon/goconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jerevia/go-oss/oss"
)

// readLine reads some input. Tests swap it out.
var readLine = func() string {
	buf := bufio.NewReader(os.Stdin)
	line, err := buf.ReadString('\n')
	if err != nil {
		log.Fatalf("Failed to read line: %v", err)
	}
	return strings.TrimSpace(line)
}

// readNonEmptyLine prints prompt and reads until the input is non empty.
func readNonEmptyLine(prompt string) string {
	result := ""
	for result == "" {
		fmt.Print(prompt)
		result = strings.TrimSpace(readLine())
	}
	return result
}

// confirm asks for yes or no, returning the default on plain enter.
func confirm(def bool) bool {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	for {
		fmt.Printf("%s> ", hint)
		switch strings.ToLower(readLine()) {
		case "":
			return def
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
		fmt.Println("This value must be y or n.")
	}
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Store endpoint and access keys in the credentials file",
	Long: `Prompts for the endpoint and access key pair and writes them to the
credentials file in ossutil style INI format. Flags and OSS_*
environment variables always take precedence over the file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := settings.GetString("config")

		endpoint := readNonEmptyLine("endpoint> ")
		id := readNonEmptyLine("accessKeyID> ")
		secret := readNonEmptyLine("accessKeySecret> ")
		if _, err := oss.NewCredentials(id, secret); err != nil {
			return err
		}

		if _, err := os.Stat(path); err == nil {
			fmt.Printf("%s exists. Overwrite the [%s] section?\n", path, oss.CredentialsSection)
			if !confirm(false) {
				return nil
			}
		}
		if err := writeCredentialsFile(path, endpoint, id, secret); err != nil {
			return errors.Wrap(err, "failed to write credentials file")
		}
		fmt.Printf("Saved %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

// writeCredentialsFile rewrites the credentials section, keeping any
// other section in the file. A fresh file is created owner readable
// only.
func writeCredentialsFile(path, endpoint, id, secret string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return err
		}
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			return err
		}
	}
	cfg, err := goconfig.LoadConfigFile(path)
	if err != nil {
		return err
	}
	cfg.SetValue(oss.CredentialsSection, "endpoint", endpoint)
	cfg.SetValue(oss.CredentialsSection, "accessKeyID", id)
	cfg.SetValue(oss.CredentialsSection, "accessKeySecret", secret)
	return goconfig.SaveConfigFile(cfg, path)
}
