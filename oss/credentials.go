package oss

import (
	"fmt"
	"strings"

	"github.com/Unknwon/goconfig"
)

// CredentialsSection is the section name LoadCredentialsFile reads by
// default, matching the layout ossutil writes.
const CredentialsSection = "Credentials"

// Credentials holds an access key pair. The pair is immutable; rotating
// keys means constructing a new value.
type Credentials struct {
	accessKeyID     string
	accessKeySecret string
}

// NewCredentials validates and stores an access key pair. Surrounding
// whitespace is stripped before validation.
func NewCredentials(accessKeyID, accessKeySecret string) (*Credentials, error) {
	id := strings.TrimSpace(accessKeyID)
	secret := strings.TrimSpace(accessKeySecret)
	if id == "" || secret == "" {
		return nil, ErrInvalidCredential
	}
	return &Credentials{accessKeyID: id, accessKeySecret: secret}, nil
}

// AccessKeyID returns the access key id.
func (c *Credentials) AccessKeyID() string { return c.accessKeyID }

// AccessKeySecret returns the access key secret.
func (c *Credentials) AccessKeySecret() string { return c.accessKeySecret }

// LoadCredentialsFile reads an ossutil style INI file and returns the
// endpoint and key pair stored in the given section:
//
//	[Credentials]
//	endpoint=oss-cn-hangzhou.aliyuncs.com
//	accessKeyID=...
//	accessKeySecret=...
//
// The endpoint entry may be absent, the key pair may not.
func LoadCredentialsFile(path, section string) (string, *Credentials, error) {
	cfg, err := goconfig.LoadConfigFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load credentials file %s: %w", path, err)
	}
	endpoint := cfg.MustValue(section, "endpoint")
	creds, err := NewCredentials(
		cfg.MustValue(section, "accessKeyID"),
		cfg.MustValue(section, "accessKeySecret"),
	)
	if err != nil {
		return "", nil, fmt.Errorf("credentials file %s section [%s]: %w", path, section, err)
	}
	return endpoint, creds, nil
}
