package migrate

import (
	"fmt"
	"strings"

	"github.com/toothbrush/portal-migrate/apim"
)

// Config names the service to talk to and the local snapshot folder.
type Config struct {
	SubscriptionID    string
	ResourceGroupName string
	ServiceName       string
	SnapshotFolder    string
}

// ConfigError lists the settings that were left empty.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("migrate: missing configuration: %s", strings.Join(e.Missing, ", "))
}

func (c Config) Validate() error {
	missing := []string{}
	if c.SubscriptionID == "" {
		missing = append(missing, "SUBSCRIPTION_ID")
	}
	if c.ResourceGroupName == "" {
		missing = append(missing, "RESOURCE_GROUP_NAME")
	}
	if c.ServiceName == "" {
		missing = append(missing, "SERVICE_NAME")
	}
	if c.SnapshotFolder == "" {
		missing = append(missing, "snapshot folder")
	}
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}

func (c Config) Service() apim.Service {
	return apim.Service{
		SubscriptionID:    c.SubscriptionID,
		ResourceGroupName: c.ResourceGroupName,
		ServiceName:       c.ServiceName,
	}
}
