package agent

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

type AgentConfig struct {
	PollInterval int
	Address      string
	HostName     string
	RateLimit    int
	Compression  bool
}

// NewAgentConfig parses the agent flags from args; environment variables take precedence.
func NewAgentConfig(args []string) (*AgentConfig, error) {
	hostName, _ := os.Hostname()
	config := &AgentConfig{
		PollInterval: 2,
		Address:      "localhost:10051",
		HostName:     hostName,
		RateLimit:    5,
		Compression:  true,
	}

	flags := flag.NewFlagSet("agent", flag.ContinueOnError)
	pollInterval := flags.Int("p", config.PollInterval, "The frequency of polling metrics in seconds")
	address := flags.String("a", config.Address, "Zabbix server or proxy trapper address")
	host := flags.String("s", config.HostName, "Host name the values belong to")
	rateLimit := flags.Int("l", config.RateLimit, "Number of concurrent senders")
	compression := flags.Bool("c", config.Compression, "Compress requests")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	envIntVars := map[string]*int{
		"POLL_INTERVAL": pollInterval,
		"RATE_LIMIT":    rateLimit,
	}

	envStrVars := map[string]*string{
		"ADDRESS":   address,
		"HOST_NAME": host,
	}

	for envVar, flag := range envIntVars {
		if envValue := os.Getenv(envVar); envValue != "" {
			value, err := strconv.Atoi(envValue)
			if err != nil {
				return nil, fmt.Errorf("invalid %s value %q: %w", envVar, envValue, err)
			}
			*flag = value
		}
	}

	for envVar, flag := range envStrVars {
		if envValue := os.Getenv(envVar); envValue != "" {
			*flag = envValue
		}
	}

	if envValue := os.Getenv("COMPRESSION"); envValue != "" {
		value, err := strconv.ParseBool(envValue)
		if err != nil {
			return nil, fmt.Errorf("invalid COMPRESSION value %q: %w", envValue, err)
		}
		*compression = value
	}

	if *pollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %d", *pollInterval)
	}
	if *rateLimit <= 0 {
		return nil, fmt.Errorf("rate limit must be positive, got %d", *rateLimit)
	}

	config.Address = *address
	config.PollInterval = *pollInterval
	config.HostName = *host
	config.RateLimit = *rateLimit
	config.Compression = *compression

	return config, nil
}
