package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// NetAddress holds structured network address data for host and port.
// It implements the flag.Value interface.
type NetAddress struct {
	Host string
	Port int
}

// ParseFlags parses configuration flags from args (usually os.Args[1:]).
//
// Flags:
//
//	-a server address in format [host]:[port]
//	-remote remote store address used by the client
//	-d database DSN
//	-state-dir client state directory
//	-config-file local configuration document to sync
//	-log-file client log file
//	-c/-config JSON or YAML file path with configs
//	-user user id
//	-device-name device label
//	-strategy conflict resolution strategy
//	-encrypt enable payload encryption
//	-token-sign-key token signing key
//	-token-issuer token issuer name
//	-token-duration token duration (e.g., "1h", "30m")
//	-request-timeout request timeout (e.g., "30s", "1m")
//	-sync-interval background sync period
//	-hash-key security hash key
func ParseFlags(args []string) (*StructuredConfig, error) {
	var serverAddress NetAddress
	var remoteAddress string
	var databaseDSN string
	var stateDir, configFile, logFile string
	var configPath string
	var userID, deviceName string
	var strategy string
	var encrypt bool
	var tokenSignKey string
	var tokenIssuer string
	var tokenDuration time.Duration
	var requestTimeout time.Duration
	var syncInterval time.Duration
	var hashKey string

	fs := flag.NewFlagSet("go-conf-sync", flag.ContinueOnError)
	fs.Var(&serverAddress, "a", "Net address host:port")
	fs.StringVar(&remoteAddress, "remote", "", "Remote store address")
	fs.StringVar(&databaseDSN, "d", "", "Database DSN")
	fs.StringVar(&stateDir, "state-dir", "", "Client state directory")
	fs.StringVar(&configFile, "config-file", "", "Local configuration document")
	fs.StringVar(&logFile, "log-file", "", "Client log file")
	fs.StringVar(&configPath, "c", "", "JSON or YAML config file path")
	fs.StringVar(&configPath, "config", "", "JSON or YAML config file path (alias)")
	fs.StringVar(&userID, "user", "", "User ID")
	fs.StringVar(&deviceName, "device-name", "", "Device name")
	fs.StringVar(&strategy, "strategy", "", "Conflict resolution strategy")
	fs.BoolVar(&encrypt, "encrypt", false, "Encrypt uploaded payloads")
	fs.StringVar(&tokenSignKey, "token-sign-key", "", "Token signing key")
	fs.StringVar(&tokenIssuer, "token-issuer", "", "Token issuer")
	fs.DurationVar(&tokenDuration, "token-duration", 0, "Token duration (e.g., 1h, 30m)")
	fs.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	fs.DurationVar(&syncInterval, "sync-interval", 0, "Background sync interval")
	fs.StringVar(&hashKey, "hash-key", "", "Security hash key")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("error parsing flags: %w", err)
	}

	return &StructuredConfig{
		App: App{
			TokenSignKey:  tokenSignKey,
			TokenIssuer:   tokenIssuer,
			TokenDuration: tokenDuration,
			HashKey:       hashKey,
			UserID:        userID,
			DeviceName:    deviceName,
			Encrypt:       encrypt,
		},
		Sync: Sync{
			Strategy: strategy,
		},
		Storage: Storage{
			DB: DB{
				DSN: databaseDSN,
			},
			Local: Local{
				StateDir:   stateDir,
				ConfigFile: configFile,
				LogFile:    logFile,
			},
		},
		Server: Server{
			HTTPAddress:    serverAddress.String(),
			RequestTimeout: requestTimeout,
		},
		Adapter: Adapter{
			HTTPAddress:    remoteAddress,
			RequestTimeout: requestTimeout,
		},
		Workers: Workers{
			SyncInterval: syncInterval,
		},
		FilePath: configPath,
	}, nil
}

// String returns a canonical host:port string for a NetAddress.
// If neither Host nor Port are set, it returns the default server address.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Set parses the input string of form host:port and populates the NetAddress.
// It validates the port range, checks IP correctness unless host is "localhost",
// and returns an error if the format or values are invalid.
func (a *NetAddress) Set(s string) error {
	hostAndPort := strings.Split(s, ":")
	if len(hostAndPort) != 2 {
		return errors.New("need address in a form `host:port`")
	}

	host := hostAndPort[0]
	port, err := strconv.Atoi(hostAndPort[1])
	if err != nil {
		return err
	}

	if port < 1 {
		return errors.New("port number is a positive integer")
	}

	if host != "localhost" {
		ip := net.ParseIP(hostAndPort[0])
		if ip == nil {
			return errors.New("incorrect IP-address provided")
		}
	}

	a.Host = host
	a.Port = port
	return nil
}
