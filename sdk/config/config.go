// Package config provides the public SDK configuration API.
//
// It re-exports the configuration types and helpers so embedders can drive a
// steamlink login without importing internal packages.
package config

import internalconfig "github.com/steamlink/steamlink/internal/config"

type Config = internalconfig.Config

const (
	DefaultCallbackHost = internalconfig.DefaultCallbackHost
	DefaultCallbackPort = internalconfig.DefaultCallbackPort
	DefaultCallbackPath = internalconfig.DefaultCallbackPath

	CredentialBackendSQLite  = internalconfig.CredentialBackendSQLite
	CredentialBackendKeyring = internalconfig.CredentialBackendKeyring
)

func Default() *Config { return internalconfig.Default() }

func LoadConfig(configFile string) (*Config, error) { return internalconfig.LoadConfig(configFile) }

func LoadConfigOptional(configFile string) (*Config, error) {
	return internalconfig.LoadConfigOptional(configFile)
}
