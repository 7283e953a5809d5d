// Package config provides configuration loading, merging, and validation
// facilities for the client and the remote store server.
//
// Configuration is assembled from multiple sources. For every field the
// first source that sets it wins:
//  1. Environment variables (a .env file in the working directory is
//     loaded first and never overrides variables already set)
//  2. Command-line flags
//  3. JSON or YAML config file
//  4. Built-in defaults
//
// The main entry points are [GetClientConfig] for the sync client and
// [GetServerConfig] for the remote store server.
package config
