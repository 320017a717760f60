// Package main provides the authchain command. It authenticates HTTP requests
// over an ordered chain of adapters configured in etc/main.toml and serves
// the resolved identity behind a Fiber web service. The verify command runs
// the chain once for credentials given on the command line.
package main
