// Package app wires configuration, logging, metrics, the service layer
// and the chi router into a runnable HTTP application with graceful
// shutdown.
package app
