// Package integration provides end-to-end tests for the mvnoci proxy. The
// tests run a real OCI registry on a loopback port, publish artifact images
// into it, and exercise the full request path from Maven repository URL to
// registry pull to cached response.
package integration
