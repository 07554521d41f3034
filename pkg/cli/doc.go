// Package cli implements the mockd-intercept command line.
//
// Commands:
//   - validate: check fixture files and the pool they build together
//   - explain: resolve one request against fixtures and show the winner
//     or the near-miss report
//   - import-openapi: seed a fixture from an OpenAPI or Swagger document
//   - version: print build information
//
// Every command accepts --json for machine-readable output.
package cli
