// Package cli implements the fdwatch command-line interface.
//
// Each cobra command parses its flags and hands off to a plain function
// (watchCommand, logsCommand, ...) that does the work. Those functions take
// an io.Writer and a WorkflowOptions so tests can run them against an
// httptest API without going through cobra.
//
//	fdwatch watch [server]    - Interactive dashboard
//	fdwatch servers           - List running and configured servers
//	fdwatch logs [server]     - Print or follow a server's log
//	fdwatch metrics [server]  - Print model and device statistics
//	fdwatch config [server]   - Print the model configuration
//	fdwatch open [server]     - Open the server's web client
//	fdwatch stop [server]     - Stop a server
//	fdwatch init              - Create .fdwatch.yaml
//
// SetupWorkflow is shared by every command that talks to the API: it loads
// and validates config, opens the SSH tunnel when one is configured, builds
// the API client and resolves the server argument.
package cli
