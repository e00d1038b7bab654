// Package server orchestrates the kosync server components.
//
// # Overview
//
// The server package is the central coordinator of the kosync server. It owns
// the HTTP server, the progress store, and, when enabled, the embedded
// Tailscale node. The HTTP handlers themselves live in the api package; this
// package only decides where they listen and how TLS is terminated.
//
// # Listener Modes
//
// Four ways to put the sync API on the network, selected by configuration:
//
//   - Plain TCP on server.http_addr (the default, for use behind a proxy)
//   - TCP with a static certificate pair (tls.cert_file / tls.key_file)
//   - TCP with automatic certificates via ACME (tls.auto), including an
//     HTTP-01 challenge listener on :80
//   - An embedded Tailscale node (tailscale.enabled), optionally with
//     tailnet HTTPS certs (tailscale.https) or public exposure via Funnel
//     (tailscale.funnel)
//
// # Store Selection
//
// OpenStore maps storage.backend to a concrete store:
//
//	st, err := server.OpenStore(ctx, cfg)
//
// The KOSYNC_DB_PATH environment variable overrides the SQLite path.
//
// # Lifecycle
//
// Start the server:
//
//	srv := server.New(cfg, st, logger)
//	err := srv.Run(ctx)
//
// Run blocks until the context is canceled or a listener fails, then performs
// a graceful shutdown with a 5 second deadline. Shutdown stops the HTTP
// server, closes the Tailscale node, and closes the store.
package server
