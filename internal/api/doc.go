// Package api implements the sync protocol's HTTP surface.
//
// # Endpoints
//
// The wire surface is fixed. Paths, JSON field names, status codes, and
// error bodies are shared with every deployed e-reader client:
//
//	POST /users/create              register (unauthenticated)   201 {"username": u}
//	GET  /users/auth                credential check             200 {"authorized": "OK"}
//	GET  /syncs/progress/{document} pull last position           200 record | {"document": d}
//	PUT  /syncs/progress            push position                200 {"document": d, "timestamp": t}
//	GET  /healthcheck               liveness (authenticated)     200 {"state": "OK"}
//	GET  /robots.txt                crawler opt-out              200 plain text
//
// # Authentication
//
// Clients send x-auth-user and x-auth-key on every request. The gate
// (requireAuth) validates both headers, loads the stored key, and compares
// it in constant time. There are no sessions or tokens: each request
// stands alone. Pulling a document that was never pushed is a success that
// echoes the document id; clients probe documents optimistically and a
// 404 would surface as a sync error in their UI.
//
// # Errors
//
// Failures map onto a closed five-member taxonomy (see errors.go) with
// numeric wire codes 2000-2004. Store faults are logged with their cause
// and reported as code 2000; they are never conflated with bad
// credentials.
package api
