// Package server serves the back office over HTTP and WebSocket.
//
// Every page load is rendered on the server by a short-lived navigation
// region: the path is resolved, the page factory runs and the result is
// written as HTML. A redirect becomes a 303, a recoverable failure renders
// an acknowledgement page whose button leads to the redirect target and an
// unrecoverable one renders the reload page with status 500.
//
// Once loaded, the client opens a WebSocket at /ws. Each socket owns a
// long-lived region (controller, model cache and error boundary) and
// exchanges JSON frames:
//
//	client → server   {"type":"navigate","path":"/orders/2"}
//	                  {"type":"ack","id":"<notice id>"}
//	server → client   {"type":"progress","active":true}
//	                  {"type":"view","view":{...},"html":"..."}
//	                  {"type":"redirect","path":"/","replace":true}
//	                  {"type":"confirm","notice":{...}}
//	                  {"type":"reload"}
//	                  {"type":"error","message":"..."}
//
// Closing the socket closes the region and clears its cache.
//
// # Routes
//
//	GET  /healthz                 liveness
//	GET  /metrics                 Prometheus metrics (when configured)
//	GET  /static/*                client assets
//	POST /api/attachments         attachment upload (when configured)
//	GET  /api/attachments/{id}    attachment download
//	GET  /ws                      live navigation
//	POST /records/{kind}[/{id}]   record form submission
//	GET  /*                       server-side render
package server
