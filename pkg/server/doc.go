// Package server hosts file-staging sessions over HTTP.
//
// Every session owns one filestage.Stager; stagers are never shared between
// sessions. The browser creates a session, then forwards picker changes and
// drag events to it:
//
//	POST   /sessions                      create a session
//	GET    /sessions/{id}                 current state
//	DELETE /sessions/{id}                 tear the session down
//	POST   /sessions/{id}/pick            multipart "files" from a file input
//	POST   /sessions/{id}/drag            {"type": "dragenter"} and friends
//	POST   /sessions/{id}/drop            multipart "files" from a drop
//	POST   /sessions/{id}/clear           remove every entry
//	DELETE /sessions/{id}/entries/{entry} remove one entry
//	GET    /sessions/{id}/feed            websocket change feed
//	GET    /previews/{key}                preview bytes (memory and disk backends)
//	GET    /metrics                       Prometheus metrics
//
// A drop is only staged while a drag is in progress, exactly as in the
// browser: send dragenter to /drag first.
//
// The feed pushes one JSON message per notification:
//
//	{"event": "filestage:change", "data": [{"name": "a.png", "type": "image/png", "size": 512}]}
//	{"event": "filestage:error",  "data": {"message": "file type \"text/plain\" is not accepted (image/*)"}}
//	{"event": "filestage:toast",  "data": {"level": "error", "message": "..."}}
//
// Idle sessions are closed after Config.SessionTTL.
//
// Usage:
//
//	srv := server.New(&server.Config{
//	    Policy: policy.Policy{MaxSizeBytes: 10 << 20, AcceptPatterns: []string{"image/*"}},
//	})
//	defer srv.Shutdown(ctx)
//	http.ListenAndServe(":8080", srv.Handler())
package server
