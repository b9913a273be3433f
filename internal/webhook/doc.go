// Package webhook serves signed tool invocations over HTTP with
// HMAC-SHA256 verification and schema-validated parameters.
//
// # Security Model
//
//   - Signatures are HMAC-SHA256 over "<timestamp>.<raw body>" and verified
//     with crypto/subtle (constant-time comparison)
//   - Timestamps outside the replay window (5 minutes back, 60 seconds
//     forward) are rejected before any HMAC is computed
//   - Body size limits are enforced before verification
//   - Tool bodies only ever see parameters their schema accepted, and only
//     the environment variables their descriptor declared
//   - Request logging excludes payloads; secrets never appear in logs or
//     responses
//
// # Request Flow
//
//  1. HTTP POST arrives at /tools/<name>
//  2. Body size checked (413 if too large)
//  3. x-fo-signature and x-fo-timestamp verified over the raw bytes
//     (401 on any verification failure)
//  4. Body parsed as the invocation envelope (400 on malformed JSON)
//  5. params validated against the tool's JSON Schema (422 with issue
//     details on rejection; the tool body is never invoked)
//  6. Execution context built: caller message/agent passed through,
//     declared env vars resolved, per-call logger attached
//  7. Tool body runs; 200 {success:true,result} or
//     500 {success:false,error} with the raw error logged
//
// Each call is independent and stateless; the handler performs no retries
// and no deduplication within the replay window, so tool bodies must
// tolerate at-least-once delivery.
//
// # Example Usage
//
//	echo := tool.MustDefine(tool.Config{
//		Name:        "echo_tool",
//		Description: "echoes its params back",
//		Parameters:  schema.MustCompile(paramsSchema),
//		Execute:     echoExec,
//	})
//
//	registry := tool.NewRegistry()
//	registry.MustRegister(echo)
//
//	srv, err := webhook.NewServer(webhook.Config{
//		Listen:  "127.0.0.1:8787",
//		Secrets: map[string]string{"echo_tool": os.Getenv("ECHO_TOOL_SECRET")},
//	}, registry, nil, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := srv.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
package webhook
