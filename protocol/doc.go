package protocol

// This package implements the framing and serialising of payloads for the
// Language Server Protocol that humlsp uses to communicate with editors.
//
// The protocol is JSON-RPC 2.0 carried over a byte stream (stdio, or a single
// TCP connection). This package knows nothing about LSP semantics, it only
// turns bytes into messages and messages into bytes.
//
// - `Frame` - One length prefixed message on the wire.
// - `Request` - A message with an `id` and a `method`. It always gets a Response.
// - `Notification` - A message with a `method` but no `id`. It never gets a Response.
// - `Response` - A message with an `id` and either a `result` or an `error`.
//
// === Framing
//
// Every message is a header block followed by a body
//
//   ```
//     Content-Length: <bytes>\r\n
//     \r\n
//     <body>
//   ```
//
// - The header block must begin with the literal `Content-Length: ` prefix
// - `<bytes>` is the decimal length of the body in bytes, not characters
// - The header block is terminated by `\r\n\r\n`
// - Additional header lines (e.g. `Content-Type`) are accepted and ignored
// - The body is exactly `<bytes>` bytes of UTF-8 JSON, with no trailing separator
//
// A stream that does not begin with the header prefix has lost its framing.
// There is no way to find the start of the next message again so these errors
// are fatal to the connection. A message that has only partially arrived is not
// an error, the reader waits until the rest of it is available.
//
// === Requests
//
//   ```
//     > {"jsonrpc":"2.0","id":1,"method":"initialize","params":{...}}
//     < {"jsonrpc":"2.0","id":1,"result":{...}}
//   ```
//
// The `id` may be a number or a string and is echoed back untouched.
//
// === Error responses
//
//   ```
//     < {"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"..."}}
//   ```
//
// When the request could not be parsed at all the `id` is `null`.
//
// === Notifications
//
//   ```
//     > {"jsonrpc":"2.0","method":"textDocument/didOpen","params":{...}}
//     < {"jsonrpc":"2.0","method":"$/logTrace","params":{...}}
//   ```
//
// Notifications from the server can interleave with responses, but a single
// frame is always written atomically.
//
