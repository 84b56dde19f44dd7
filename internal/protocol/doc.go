// Package protocol implements the Gemini wire format: request framing and
// response header parsing.
//
// # Wire Format
//
// A request is a single absolute URL followed by CR LF:
//
//	gemini://geminiprotocol.net/docs/\r\n
//
// A response starts with a header line made of a two digit status code, an
// optional space and an optional meta string, terminated by CR LF. Everything
// after the header is the body:
//
//	20 text/gemini\r\n
//	# Hello\n
//
// # Status Categories
//
// The tens digit of the status selects the category:
//   - 1x Input: the server asks for a line of user input (meta is the prompt)
//   - 2x Success: the body follows (meta is the MIME type)
//   - 3x Redirection: meta is the new target
//   - 4x TemporaryFailure: meta is an error message
//   - 5x PermanentFailure: meta is an error message
//   - 6x ClientCertificate: meta is an error message
//
// Within each category the exact code selects a kind, falling back to a
// category default for codes that have no dedicated meaning.
//
// # Usage
//
//	payload, err := protocol.NewRequest("gemini://geminiprotocol.net/")
//	// ... send payload, read raw bytes ...
//	resp, err := protocol.ParseResponse(raw)
//	switch r := resp.(type) {
//	case protocol.Success:
//		fmt.Print(r.Body)
//	case protocol.Redirection:
//		fmt.Println("moved to", r.To)
//	}
//
// The set of [Response] implementations is closed; callers are expected to
// switch over the concrete types.
package protocol
