package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// StdioTransport speaks line-delimited JSON-RPC over a reader/writer pair,
// normally stdin/stdout.
type StdioTransport struct {
	in      io.Reader
	out     io.Writer
	handler *Handler
}

func NewStdioTransport(in io.Reader, out io.Writer, handler *Handler) *StdioTransport {
	return &StdioTransport{in: in, out: out, handler: handler}
}

// Serve reads requests until EOF or context cancellation. Malformed lines
// get a parse-error response rather than killing the loop.
func (t *StdioTransport) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(t.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req JSONRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			t.send(errorResponse(nil, codeParseError, "parse error"))
			continue
		}

		t.send(t.handler.Handle(ctx, &req))
	}
	return scanner.Err()
}

func (t *StdioTransport) send(resp *JSONRPCResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	fmt.Fprintf(t.out, "%s\n", data)
}
