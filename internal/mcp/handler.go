package mcp

import (
	"context"
	"encoding/json"
)

// JSONRPCRequest is a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      any            `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
}

// JSONRPCResponse is a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      any           `json:"id"`
	Result  any           `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// JSONRPCError is a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// Tool is one callable exposed over the protocol.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]any
	Execute(ctx context.Context, args map[string]any) (any, error)
}

// Handler dispatches protocol requests to registered tools.
type Handler struct {
	tools map[string]Tool
	order []string // registration order, for stable tools/list output
}

func NewHandler() *Handler {
	return &Handler{tools: make(map[string]Tool)}
}

func (h *Handler) Register(tool Tool) {
	if _, exists := h.tools[tool.Name()]; !exists {
		h.order = append(h.order, tool.Name())
	}
	h.tools[tool.Name()] = tool
}

// Handle processes one request and always produces a response.
func (h *Handler) Handle(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	switch req.Method {
	case "initialize":
		return h.handleInitialize(req)
	case "tools/list":
		return h.handleToolsList(req)
	case "tools/call":
		return h.handleToolCall(ctx, req)
	default:
		return errorResponse(req.ID, codeMethodNotFound, "method not found: "+req.Method)
	}
}

func (h *Handler) handleInitialize(req *JSONRPCRequest) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]any{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
			"serverInfo": map[string]string{
				"name":    "bugrewind",
				"version": "0.1.0",
			},
		},
	}
}

func (h *Handler) handleToolsList(req *JSONRPCRequest) *JSONRPCResponse {
	list := make([]map[string]any, 0, len(h.order))
	for _, name := range h.order {
		t := h.tools[name]
		list = append(list, map[string]any{
			"name":        t.Name(),
			"description": t.Description(),
			"inputSchema": t.InputSchema(),
		})
	}
	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  map[string]any{"tools": list},
	}
}

func (h *Handler) handleToolCall(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	name, ok := req.Params["name"].(string)
	if !ok {
		return errorResponse(req.ID, codeInvalidParams, "invalid params: 'name' is required")
	}

	tool, exists := h.tools[name]
	if !exists {
		return errorResponse(req.ID, codeInvalidParams, "tool not found: "+name)
	}

	args, ok := req.Params["arguments"].(map[string]any)
	if !ok {
		args = make(map[string]any)
	}

	result, err := tool.Execute(ctx, args)
	if err != nil {
		return errorResponse(req.ID, codeInternalError, "tool execution error: "+err.Error())
	}

	// tool results travel as text content blocks
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errorResponse(req.ID, codeInternalError, "encode tool result: "+err.Error())
	}
	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": string(payload)},
			},
		},
	}
}

func errorResponse(id any, code int, message string) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message},
	}
}
