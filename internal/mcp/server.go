// Package mcp exposes the firmware resolution operations as Model Context
// Protocol tools over JSON-RPC 2.0 on newline-delimited stdio, so coding
// agents can query the firmware bucket without shelling out to the CLI.
// All logging goes to stderr; stdout carries only protocol frames.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/Bucknalla/notecard-mcp/internal/firmware"
	"github.com/Bucknalla/notecard-mcp/pkg/log"
)

const serverVersion = "0.1.0"

// Server is the stdio MCP server. It owns no state beyond the resolver
// and classifier it fronts.
type Server struct {
	resolver    *firmware.Resolver
	classifier  *firmware.Classifier
	tools       []tool
	toolsByName map[string]*tool
	initialized bool
}

// NewServer creates an MCP server fronting the given resolver and
// classifier.
func NewServer(resolver *firmware.Resolver, classifier *firmware.Classifier) *Server {
	s := &Server{
		resolver:   resolver,
		classifier: classifier,
	}
	s.tools = s.toolTable()
	s.toolsByName = make(map[string]*tool, len(s.tools))
	for i := range s.tools {
		s.toolsByName[s.tools[i].name] = &s.tools[i]
	}
	return s
}

// Serve runs the server on os.Stdin and os.Stdout until EOF.
func (s *Server) Serve(ctx context.Context) error {
	return s.Run(ctx, os.Stdin, os.Stdout)
}

// Run processes JSON-RPC 2.0 requests from input and writes responses to
// output until input reaches EOF or ctx is cancelled. Each message occupies
// a single line. Cancellation takes effect between messages; a Scan blocked
// on an idle stdin returns once the next line (or EOF) arrives.
func (s *Server) Run(ctx context.Context, input io.Reader, output io.Writer) error {
	scanner := bufio.NewScanner(input)
	// Listing-backed tool results can be large.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	encoder := json.NewEncoder(output)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			if writeErr := writeError(encoder, json.RawMessage("null"), codeParseError, "parse error: "+err.Error()); writeErr != nil {
				return writeErr
			}
			continue
		}

		if req.JSONRPC != "2.0" {
			if !req.isNotification() {
				if writeErr := writeError(encoder, req.ID, codeInvalidRequest, "unsupported JSON-RPC version"); writeErr != nil {
					return writeErr
				}
			}
			continue
		}

		// Notifications receive no response.
		if req.isNotification() {
			continue
		}

		if err := s.dispatch(ctx, encoder, &req); err != nil {
			return err
		}
	}

	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, encoder *json.Encoder, req *request) error {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(encoder, req)
	case "ping":
		return writeResult(encoder, req.ID, map[string]any{})
	case "tools/list":
		if !s.initialized {
			return writeError(encoder, req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return s.handleToolsList(encoder, req)
	case "tools/call":
		if !s.initialized {
			return writeError(encoder, req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return s.handleToolsCall(ctx, encoder, req)
	default:
		return writeError(encoder, req.ID, codeMethodNotFound, "unknown method: "+req.Method)
	}
}

func (s *Server) handleInitialize(encoder *json.Encoder, req *request) error {
	if len(req.Params) == 0 {
		return writeError(encoder, req.ID, codeInvalidParams, "params required for initialize")
	}

	var params initializeParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, "invalid initialize params: "+err.Error())
	}

	log.Info("MCP client connected", "client", params.ClientInfo.Name, "protocolVersion", params.ProtocolVersion)
	s.initialized = true

	return writeResult(encoder, req.ID, initializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: serverCapabilities{
			Tools: &toolCapability{},
		},
		ServerInfo: serverInfo{
			Name:    "notecard-mcp",
			Version: serverVersion,
		},
	})
}

func (s *Server) handleToolsList(encoder *json.Encoder, req *request) error {
	descriptions := make([]toolDescription, 0, len(s.tools))
	for _, t := range s.tools {
		descriptions = append(descriptions, toolDescription{
			Name:        t.name,
			Description: t.description,
			InputSchema: t.inputSchema,
		})
	}
	return writeResult(encoder, req.ID, toolsListResult{Tools: descriptions})
}

func (s *Server) handleToolsCall(ctx context.Context, encoder *json.Encoder, req *request) error {
	if len(req.Params) == 0 {
		return writeError(encoder, req.ID, codeInvalidParams, "params required for tools/call")
	}

	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, "invalid tools/call params: "+err.Error())
	}

	t, ok := s.toolsByName[params.Name]
	if !ok {
		return writeError(encoder, req.ID, codeInvalidParams, "unknown tool: "+params.Name)
	}

	result, err := t.handler(ctx, params.Arguments)
	if err != nil {
		// Tool failures flow back in-band so the agent can read the
		// diagnostic and adjust its call.
		log.Warn("Tool call failed", "tool", params.Name, "err", err.Error())
		return writeResult(encoder, req.ID, toolsCallResult{
			Content: []contentBlock{{Type: "text", Text: err.Error()}},
			IsError: true,
		})
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return writeError(encoder, req.ID, codeInternalError, "failed to encode tool result: "+err.Error())
	}

	return writeResult(encoder, req.ID, toolsCallResult{
		Content: []contentBlock{{Type: "text", Text: string(payload)}},
	})
}

func writeResult(encoder *json.Encoder, id json.RawMessage, result any) error {
	return encoder.Encode(response{JSONRPC: "2.0", ID: id, Result: result})
}

func writeError(encoder *json.Encoder, id json.RawMessage, code int, message string) error {
	return encoder.Encode(response{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message}})
}
