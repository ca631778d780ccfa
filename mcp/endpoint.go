package mcp

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/freshbazaar/assistant"
)

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      mcp.RequestId   `json:"id"`
	Method  mcp.MCPMethod   `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type MCPEndpoint func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage

// ErrorResponse builds a JSON-RPC error message for the given request ID.
func ErrorResponse(id any, code int, message string) mcp.JSONRPCError {
	return mcp.JSONRPCError{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      mcp.NewRequestId(id),
		Error: struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Data    any    `json:"data,omitempty"`
		}{
			Code:    code,
			Message: message,
		},
	}
}

const ServerInstructions string = `The catalog assistant answers questions about a wholesale product catalog:

1. **Grounded Answers**: Questions are answered from indexed product profiles
2. **Semantic Retrieval**: Relevant products are found by vector similarity
3. **Offline Indexing**: The product index can be refreshed or rebuilt on demand

Available tools:
- ask_catalog: Ask a free-text question about the products
- reindex_catalog: Refresh (or fully rebuild) the product index

Answers only use facts retrieved from the catalog index.`

const (
	ToolAskCatalog     = "ask_catalog"
	ToolReindexCatalog = "reindex_catalog"
)

func tools() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        ToolAskCatalog,
			Description: "Answer a free-text question grounded in the product catalog",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "The question to answer",
					},
					"k": map[string]any{
						"type":        "integer",
						"description": "Number of product profiles to retrieve (default 3)",
					},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        ToolReindexCatalog,
			Description: "Refresh the product index from the catalog database",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"rebuild": map[string]any{
						"type":        "boolean",
						"description": "Drop and recreate the collection before indexing",
					},
				},
			},
		},
	}
}

func InitializeEndpoint(svc assistant.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.InitializeParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		protocolVersion := mcp.LATEST_PROTOCOL_VERSION
		if clientVersion := params.ProtocolVersion; clientVersion != "" {
			if slices.Contains(mcp.ValidProtocolVersions, clientVersion) {
				protocolVersion = clientVersion
			}
		}

		result := &mcp.InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities: mcp.ServerCapabilities{
				Tools: &struct {
					ListChanged bool `json:"listChanged,omitempty"`
				}{},
			},
			ServerInfo: mcp.Implementation{
				Name:    "assistant",
				Version: "1.0.0",
			},
			Instructions: ServerInstructions,
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func PingEndpoint(svc assistant.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  struct{}{}, // empty response
		}
	}
}

func ListToolsEndpoint(svc assistant.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		result := &mcp.ListToolsResult{
			Tools: tools(),
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func CallToolEndpoint(svc assistant.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.CallToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		args, _ := params.Arguments.(map[string]any)

		var result *mcp.CallToolResult

		switch params.Name {
		case ToolAskCatalog:
			query, _ := args["query"].(string)

			k := 0
			if f, ok := args["k"].(float64); ok {
				k = int(f)
			}

			answer, err := svc.Ask(ctx, query, k)
			if err != nil {
				result = mcp.NewToolResultError(err.Error())
				break
			}

			result = mcp.NewToolResultText(answer)

		case ToolReindexCatalog:
			rebuild, _ := args["rebuild"].(bool)

			summary, err := svc.Reindex(ctx, rebuild)
			if err != nil {
				result = mcp.NewToolResultError(err.Error())
				break
			}

			bs, err := json.Marshal(summary)
			if err != nil {
				return ErrorResponse(req.ID, mcp.INTERNAL_ERROR, err.Error())
			}

			result = mcp.NewToolResultText(string(bs))

		default:
			return ErrorResponse(req.ID, mcp.INVALID_PARAMS, "unknown tool: "+params.Name)
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}
