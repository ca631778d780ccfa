package http

import (
	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/freshbazaar/assistant"

	mcpE "github.com/freshbazaar/assistant/mcp"
)

func AddRouters(r *gin.Engine, endpoints assistant.EndpointSet) {
	// RESTful API routes
	api := r.Group("/api")
	{
		api.POST("/assistant/ask", AskHandler(endpoints.Ask))
		api.POST("/assistant/reindex", ReindexHandler(endpoints.Reindex))
	}
}

func AddStreamableRouters(r *gin.Engine, endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint) {
	mcp := r.Group("/mcp")
	{
		mcp.POST("/", MCPStreamableHandler(endpoints))
	}
}
