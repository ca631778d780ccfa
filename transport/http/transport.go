package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/kit/endpoint"

	"github.com/freshbazaar/assistant"
)

const unavailableMessage = "The assistant is temporarily unavailable. Please try again later."

func AskHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req assistant.AskRequest
		if err := c.ShouldBind(&req); err != nil {
			c.String(http.StatusBadRequest, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			c.Error(err)
			c.Abort()

			// Each pipeline stage fails under its own name so the user
			// gets a message matching what actually degraded.
			switch {
			case errors.Is(err, assistant.ErrInvalidQuery):
				c.String(http.StatusBadRequest, "Please enter a question.")

			case errors.Is(err, assistant.ErrRetrievalUnavailable),
				errors.Is(err, assistant.ErrGenerationUnavailable):
				c.String(http.StatusServiceUnavailable, unavailableMessage)

			default:
				c.String(http.StatusInternalServerError, err.Error())
			}

			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func ReindexHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req assistant.ReindexRequest
		if err := c.ShouldBind(&req); err != nil {
			c.String(http.StatusBadRequest, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			c.String(http.StatusExpectationFailed, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}
