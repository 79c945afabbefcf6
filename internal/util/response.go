package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response is the uniform API envelope. Code is 0 on success, -1 on error.
type Response struct {
	Code    int    `json:"code"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: 0, Data: data})
}

func Error(c *gin.Context, status int, err any) {
	msg := "Internal Server Error"
	switch e := err.(type) {
	case string:
		msg = e
	case error:
		msg = e.Error()
	}

	zap.S().Errorf("API error: %s", msg)

	c.JSON(status, Response{Code: -1, Message: msg})
}
