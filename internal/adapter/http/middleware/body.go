package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"pin-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// MaxBodySize limits the request body. Reads past the limit fail and the
// request is rejected with 413.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// bufferBody reads the whole body and puts a replayable copy back on the request.
func bufferBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperror.ErrPayloadTooLarge()
		}
		return nil, apperror.Validation("cannot read request body")
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
