package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
)

// peekBody reads the full request body and restores it so downstream
// handlers can bind it again. Returns nil for bodyless requests.
func peekBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

// decodeJSONBody decodes the peeked body into a generic map when the request
// carries JSON. Non-JSON or malformed bodies yield nil; the scanners work on
// the raw bytes regardless.
func decodeJSONBody(c *gin.Context, body []byte) map[string]interface{} {
	if len(body) == 0 {
		return nil
	}
	if !strings.Contains(c.ContentType(), "application/json") {
		return nil
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil
	}
	return decoded
}
