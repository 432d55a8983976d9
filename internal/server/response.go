package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/leslieo2/go-hot-content/internal/constants"
)

// sendJSONResponse encodes body with the given status code
func (s *Server) sendJSONResponse(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// sendErrorResponse sends a JSON error response
func (s *Server) sendErrorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	s.sendJSONResponse(w, statusCode, map[string]string{
		"error":   code,
		"message": message,
	})
}

// sendMethodNotAllowedResponse sends a 405 Method Not Allowed response
func (s *Server) sendMethodNotAllowedResponse(w http.ResponseWriter, methods []string, requestedMethod string) {
	w.Header().Set("Allow", strings.Join(methods, ", "))
	s.sendJSONResponse(w, http.StatusMethodNotAllowed, map[string]interface{}{
		"error":   constants.ErrorCodeMethodNotAllowed,
		"message": fmt.Sprintf("Method %s not allowed", requestedMethod),
		"methods": methods,
	})
}
