package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Handler returns a value encoded as JSON, or an error with a status code.
type Handler[T any] func(w http.ResponseWriter, r *http.Request) (T, *HTTPError)

// Wrap adapts a Handler to net/http.
func Wrap[T any](handler Handler[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, httpErr := handler(w, r)
		if httpErr != nil {
			status := httpErr.StatusCode
			if status == 0 {
				status = http.StatusInternalServerError
			}
			log.Warn().Str("path", r.URL.Path).Int("status", status).Msg(httpErr.Message)
			http.Error(w, httpErr.Message, status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Error().Err(err).Str("path", r.URL.Path).Msg("encode response")
		}
	}
}

// Errorf builds an HTTPError.
func Errorf(status int, msg string) *HTTPError {
	return &HTTPError{StatusCode: status, Message: msg}
}
