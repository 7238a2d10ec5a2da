package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "github.com/tokenmeter/tokenmeter-api/internal/errors"
)

// DecodeJSON reads a JSON request body into dst.
// An empty body decodes to the zero value so validation can report missing fields.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return apperrors.ValidationError("Request body too large")
	}
	return apperrors.ValidationError("Invalid JSON body").WithCause(err)
}
