package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"

	"github.com/sakif/blogpost-api/internal/apperror"
	"github.com/sakif/blogpost-api/internal/model"
	"github.com/sakif/blogpost-api/internal/validation"
)

// MaxBodyBytes caps every JSON request body.
const MaxBodyBytes = 1 << 20

type contextKey string

const postInputKey contextKey = "postInput"

// PostInputFromContext returns the body checked by ValidatePost.
func PostInputFromContext(ctx context.Context) (*model.PostInput, bool) {
	in, ok := ctx.Value(postInputKey).(*model.PostInput)
	return in, ok
}

// ValidatePost guards the post create and update routes.
//
// The body must be a JSON object. Every field in model.PostFields must be
// present and truthy (not missing, null, "", 0 or false), checked in order.
// Then each must have its type: text fields strings, numeric fields whole
// numbers. Last come the length and range limits of model.PostInput. The
// first failure is answered with a 400 naming the field and the request
// stops there.
func ValidatePost(v *validation.Validator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

			var body map[string]any
			dec := json.NewDecoder(r.Body)
			dec.UseNumber()
			if err := dec.Decode(&body); err != nil || body == nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					writeProblem(w, logger, http.StatusRequestEntityTooLarge, "request_too_large", "Request body is too large", "")
					return
				}
				writeProblem(w, logger, http.StatusBadRequest, "validation_error", "Request body must be a JSON object", "")
				return
			}

			in, err := decodePostInput(body)
			if err == nil {
				err = v.Struct(in)
			}
			if err != nil {
				var appErr *apperror.AppError
				if errors.As(err, &appErr) {
					writeProblem(w, logger, http.StatusBadRequest, "validation_error", appErr.Message, appErr.Field)
					return
				}
				logger.Error("post validation failed", slog.String("error", err.Error()))
				writeProblem(w, logger, http.StatusInternalServerError, "internal_error", "Server could not validate the request", "")
				return
			}

			ctx := context.WithValue(r.Context(), postInputKey, in)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// decodePostInput runs the ordered presence and type checks on a decoded
// body and builds the typed input.
func decodePostInput(body map[string]any) (*model.PostInput, error) {
	for _, f := range model.PostFields {
		if !truthy(body[f.Name]) {
			return nil, apperror.ValidationFailed(f.Name, f.Label+" is required")
		}
	}

	in := &model.PostInput{}
	for _, f := range model.PostFields {
		if f.Numeric {
			n, ok := wholeNumber(body[f.Name])
			if !ok {
				return nil, apperror.ValidationFailed(f.Name, f.Label+" must be a number")
			}
			setInt(in, f.Name, n)
			continue
		}
		s, ok := body[f.Name].(string)
		if !ok {
			return nil, apperror.ValidationFailed(f.Name, f.Label+" must be a string")
		}
		setString(in, f.Name, s)
	}
	return in, nil
}

// truthy reports whether a decoded JSON value counts as present.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}

func wholeNumber(v any) (int, bool) {
	num, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	if n, err := num.Int64(); err == nil {
		if n > math.MaxInt32 || n < math.MinInt32 {
			return 0, false
		}
		return int(n), true
	}
	f, err := num.Float64()
	if err != nil || f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

func setInt(in *model.PostInput, name string, n int) {
	switch name {
	case "category_id":
		in.CategoryID = n
	case "status_id":
		in.StatusID = n
	}
}

func setString(in *model.PostInput, name, s string) {
	switch name {
	case "title":
		in.Title = s
	case "image":
		in.Image = s
	case "description":
		in.Description = s
	case "content":
		in.Content = s
	}
}

type problem struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeProblem(w http.ResponseWriter, logger *slog.Logger, status int, kind, message, field string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Error: kind, Message: message, Field: field}); err != nil {
		logger.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}
