package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/strayworks/bracketbot/brackets"
	"github.com/strayworks/bracketbot/repositories"
	"github.com/strayworks/bracketbot/services"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func guildIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "guildID")
	guildID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || guildID <= 0 {
		return 0, fmt.Errorf("invalid guild id %q", raw)
	}
	return guildID, nil
}

func errorResponse(w http.ResponseWriter, status int, message interface{}) {
	env := jsonResponse{"error": message}
	if err := writeJSON(w, status, env, nil); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	logger.Error("internal server error", "method", r.Method, "path", r.URL.Path, "error", err)
	errorResponse(w, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
}

func badRequestResponse(w http.ResponseWriter, err error) {
	errorResponse(w, http.StatusBadRequest, err.Error())
}

func notFoundResponse(w http.ResponseWriter) {
	errorResponse(w, http.StatusNotFound, "the requested resource could not be found")
}

func conflictResponse(w http.ResponseWriter, message string) {
	errorResponse(w, http.StatusConflict, message)
}

func unauthorizedResponse(w http.ResponseWriter, message string) {
	errorResponse(w, http.StatusUnauthorized, message)
}

func forbiddenResponse(w http.ResponseWriter, message string) {
	errorResponse(w, http.StatusForbidden, message)
}

func unavailableResponse(w http.ResponseWriter, message string) {
	errorResponse(w, http.StatusServiceUnavailable, message)
}

// mapServiceErrorToHTTP translates service layer errors into HTTP responses.
func mapServiceErrorToHTTP(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case services.IsNotFound(err),
		errors.Is(err, services.ErrNoBracket):
		notFoundResponse(w)

	case errors.Is(err, repositories.ErrTournamentGuildConflict),
		errors.Is(err, repositories.ErrTeamNameConflict),
		errors.Is(err, services.ErrBracketAlreadyRunning),
		errors.Is(err, services.ErrTournamentFinished),
		errors.Is(err, services.ErrBracketLocked),
		errors.Is(err, services.ErrDuplicateResult):
		conflictResponse(w, err.Error())

	case errors.Is(err, services.ErrTiedScore),
		errors.Is(err, services.ErrInvalidScore),
		errors.Is(err, services.ErrMissingTeam),
		errors.Is(err, brackets.ErrInvalidBracketSize),
		errors.Is(err, brackets.ErrUnsupportedFormat):
		badRequestResponse(w, err)

	case errors.Is(err, services.ErrJoinClosed),
		errors.Is(err, services.ErrMatchNotScoreable):
		forbiddenResponse(w, err.Error())

	case errors.Is(err, services.ErrAuthInvalidKey):
		unauthorizedResponse(w, err.Error())

	case errors.Is(err, repositories.ErrStoreContention):
		unavailableResponse(w, "the store is under contention, please retry")

	default:
		serverErrorResponse(logger, w, r, err)
	}
}
