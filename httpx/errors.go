package httpx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/acordova/formbox/export"
	"github.com/acordova/formbox/log"
	"github.com/acordova/formbox/store"
	"github.com/acordova/formbox/validate"
)

// Will log an error, and send an HTTP response with status 500 and default text
func LogInternalError(w http.ResponseWriter, code string, err error) {
	log.Errorf("%s: %s", code, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Will log a debug message, and send an HTTP response with status 404 and default text
func LogNotFound(w http.ResponseWriter, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	w.WriteHeader(http.StatusNotFound)
}

// Will log an error code at the given level, and send
// an HTTP response with status and default text
func LogStatus(w http.ResponseWriter, status int, level log.Level, code string) {
	log.Log(level, code)
	http.Error(w, http.StatusText(status), status)
}

// Will log an error code and message at the given level,
// and send an HTTP response with the given status and formatted message
func LogStatusMsg(w http.ResponseWriter, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	http.Error(w, errMsg, status)
}

// LogDomainError maps domain errors to their HTTP status; anything not
// recognized is a persistence or programming failure and becomes a 500.
func LogDomainError(w http.ResponseWriter, code string, err error) {
	var notFound *store.NotFoundError
	var missing *validate.MissingRequiredError
	var valueErr *validate.ValueError
	var unsupported *export.UnsupportedFormatError

	switch {
	case errors.As(err, &notFound):
		log.Debugf("%s: %s", code, err)
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, validate.ErrAuthenticationRequired):
		log.Debugf("%s: %s", code, err)
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, validate.ErrFormNotAvailable),
		errors.Is(err, validate.ErrFormNotYetAvailable),
		errors.Is(err, validate.ErrFormExpired),
		errors.Is(err, validate.ErrSubmissionLimitReached),
		errors.Is(err, store.ErrAccessDenied):
		log.Debugf("%s: %s", code, err)
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, validate.ErrDuplicateInstance),
		errors.Is(err, store.ErrConflict):
		log.Debugf("%s: %s", code, err)
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &missing),
		errors.As(err, &valueErr),
		errors.As(err, &unsupported):
		log.Debugf("%s: %s", code, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		LogInternalError(w, code, err)
	}
}
