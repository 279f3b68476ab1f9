package routes

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/acordova/formbox/app"
	"github.com/acordova/formbox/export"
	"github.com/acordova/formbox/httpx"
	"github.com/acordova/formbox/log"
	"github.com/acordova/formbox/model"
	"github.com/acordova/formbox/store"
)

var timeNow = time.Now

// ownedForm loads a form and checks it belongs to the authenticated caller.
func ownedForm(app app.App, r *http.Request) (*model.Form, error) {
	formId, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return nil, fmt.Errorf("invalid form id: %w", err)
	}

	ownerId, err := currentUser(app, r)
	if err != nil {
		return nil, err
	}

	form, err := app.GetForm(r.Context(), formId)
	if err != nil {
		return nil, err
	}
	if form.OwnerID != ownerId {
		return nil, &store.NotFoundError{Kind: "form", ID: formId}
	}
	return form, nil
}

func submissionFilter(r *http.Request) store.SubmissionFilter {
	query := r.URL.Query()
	filter := store.SubmissionFilter{
		Status: model.SubmissionStatus(query.Get("status")),
	}
	filter.Skip, _ = strconv.Atoi(query.Get("skip"))
	filter.Limit, _ = strconv.Atoi(query.Get("limit"))
	if from, err := time.Parse(time.RFC3339, query.Get("date_from")); err == nil {
		filter.DateFrom = &from
	}
	if to, err := time.Parse(time.RFC3339, query.Get("date_to")); err == nil {
		filter.DateTo = &to
	}
	return filter
}

func ListSubmissions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := ownedForm(app, r)
		if err != nil {
			httpx.LogDomainError(w, "submission.list", err)
			return
		}

		submissions, err := app.ListSubmissions(r.Context(), form.ID, submissionFilter(r))
		if err != nil {
			httpx.LogDomainError(w, "submission.list", err)
			return
		}

		render.JSON(w, r, submissions)
	}
}

func GetSubmissionById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		submissionId, ok := urlParamInt(r, "submissionId")
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.submissionId")
			return
		}

		ownerId, err := currentUser(app, r)
		if err != nil {
			httpx.LogDomainError(w, "submission.get.current_user", err)
			return
		}

		submission, err := app.GetSubmission(r.Context(), submissionId, ownerId)
		if err != nil {
			httpx.LogDomainError(w, "submission.get", err)
			return
		}

		render.JSON(w, r, submission)
	}
}

func DeleteSubmission(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		submissionId, ok := urlParamInt(r, "submissionId")
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.submissionId")
			return
		}

		ownerId, err := currentUser(app, r)
		if err != nil {
			httpx.LogDomainError(w, "submission.delete.current_user", err)
			return
		}

		err = app.DeleteSubmission(r.Context(), submissionId, ownerId)
		if err != nil {
			httpx.LogDomainError(w, "submission.delete", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

var exportContentTypes = map[export.Format]string{
	export.FormatJSON: "application/json",
	export.FormatCSV:  "text/csv; charset=utf-8",
	export.FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// ExportSubmissions streams all answers of a form in the requested format.
// Rows always come out in ascending submission order, so re-running an
// export over unchanged data yields byte-identical output.
func ExportSubmissions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := ownedForm(app, r)
		if err != nil {
			httpx.LogDomainError(w, "submission.export", err)
			return
		}

		format := export.Format(chi.URLParam(r, "format"))
		contentType, ok := exportContentTypes[format]
		if !ok {
			httpx.LogDomainError(w, "submission.export", &export.UnsupportedFormatError{Format: string(format)})
			return
		}

		filter := submissionFilter(r)
		filter.Ascending = true
		submissions, err := app.ListSubmissions(r.Context(), form.ID, filter)
		if err != nil {
			httpx.LogDomainError(w, "submission.export.list", err)
			return
		}

		opts := export.Options{
			IncludeMetadata: r.URL.Query().Get("include_metadata") != "false",
			CompatColumns:   app.CompatColumns,
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="form_%d_export.%s"`, form.ID, format))

		err = export.Export(form, submissions, w, format, opts)
		if err != nil {
			// headers are already out; all we can do is log
			log.Errorf("submission.export.write: %s", err)
		}
	}
}
