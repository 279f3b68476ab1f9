package routes

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/acordova/formbox/app"
	"github.com/acordova/formbox/httpx"
	"github.com/acordova/formbox/log"
	"github.com/acordova/formbox/model"
	"github.com/acordova/formbox/routes/middlewares"
	"github.com/acordova/formbox/store"
)

// currentUser resolves the authenticated owner id. Handlers behind the
// Authenticated middleware can rely on a non-empty username.
func currentUser(app app.App, r *http.Request) (int, error) {
	return app.UserIDByUsername(r.Context(), middlewares.Username(r))
}

func urlParamInt(r *http.Request, name string) (int, bool) {
	value, err := strconv.Atoi(chi.URLParam(r, name))
	return value, err == nil
}

func CreateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerId, err := currentUser(app, r)
		if err != nil {
			httpx.LogDomainError(w, "form.create.current_user", err)
			return
		}

		form := model.Form{}
		err = render.DecodeJSON(r.Body, &form)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if form.Title == "" {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "form.create.title", "title is required")
			return
		}

		form.OwnerID = ownerId
		if form.Status == "" {
			form.Status = model.FormDraft
		}

		err = app.CreateForm(r.Context(), &form)
		if err != nil {
			httpx.LogDomainError(w, "form.create", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, form)
	}
}

func ListForms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerId, err := currentUser(app, r)
		if err != nil {
			httpx.LogDomainError(w, "form.list.current_user", err)
			return
		}

		filter := store.FormFilter{
			Status: model.FormStatus(r.URL.Query().Get("status")),
			Search: r.URL.Query().Get("search"),
		}
		filter.Skip, _ = strconv.Atoi(r.URL.Query().Get("skip"))
		filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))

		forms, err := app.ListForms(r.Context(), ownerId, filter)
		if err != nil {
			httpx.LogDomainError(w, "form.list", err)
			return
		}

		render.JSON(w, r, forms)
	}
}

func GetFormById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, ok := urlParamInt(r, "id")
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		ownerId, err := currentUser(app, r)
		if err != nil {
			httpx.LogDomainError(w, "form.get.current_user", err)
			return
		}

		form, err := app.GetForm(r.Context(), formId)
		if err != nil {
			httpx.LogDomainError(w, "form.get", err)
			return
		}
		if form.OwnerID != ownerId {
			httpx.LogNotFound(w, "form.get", formId)
			return
		}

		form.SortQuestions()
		render.JSON(w, r, form)
	}
}

// UpdateForm replaces the form metadata. A stale version in the payload is
// rejected with a conflict so concurrent editors never silently overwrite
// each other.
func UpdateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, ok := urlParamInt(r, "id")
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		ownerId, err := currentUser(app, r)
		if err != nil {
			httpx.LogDomainError(w, "form.update.current_user", err)
			return
		}

		form := model.Form{}
		err = render.DecodeJSON(r.Body, &form)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		form.ID = formId
		form.OwnerID = ownerId

		err = app.UpdateForm(r.Context(), &form)
		if err != nil {
			httpx.LogDomainError(w, "form.update", err)
			return
		}

		render.JSON(w, r, form)
	}
}

func DeleteForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, ok := urlParamInt(r, "id")
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		ownerId, err := currentUser(app, r)
		if err != nil {
			httpx.LogDomainError(w, "form.delete.current_user", err)
			return
		}

		err = app.DeleteForm(r.Context(), formId, ownerId)
		if err != nil {
			httpx.LogDomainError(w, "form.delete", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DuplicateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, ok := urlParamInt(r, "id")
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		ownerId, err := currentUser(app, r)
		if err != nil {
			httpx.LogDomainError(w, "form.duplicate.current_user", err)
			return
		}

		dup, err := app.DuplicateForm(r.Context(), formId, ownerId)
		if err != nil {
			httpx.LogDomainError(w, "form.duplicate", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, dup)
	}
}

func GetFormStatistics(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, ok := urlParamInt(r, "id")
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		ownerId, err := currentUser(app, r)
		if err != nil {
			httpx.LogDomainError(w, "form.statistics.current_user", err)
			return
		}

		form, err := app.GetForm(r.Context(), formId)
		if err != nil {
			httpx.LogDomainError(w, "form.statistics.get_form", err)
			return
		}
		if form.OwnerID != ownerId {
			httpx.LogNotFound(w, "form.statistics", formId)
			return
		}

		stats, err := app.ComputeStatistics(r.Context(), formId, timeNow(), app.WeekStart)
		if err != nil {
			httpx.LogDomainError(w, "form.statistics", err)
			return
		}

		render.JSON(w, r, stats)
	}
}

func AddQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, ok := urlParamInt(r, "id")
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		ownerId, err := currentUser(app, r)
		if err != nil {
			httpx.LogDomainError(w, "question.add.current_user", err)
			return
		}

		question := model.Question{}
		err = render.DecodeJSON(r.Body, &question)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if question.Label == "" {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "question.add.label", "label is required")
			return
		}

		question.FormID = formId
		err = app.AddQuestion(r.Context(), ownerId, &question)
		if err != nil {
			httpx.LogDomainError(w, "question.add", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, question)
	}
}

func UpdateQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, ok := urlParamInt(r, "id")
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}
		questionId, ok := urlParamInt(r, "questionId")
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.questionId")
			return
		}

		ownerId, err := currentUser(app, r)
		if err != nil {
			httpx.LogDomainError(w, "question.update.current_user", err)
			return
		}

		question := model.Question{}
		err = render.DecodeJSON(r.Body, &question)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		question.ID = questionId
		question.FormID = formId
		err = app.UpdateQuestion(r.Context(), ownerId, &question)
		if err != nil {
			httpx.LogDomainError(w, "question.update", err)
			return
		}

		render.JSON(w, r, question)
	}
}

func DeleteQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, ok := urlParamInt(r, "id")
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}
		questionId, ok := urlParamInt(r, "questionId")
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.questionId")
			return
		}

		ownerId, err := currentUser(app, r)
		if err != nil {
			httpx.LogDomainError(w, "question.delete.current_user", err)
			return
		}

		err = app.DeleteQuestion(r.Context(), ownerId, formId, questionId)
		if err != nil {
			httpx.LogDomainError(w, "question.delete", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func ReorderQuestions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, ok := urlParamInt(r, "id")
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		ownerId, err := currentUser(app, r)
		if err != nil {
			httpx.LogDomainError(w, "question.reorder.current_user", err)
			return
		}

		orders := []store.QuestionOrder{}
		err = render.DecodeJSON(r.Body, &orders)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		err = app.ReorderQuestions(r.Context(), ownerId, formId, orders)
		if err != nil {
			httpx.LogDomainError(w, "question.reorder", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
