package routes

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/acordova/formbox/app"
	"github.com/acordova/formbox/httpx"
	"github.com/acordova/formbox/log"
	"github.com/acordova/formbox/template"
)

func ListTemplates() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		render.JSON(w, r, template.List(query.Get("category"), query.Get("search")))
	}
}

func GetTemplateById() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateId, ok := urlParamInt(r, "id")
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		t, err := template.Get(templateId)
		if err != nil {
			httpx.LogDomainError(w, "template.get", err)
			return
		}

		render.JSON(w, r, t)
	}
}

// InstantiateTemplate materializes a catalog template as a private draft
// form owned by the caller.
func InstantiateTemplate(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateId, ok := urlParamInt(r, "id")
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		ownerId, err := currentUser(app, r)
		if err != nil {
			httpx.LogDomainError(w, "template.instantiate.current_user", err)
			return
		}

		form, err := template.Instantiate(templateId, ownerId)
		if err != nil {
			httpx.LogDomainError(w, "template.instantiate", err)
			return
		}

		err = app.CreateForm(r.Context(), form)
		if err != nil {
			httpx.LogDomainError(w, "template.instantiate.create", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, form)
	}
}
