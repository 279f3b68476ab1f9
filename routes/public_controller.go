package routes

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/acordova/formbox/app"
	"github.com/acordova/formbox/httpx"
	"github.com/acordova/formbox/log"
	"github.com/acordova/formbox/model"
	"github.com/acordova/formbox/routes/middlewares"
	"github.com/acordova/formbox/validate"
)

func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]any{"status": "healthy"})
	}
}

type questionTypeInfo struct {
	Type     model.QuestionType `json:"type"`
	Label    string             `json:"label"`
	Category string             `json:"category"`
}

var questionTypes = []questionTypeInfo{
	{model.TypeText, "Texto corto", "basic"},
	{model.TypeTextarea, "Texto largo", "basic"},
	{model.TypeEmail, "Correo electrónico", "basic"},
	{model.TypePhone, "Teléfono", "basic"},
	{model.TypeURL, "URL", "basic"},
	{model.TypeInteger, "Número entero", "number"},
	{model.TypeDecimal, "Número decimal", "number"},
	{model.TypeRange, "Rango/Slider", "number"},
	{model.TypeSelectOne, "Selección única", "choice"},
	{model.TypeSelectMultiple, "Selección múltiple", "choice"},
	{model.TypeRating, "Calificación", "choice"},
	{model.TypeRanking, "Ordenamiento", "choice"},
	{model.TypeDate, "Fecha", "datetime"},
	{model.TypeTime, "Hora", "datetime"},
	{model.TypeDatetime, "Fecha y hora", "datetime"},
	{model.TypeGeopoint, "Punto GPS", "location"},
	{model.TypeImage, "Imagen", "media"},
	{model.TypeAudio, "Audio", "media"},
	{model.TypeVideo, "Video", "media"},
	{model.TypeFile, "Archivo", "media"},
	{model.TypeSignature, "Firma", "media"},
	{model.TypeBarcode, "Código QR/Barras", "media"},
	{model.TypeMatrix, "Matriz", "advanced"},
	{model.TypeCalculate, "Campo calculado", "advanced"},
	{model.TypeHidden, "Campo oculto", "advanced"},
	{model.TypeNote, "Nota informativa", "advanced"},
}

func QuestionTypes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, questionTypes)
	}
}

// identity resolves the optional caller from the oauth credential;
// nil means anonymous.
func identity(app app.App, r *http.Request) (*validate.Identity, error) {
	username := middlewares.Username(r)
	if username == "" {
		return nil, nil
	}
	userID, err := app.UserIDByUsername(r.Context(), username)
	if err != nil {
		return nil, err
	}
	return &validate.Identity{UserID: userID}, nil
}

func clientMeta(r *http.Request) model.ClientMeta {
	userAgent := r.UserAgent()
	if len(userAgent) > 500 {
		userAgent = userAgent[:500]
	}
	return model.ClientMeta{
		IP:        strings.Split(r.RemoteAddr, ":")[0],
		UserAgent: userAgent,
	}
}

// PublicGetFormById serves a published public form for filling. The owner
// always sees their own form.
func PublicGetFormById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		form, err := app.GetForm(r.Context(), formId)
		if err != nil {
			httpx.LogDomainError(w, "public.get_form", err)
			return
		}

		caller, err := identity(app, r)
		if err != nil {
			httpx.LogDomainError(w, "public.get_form.identity", err)
			return
		}

		isOwner := caller != nil && caller.UserID == form.OwnerID
		if !isOwner && (!form.IsPublic || form.Status != model.FormPublished) {
			httpx.LogNotFound(w, "public.get_form", formId)
			return
		}

		form.SortQuestions()
		form.OwnerID = 0 // hidden on the public surface
		render.JSON(w, r, form)
	}
}

// PublicSubmitForm runs the acceptance pipeline and persists the
// submission with its answers as one unit.
func PublicSubmitForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		payload := validate.Payload{}
		err = render.DecodeJSON(r.Body, &payload)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		form, err := app.GetForm(r.Context(), formId)
		if err != nil {
			httpx.LogDomainError(w, "public.submit.get_form", err)
			return
		}

		caller, err := identity(app, r)
		if err != nil {
			httpx.LogDomainError(w, "public.submit.identity", err)
			return
		}

		opts := validate.Options{Strict: app.StrictValidation}
		submission, err := validate.ValidateAndAccept(
			r.Context(), app.Store, opts, form, payload, caller, clientMeta(r))
		if err != nil {
			httpx.LogDomainError(w, "public.submit.validate", err)
			return
		}

		if err := app.Put(r.Context(), submission); err != nil {
			httpx.LogDomainError(w, "public.submit.put", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, submission)
	}
}
