package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/acordova/formbox/app"
	"github.com/acordova/formbox/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Get("/health", Health())
	api.Get("/question-types", QuestionTypes())
	api.Get("/templates", ListTemplates())
	api.Get(`/templates/{id:^-?\d+$}`, GetTemplateById())

	// public form surface; a bearer token is honored but never required
	api.Group(func(r chi.Router) {
		r.Use(middlewares.OptionalAuthenticated(app.TokenSecret))

		r.Get(`/forms/{id:^\d+$}`, PublicGetFormById(app))
		r.Post(`/forms/{id:^\d+$}/submissions`, PublicSubmitForm(app))
		r.Post(`/forms/{id:^\d+$}/uploads`, UploadMedia(app))
	})
	api.Get("/media/{ref}", GetMedia(app))

	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.Authenticated(app.TokenSecret))

		// CRUD form
		r.Post("/forms", CreateForm(app))
		r.Get("/forms", ListForms(app))
		r.Get(`/forms/{id:^\d+$}`, GetFormById(app))
		r.Put(`/forms/{id:^\d+$}`, UpdateForm(app))
		r.Delete(`/forms/{id:^\d+$}`, DeleteForm(app))
		r.Post(`/forms/{id:^\d+$}/duplicate`, DuplicateForm(app))
		r.Get(`/forms/{id:^\d+$}/statistics`, GetFormStatistics(app))

		// CRUD questions
		r.Post(`/forms/{id:^\d+$}/questions`, AddQuestion(app))
		r.Put(`/forms/{id:^\d+$}/questions/{questionId:^\d+$}`, UpdateQuestion(app))
		r.Delete(`/forms/{id:^\d+$}/questions/{questionId:^\d+$}`, DeleteQuestion(app))
		r.Put(`/forms/{id:^\d+$}/questions/reorder`, ReorderQuestions(app))

		// submissions and export
		r.Get(`/forms/{id:^\d+$}/submissions`, ListSubmissions(app))
		r.Get(`/submissions/{submissionId:^\d+$}`, GetSubmissionById(app))
		r.Delete(`/submissions/{submissionId:^\d+$}`, DeleteSubmission(app))
		r.Get(`/forms/{id:^\d+$}/export/{format}`, ExportSubmissions(app))

		r.Post(`/templates/{id:^-?\d+$}/instantiate`, InstantiateTemplate(app))
	})

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	return api
}
