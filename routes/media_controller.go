package routes

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/acordova/formbox/app"
	"github.com/acordova/formbox/httpx"
	"github.com/acordova/formbox/log"
)

const maxUploadBytes = 32 << 20

// UploadMedia stores one file and returns its reference. The reference is
// what media-typed answers carry as their value.
func UploadMedia(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := r.ParseMultipartForm(maxUploadBytes)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "media.upload.parse_form")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "media.upload.file_field")
			return
		}
		defer file.Close()

		ref, err := app.Media.Save(header.Filename, file)
		if err != nil {
			httpx.LogInternalError(w, "media.upload.save", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]string{"ref": ref})
	}
}

func GetMedia(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := chi.URLParam(r, "ref")

		file, err := app.Media.Open(ref)
		if err != nil {
			httpx.LogNotFound(w, "media.get", ref)
			return
		}
		defer file.Close()

		w.Header().Set("Content-Type", "application/octet-stream")
		_, err = io.Copy(w, file)
		if err != nil {
			log.Errorf("media.get.copy: %s", err)
		}
	}
}
