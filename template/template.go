package template

import (
	"strings"

	"github.com/acordova/formbox/model"
	"github.com/acordova/formbox/store"
)

// Template is a reusable form blueprint. Built-in templates carry
// negative ids so they never collide with stored forms.
type Template struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Form        model.Form `json:"template_data"`
}

func fv(n float64) *float64 { return &n }

// catalog is loaded once and never mutated; List hands out copies.
var catalog = []Template{
	{
		Name:        "Encuesta de Satisfacción",
		Description: "Evalúa la satisfacción de tus clientes o usuarios",
		Category:    "feedback",
		Form: model.Form{
			Title:       "Encuesta de Satisfacción",
			Description: "Nos gustaría conocer tu opinión",
			Questions: []model.Question{
				{Type: model.TypeRating, Label: "¿Cómo calificarías tu experiencia general?", Required: true, MinValue: fv(1), MaxValue: fv(5)},
				{Type: model.TypeSelectOne, Label: "¿Recomendarías nuestro servicio?", Required: true, Options: []model.Option{
					{Value: "si", Label: "Sí"}, {Value: "no", Label: "No"}, {Value: "tal_vez", Label: "Tal vez"},
				}},
				{Type: model.TypeTextarea, Label: "¿Qué podríamos mejorar?"},
			},
		},
	},
	{
		Name:        "Registro de Evento",
		Description: "Formulario de inscripción para eventos",
		Category:    "events",
		Form: model.Form{
			Title:       "Registro de Evento",
			Description: "Completa tu registro",
			Questions: []model.Question{
				{Type: model.TypeText, Label: "Nombre completo", Required: true},
				{Type: model.TypeEmail, Label: "Correo electrónico", Required: true},
				{Type: model.TypePhone, Label: "Teléfono"},
				{Type: model.TypeSelectOne, Label: "¿Cómo te enteraste del evento?", Options: []model.Option{
					{Value: "redes", Label: "Redes sociales"}, {Value: "email", Label: "Email"},
					{Value: "amigo", Label: "Un amigo"}, {Value: "otro", Label: "Otro"},
				}},
				{Type: model.TypeTextarea, Label: "Comentarios adicionales"},
			},
		},
	},
	{
		Name:        "Formulario de Contacto",
		Description: "Recibe mensajes de tus visitantes",
		Category:    "contact",
		Form: model.Form{
			Title:       "Contáctanos",
			Description: "Envíanos un mensaje y te responderemos pronto",
			Questions: []model.Question{
				{Type: model.TypeText, Label: "Nombre", Required: true},
				{Type: model.TypeEmail, Label: "Email", Required: true},
				{Type: model.TypeText, Label: "Asunto", Required: true},
				{Type: model.TypeTextarea, Label: "Mensaje", Required: true},
			},
		},
	},
	{
		Name:        "Encuesta de Campo",
		Description: "Recolección de datos en campo con geolocalización",
		Category:    "field",
		Form: model.Form{
			Title:       "Encuesta de Campo",
			Description: "Registro de datos georreferenciados",
			Questions: []model.Question{
				{Type: model.TypeGeopoint, Label: "Ubicación GPS", Required: true},
				{Type: model.TypeDate, Label: "Fecha de visita", Required: true},
				{Type: model.TypeImage, Label: "Fotografía del sitio", Required: true},
				{Type: model.TypeSelectOne, Label: "Estado del sitio", Options: []model.Option{
					{Value: "bueno", Label: "Bueno"}, {Value: "regular", Label: "Regular"}, {Value: "malo", Label: "Malo"},
				}},
				{Type: model.TypeTextarea, Label: "Observaciones"},
			},
		},
	},
	{
		Name:        "Evaluación de Personal",
		Description: "Evaluación de desempeño de empleados",
		Category:    "hr",
		Form: model.Form{
			Title:       "Evaluación de Desempeño",
			Description: "Evaluación trimestral del empleado",
			Questions: []model.Question{
				{Type: model.TypeText, Label: "Nombre del empleado", Required: true},
				{Type: model.TypeText, Label: "Departamento", Required: true},
				{Type: model.TypeDate, Label: "Período de evaluación", Required: true},
				{Type: model.TypeRating, Label: "Cumplimiento de objetivos", Required: true, MinValue: fv(1), MaxValue: fv(5)},
				{Type: model.TypeRating, Label: "Trabajo en equipo", Required: true, MinValue: fv(1), MaxValue: fv(5)},
				{Type: model.TypeRating, Label: "Comunicación", Required: true, MinValue: fv(1), MaxValue: fv(5)},
				{Type: model.TypeRating, Label: "Puntualidad", Required: true, MinValue: fv(1), MaxValue: fv(5)},
				{Type: model.TypeTextarea, Label: "Fortalezas"},
				{Type: model.TypeTextarea, Label: "Áreas de mejora"},
				{Type: model.TypeSignature, Label: "Firma del evaluador", Required: true},
			},
		},
	},
	{
		Name:        "Solicitud de Servicio",
		Description: "Formulario para solicitar servicios o soporte",
		Category:    "support",
		Form: model.Form{
			Title:       "Solicitud de Servicio",
			Description: "Complete la información de su solicitud",
			Questions: []model.Question{
				{Type: model.TypeText, Label: "Nombre del solicitante", Required: true},
				{Type: model.TypeEmail, Label: "Correo electrónico", Required: true},
				{Type: model.TypePhone, Label: "Teléfono de contacto", Required: true},
				{Type: model.TypeSelectOne, Label: "Tipo de servicio", Required: true, Options: []model.Option{
					{Value: "tecnico", Label: "Soporte técnico"}, {Value: "consulta", Label: "Consulta general"},
					{Value: "reclamo", Label: "Reclamo"}, {Value: "otro", Label: "Otro"},
				}},
				{Type: model.TypeSelectOne, Label: "Prioridad", Required: true, Options: []model.Option{
					{Value: "alta", Label: "Alta"}, {Value: "media", Label: "Media"}, {Value: "baja", Label: "Baja"},
				}},
				{Type: model.TypeTextarea, Label: "Descripción detallada", Required: true},
				{Type: model.TypeFile, Label: "Archivos adjuntos"},
			},
		},
	},
}

func init() {
	for i := range catalog {
		catalog[i].ID = -(i + 1)
		for j := range catalog[i].Form.Questions {
			catalog[i].Form.Questions[j].Order = j
		}
	}
}

// List filters the built-in catalog by category and a case-insensitive
// name search.
func List(category, search string) []Template {
	templates := []Template{}
	for _, t := range catalog {
		if category != "" && t.Category != category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Name), strings.ToLower(search)) {
			continue
		}
		templates = append(templates, t)
	}
	return templates
}

// Get returns the template with the given id.
func Get(id int) (*Template, error) {
	for _, t := range catalog {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, &store.NotFoundError{Kind: "template", ID: id}
}

// Instantiate builds a fresh draft form for the owner from a template.
// The caller still has to persist it.
func Instantiate(id, ownerID int) (*model.Form, error) {
	t, err := Get(id)
	if err != nil {
		return nil, err
	}

	form := t.Form
	form.Status = model.FormDraft
	form.AllowAnonymous = true
	form.OwnerID = ownerID
	form.Questions = make([]model.Question, len(t.Form.Questions))
	copy(form.Questions, t.Form.Questions)
	return &form, nil
}
