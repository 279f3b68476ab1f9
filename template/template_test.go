package template

import (
	"errors"
	"testing"

	"github.com/acordova/formbox/model"
	"github.com/acordova/formbox/store"
)

func TestList(t *testing.T) {
	all := List("", "")
	if len(all) != 6 {
		t.Fatalf("expected 6 templates, got %d", len(all))
	}
	for _, tpl := range all {
		if tpl.ID >= 0 {
			t.Errorf("template %q has non-negative id %d", tpl.Name, tpl.ID)
		}
		if len(tpl.Form.Questions) == 0 {
			t.Errorf("template %q has no questions", tpl.Name)
		}
	}

	t.Run("by category", func(t *testing.T) {
		hr := List("hr", "")
		if len(hr) != 1 || hr[0].Name != "Evaluación de Personal" {
			t.Errorf("category filter: %+v", hr)
		}
	})

	t.Run("by name, case-insensitive", func(t *testing.T) {
		found := List("", "CONTACTO")
		if len(found) != 1 || found[0].Category != "contact" {
			t.Errorf("search filter: %+v", found)
		}
	})

	t.Run("both filters must match", func(t *testing.T) {
		if found := List("events", "contacto"); len(found) != 0 {
			t.Errorf("expected no matches, got %+v", found)
		}
	})
}

func TestGet(t *testing.T) {
	tpl, err := Get(-1)
	if err != nil {
		t.Fatal(err)
	}
	if tpl.Name != "Encuesta de Satisfacción" {
		t.Errorf("unexpected template: %q", tpl.Name)
	}

	_, err = Get(-99)
	var notFound *store.NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestInstantiate(t *testing.T) {
	form, err := Instantiate(-1, 42)
	if err != nil {
		t.Fatal(err)
	}
	if form.OwnerID != 42 || form.Status != model.FormDraft {
		t.Errorf("expected a draft owned by 42: %+v", form)
	}
	if form.ID != 0 {
		t.Errorf("instantiated form must not carry the template id: %d", form.ID)
	}

	// mutating the instance must never leak into the catalog
	form.Questions[0].Label = "changed"
	again, err := Instantiate(-1, 7)
	if err != nil {
		t.Fatal(err)
	}
	if again.Questions[0].Label == "changed" {
		t.Error("catalog questions shared with instances")
	}
}
