package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/acordova/formbox/model"
)

type FormFilter struct {
	Status model.FormStatus
	Search string
	Skip   int
	Limit  int
}

type FormSummary struct {
	ID              int              `json:"id"`
	Title           string           `json:"title"`
	Description     string           `json:"description,omitempty"`
	Status          model.FormStatus `json:"status"`
	IsPublic        bool             `json:"is_public"`
	SubmissionCount int              `json:"submission_count"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// CreateForm persists a form and its questions in one transaction and
// fills in the generated ids.
func (s *Store) CreateForm(ctx context.Context, form *model.Form) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		settings, err := json.Marshal(form.Settings)
		if err != nil {
			return errors.Wrap(err, "db.insert_form.settings")
		}

		now := time.Now().UTC()
		form.Version = 1
		form.CreatedAt = now
		form.UpdatedAt = now

		err = tx.QueryRowContext(ctx, `
			INSERT INTO form (
				version, title, description, status, settings, owner_id,
				is_public, allow_anonymous, submission_limit, start_date, end_date,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			form.Version, form.Title, form.Description, form.Status, string(settings),
			form.OwnerID, form.IsPublic, form.AllowAnonymous, form.SubmissionLimit,
			form.StartDate, form.EndDate, now, now,
		).Scan(&form.ID)
		if err != nil {
			return errors.Wrap(err, "db.insert_form")
		}

		for i := range form.Questions {
			q := &form.Questions[i]
			q.FormID = form.ID
			if q.Order == 0 {
				q.Order = i
			}
			if err := insertQuestion(ctx, tx, q, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertQuestion(ctx context.Context, tx *sql.Tx, q *model.Question, now time.Time) error {
	options, validation, skipLogic, matrixRows, matrixColumns, appearance, err := questionJSON(q)
	if err != nil {
		return err
	}

	q.CreatedAt = now
	q.UpdatedAt = now
	err = tx.QueryRowContext(ctx, `
		INSERT INTO question (
			form_id, type, label, description, placeholder, required, ord,
			options, validation, skip_logic, default_value, calculation,
			min_value, max_value, step, matrix_rows, matrix_columns, appearance,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		q.FormID, q.Type, q.Label, q.Description, q.Placeholder, q.Required, q.Order,
		options, validation, skipLogic, q.DefaultValue, q.Calculation,
		q.MinValue, q.MaxValue, q.Step, matrixRows, matrixColumns, appearance,
		now, now,
	).Scan(&q.ID)
	return errors.Wrap(err, "db.insert_question")
}

func questionJSON(q *model.Question) (options, validation, skipLogic, matrixRows, matrixColumns, appearance string, err error) {
	options, err = marshalOpt(q.Options, len(q.Options) > 0)
	if err == nil {
		validation, err = marshalOpt(q.Validation, q.Validation != nil)
	}
	if err == nil {
		skipLogic, err = marshalOpt(q.SkipLogic, q.SkipLogic != nil)
	}
	if err == nil {
		matrixRows, err = marshalOpt(q.MatrixRows, len(q.MatrixRows) > 0)
	}
	if err == nil {
		matrixColumns, err = marshalOpt(q.MatrixColumns, len(q.MatrixColumns) > 0)
	}
	if err == nil {
		appearance, err = marshalOpt(q.Appearance, len(q.Appearance) > 0)
	}
	err = errors.Wrap(err, "db.question.marshal")
	return
}

func marshalOpt(v any, present bool) (string, error) {
	if !present {
		return "", nil
	}
	b, err := json.Marshal(v)
	return string(b), err
}

func unmarshalOpt(s string, v any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}

// GetForm loads a form with its questions in schema order.
func (s *Store) GetForm(ctx context.Context, id int) (*model.Form, error) {
	form := &model.Form{}
	var settings string
	err := s.db.QueryRowContext(ctx, `
		SELECT
			id, version, title, description, status, settings, owner_id,
			is_public, allow_anonymous, submission_limit, start_date, end_date,
			created_at, updated_at
		FROM form
		WHERE id = ?`,
		id,
	).Scan(
		&form.ID, &form.Version, &form.Title, &form.Description, &form.Status,
		&settings, &form.OwnerID, &form.IsPublic, &form.AllowAnonymous,
		&form.SubmissionLimit, &form.StartDate, &form.EndDate,
		&form.CreatedAt, &form.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Kind: "form", ID: id}
	}
	if err != nil {
		return nil, errors.Wrap(err, "db.get_form")
	}
	if err := unmarshalOpt(settings, &form.Settings); err != nil {
		return nil, errors.Wrap(err, "db.get_form.settings")
	}

	form.Questions, err = s.formQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	return form, nil
}

func (s *Store) formQuestions(ctx context.Context, formID int) ([]model.Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			id, form_id, type, label, description, placeholder, required, ord,
			options, validation, skip_logic, default_value, calculation,
			min_value, max_value, step, matrix_rows, matrix_columns, appearance,
			created_at, updated_at
		FROM question
		WHERE form_id = ?
		ORDER BY ord, id`,
		formID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "db.get_questions")
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, errors.Wrap(rows.Err(), "db.get_questions")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (*model.Question, error) {
	q := &model.Question{}
	var options, validation, skipLogic, matrixRows, matrixColumns, appearance string
	err := row.Scan(
		&q.ID, &q.FormID, &q.Type, &q.Label, &q.Description, &q.Placeholder,
		&q.Required, &q.Order,
		&options, &validation, &skipLogic, &q.DefaultValue, &q.Calculation,
		&q.MinValue, &q.MaxValue, &q.Step, &matrixRows, &matrixColumns, &appearance,
		&q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, "db.scan_question")
	}

	if err := unmarshalOpt(options, &q.Options); err != nil {
		return nil, errors.Wrap(err, "db.scan_question.options")
	}
	if err := unmarshalOpt(validation, &q.Validation); err != nil {
		return nil, errors.Wrap(err, "db.scan_question.validation")
	}
	if err := unmarshalOpt(skipLogic, &q.SkipLogic); err != nil {
		return nil, errors.Wrap(err, "db.scan_question.skip_logic")
	}
	if err := unmarshalOpt(matrixRows, &q.MatrixRows); err != nil {
		return nil, errors.Wrap(err, "db.scan_question.matrix_rows")
	}
	if err := unmarshalOpt(matrixColumns, &q.MatrixColumns); err != nil {
		return nil, errors.Wrap(err, "db.scan_question.matrix_columns")
	}
	if err := unmarshalOpt(appearance, &q.Appearance); err != nil {
		return nil, errors.Wrap(err, "db.scan_question.appearance")
	}
	return q, nil
}

// ListForms returns summaries of the owner's forms, most recently
// updated first, with per-form submission counts.
func (s *Store) ListForms(ctx context.Context, ownerID int, filter FormFilter) ([]FormSummary, error) {
	query := `
		SELECT
			f.id, f.title, f.description, f.status, f.is_public,
			f.created_at, f.updated_at,
			(SELECT COUNT(*) FROM submission sub WHERE sub.form_id = f.id)
		FROM form f
		WHERE f.owner_id = ?`
	args := []any{ownerID}

	if filter.Status != "" {
		query += ` AND f.status = ?`
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		query += ` AND f.title LIKE ?`
		args = append(args, "%"+filter.Search+"%")
	}

	query += ` ORDER BY f.updated_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Skip)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "db.get_forms")
	}
	defer rows.Close()

	forms := []FormSummary{}
	for rows.Next() {
		f := FormSummary{}
		err = rows.Scan(
			&f.ID, &f.Title, &f.Description, &f.Status, &f.IsPublic,
			&f.CreatedAt, &f.UpdatedAt, &f.SubmissionCount,
		)
		if err != nil {
			return nil, errors.Wrap(err, "db.get_forms.scan")
		}
		forms = append(forms, f)
	}
	return forms, errors.Wrap(rows.Err(), "db.get_forms")
}

// UpdateForm updates form metadata under optimistic version locking;
// a stale version yields ErrConflict.
func (s *Store) UpdateForm(ctx context.Context, form *model.Form) error {
	settings, err := json.Marshal(form.Settings)
	if err != nil {
		return errors.Wrap(err, "db.update_form.settings")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE form
		SET
			title = ?, description = ?, status = ?, settings = ?,
			is_public = ?, allow_anonymous = ?, submission_limit = ?,
			start_date = ?, end_date = ?,
			updated_at = ?,
			version = version+1
		WHERE id = ?
			AND owner_id = ?
			AND version = ?`,
		form.Title, form.Description, form.Status, string(settings),
		form.IsPublic, form.AllowAnonymous, form.SubmissionLimit,
		form.StartDate, form.EndDate,
		time.Now().UTC(),
		form.ID, form.OwnerID, form.Version,
	)
	if err != nil {
		return errors.Wrap(err, "db.update_form")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "db.update_form.verify")
	}
	if n < 1 {
		// either absent, not owned, or a stale version
		if _, err := s.GetForm(ctx, form.ID); err != nil {
			return err
		}
		return ErrConflict
	}
	form.Version++
	return nil
}

// DeleteForm removes an owner's form; questions, submissions and answers
// go with it through foreign key cascades.
func (s *Store) DeleteForm(ctx context.Context, id, ownerID int) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM form
		WHERE id = ?
			AND owner_id = ?`,
		id, ownerID,
	)
	if err != nil {
		return errors.Wrap(err, "db.delete_form")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "db.delete_form.verify")
	}
	if n < 1 {
		return &NotFoundError{Kind: "form", ID: id}
	}
	return nil
}

// DuplicateForm copies a form and its questions into a new private draft
// owned by the caller.
func (s *Store) DuplicateForm(ctx context.Context, id, ownerID int) (*model.Form, error) {
	original, err := s.GetForm(ctx, id)
	if err != nil {
		return nil, err
	}
	if original.OwnerID != ownerID {
		return nil, &NotFoundError{Kind: "form", ID: id}
	}

	dup := &model.Form{
		Title:          original.Title + " (Copia)",
		Description:    original.Description,
		Status:         model.FormDraft,
		Settings:       original.Settings,
		OwnerID:        ownerID,
		IsPublic:       false,
		AllowAnonymous: original.AllowAnonymous,
		Questions:      make([]model.Question, len(original.Questions)),
	}
	for i, q := range original.Questions {
		q.ID = 0
		q.FormID = 0
		dup.Questions[i] = q
	}

	if err := s.CreateForm(ctx, dup); err != nil {
		return nil, err
	}
	return dup, nil
}

// AddQuestion appends a question to an owner's form.
func (s *Store) AddQuestion(ctx context.Context, ownerID int, q *model.Question) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := checkFormOwner(ctx, tx, q.FormID, ownerID); err != nil {
			return err
		}
		return insertQuestion(ctx, tx, q, time.Now().UTC())
	})
}

// UpdateQuestion rewrites a question's definition in place.
func (s *Store) UpdateQuestion(ctx context.Context, ownerID int, q *model.Question) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := checkFormOwner(ctx, tx, q.FormID, ownerID); err != nil {
			return err
		}

		options, validation, skipLogic, matrixRows, matrixColumns, appearance, err := questionJSON(q)
		if err != nil {
			return err
		}

		q.UpdatedAt = time.Now().UTC()
		res, err := tx.ExecContext(ctx, `
			UPDATE question
			SET
				type = ?, label = ?, description = ?, placeholder = ?,
				required = ?, ord = ?,
				options = ?, validation = ?, skip_logic = ?,
				default_value = ?, calculation = ?,
				min_value = ?, max_value = ?, step = ?,
				matrix_rows = ?, matrix_columns = ?, appearance = ?,
				updated_at = ?
			WHERE id = ?
				AND form_id = ?`,
			q.Type, q.Label, q.Description, q.Placeholder,
			q.Required, q.Order,
			options, validation, skipLogic,
			q.DefaultValue, q.Calculation,
			q.MinValue, q.MaxValue, q.Step,
			matrixRows, matrixColumns, appearance,
			q.UpdatedAt,
			q.ID, q.FormID,
		)
		if err != nil {
			return errors.Wrap(err, "db.update_question")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "db.update_question.verify")
		}
		if n < 1 {
			return &NotFoundError{Kind: "question", ID: q.ID}
		}
		return nil
	})
}

// DeleteQuestion removes a question; its historical answers cascade away
// with it.
func (s *Store) DeleteQuestion(ctx context.Context, ownerID, formID, questionID int) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := checkFormOwner(ctx, tx, formID, ownerID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			DELETE FROM question
			WHERE id = ?
				AND form_id = ?`,
			questionID, formID,
		)
		if err != nil {
			return errors.Wrap(err, "db.delete_question")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "db.delete_question.verify")
		}
		if n < 1 {
			return &NotFoundError{Kind: "question", ID: questionID}
		}
		return nil
	})
}

type QuestionOrder struct {
	ID    int `json:"id"`
	Order int `json:"order"`
}

// ReorderQuestions applies new order values atomically.
func (s *Store) ReorderQuestions(ctx context.Context, ownerID, formID int, orders []QuestionOrder) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := checkFormOwner(ctx, tx, formID, ownerID); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			UPDATE question
			SET ord = ?
			WHERE id = ?
				AND form_id = ?`)
		if err != nil {
			return errors.Wrap(err, "db.reorder_questions.prepare")
		}
		defer stmt.Close()

		for _, o := range orders {
			if _, err := stmt.ExecContext(ctx, o.Order, o.ID, formID); err != nil {
				return errors.Wrap(err, "db.reorder_questions")
			}
		}
		return nil
	})
}

func checkFormOwner(ctx context.Context, tx *sql.Tx, formID, ownerID int) error {
	var owner int
	err := tx.QueryRowContext(ctx,
		`SELECT owner_id FROM form WHERE id = ?`,
		formID,
	).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return &NotFoundError{Kind: "form", ID: formID}
	}
	if err != nil {
		return errors.Wrap(err, "db.get_form_owner")
	}
	if owner != ownerID {
		return &NotFoundError{Kind: "form", ID: formID}
	}
	return nil
}
