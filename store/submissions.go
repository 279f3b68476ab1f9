package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/acordova/formbox/model"
)

type SubmissionFilter struct {
	Status    model.SubmissionStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Skip      int
	Limit     int
	Ascending bool
}

// Put persists a submission and its answers as one unit; a failed answer
// write rolls the whole submission back.
func (s *Store) Put(ctx context.Context, sub *model.Submission) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		deviceInfo, err := marshalOpt(sub.Meta.DeviceInfo, len(sub.Meta.DeviceInfo) > 0)
		if err != nil {
			return errors.Wrap(err, "db.insert_submission.device_info")
		}
		geolocation, err := marshalOpt(sub.Meta.Geolocation, sub.Meta.Geolocation != nil)
		if err != nil {
			return errors.Wrap(err, "db.insert_submission.geolocation")
		}

		sub.CreatedAt = time.Now().UTC()
		err = tx.QueryRowContext(ctx, `
			INSERT INTO submission (
				form_id, user_id, instance_id, status,
				ip, user_agent, device_info, geolocation,
				started_at, completed_at, duration_seconds, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			sub.FormID, sub.UserID, sub.InstanceID, sub.Status,
			sub.Meta.IP, sub.Meta.UserAgent, deviceInfo, geolocation,
			sub.StartedAt, sub.CompletedAt, sub.DurationSeconds, sub.CreatedAt,
		).Scan(&sub.ID)
		if err != nil {
			return errors.Wrap(err, "db.insert_submission")
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO answer (
				submission_id, question_id, repeat_index,
				value_text, value_number, value_json, value_file, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`)
		if err != nil {
			return errors.Wrap(err, "db.insert_submission.answers.prepare")
		}
		defer stmt.Close()

		for i := range sub.Answers {
			a := &sub.Answers[i]
			text, number, structured, file, err := a.Value.Slots()
			if err != nil {
				return errors.Wrap(err, "db.insert_submission.answers.marshal")
			}
			var structuredText *string
			if structured != nil {
				s := string(structured)
				structuredText = &s
			}

			a.SubmissionID = sub.ID
			a.CreatedAt = sub.CreatedAt
			err = stmt.QueryRowContext(ctx,
				sub.ID, a.QuestionID, a.RepeatIndex,
				text, number, structuredText, file, a.CreatedAt,
			).Scan(&a.ID)
			if err != nil {
				return errors.Wrap(err, "db.insert_submission.answers.insert")
			}
		}
		return nil
	})
}

// GetAnswers loads the answer set of one submission.
func (s *Store) GetAnswers(ctx context.Context, submissionID int) ([]model.Answer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			id, submission_id, question_id, repeat_index,
			value_text, value_number, value_json, value_file, created_at
		FROM answer
		WHERE submission_id = ?
		ORDER BY question_id, repeat_index`,
		submissionID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "db.get_answers")
	}
	defer rows.Close()

	answers := []model.Answer{}
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		answers = append(answers, *a)
	}
	return answers, errors.Wrap(rows.Err(), "db.get_answers")
}

func scanAnswer(row rowScanner) (*model.Answer, error) {
	a := &model.Answer{}
	var text *string
	var number *float64
	var structured, file *string
	err := row.Scan(
		&a.ID, &a.SubmissionID, &a.QuestionID, &a.RepeatIndex,
		&text, &number, &structured, &file, &a.CreatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, "db.scan_answer")
	}

	var structuredJSON []byte
	if structured != nil {
		structuredJSON = []byte(*structured)
	}
	a.Value, err = model.ValueFromSlots(text, number, structuredJSON, file)
	if err != nil {
		return nil, errors.Wrap(err, "db.scan_answer.value")
	}
	return a, nil
}

// ListSubmissions returns submissions with nested answers. Interactive
// listings are newest-first; exports ask for ascending order so the
// output reads like a chronological log.
func (s *Store) ListSubmissions(ctx context.Context, formID int, filter SubmissionFilter) ([]model.Submission, error) {
	query := `
		SELECT
			id, form_id, user_id, instance_id, status,
			ip, user_agent, device_info, geolocation,
			started_at, completed_at, duration_seconds, created_at
		FROM submission
		WHERE form_id = ?`
	args := []any{formID}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.DateFrom != nil {
		query += ` AND created_at >= ?`
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query += ` AND created_at <= ?`
		args = append(args, *filter.DateTo)
	}

	if filter.Ascending {
		query += ` ORDER BY created_at ASC, id ASC`
	} else {
		query += ` ORDER BY created_at DESC, id DESC`
	}
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Skip)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "db.get_submissions")
	}
	defer rows.Close()

	submissions := []model.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "db.get_submissions")
	}

	for i := range submissions {
		submissions[i].Answers, err = s.GetAnswers(ctx, submissions[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return submissions, nil
}

func scanSubmission(row rowScanner) (*model.Submission, error) {
	sub := &model.Submission{}
	var deviceInfo, geolocation string
	err := row.Scan(
		&sub.ID, &sub.FormID, &sub.UserID, &sub.InstanceID, &sub.Status,
		&sub.Meta.IP, &sub.Meta.UserAgent, &deviceInfo, &geolocation,
		&sub.StartedAt, &sub.CompletedAt, &sub.DurationSeconds, &sub.CreatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, "db.scan_submission")
	}

	if deviceInfo != "" {
		if err := json.Unmarshal([]byte(deviceInfo), &sub.Meta.DeviceInfo); err != nil {
			return nil, errors.Wrap(err, "db.scan_submission.device_info")
		}
	}
	if geolocation != "" {
		if err := json.Unmarshal([]byte(geolocation), &sub.Meta.Geolocation); err != nil {
			return nil, errors.Wrap(err, "db.scan_submission.geolocation")
		}
	}
	return sub, nil
}

// GetSubmission loads one submission with answers, scoped to the form owner.
func (s *Store) GetSubmission(ctx context.Context, id, ownerID int) (*model.Submission, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT
			sub.id, sub.form_id, sub.user_id, sub.instance_id, sub.status,
			sub.ip, sub.user_agent, sub.device_info, sub.geolocation,
			sub.started_at, sub.completed_at, sub.duration_seconds, sub.created_at
		FROM submission sub
		INNER JOIN form f ON (f.id = sub.form_id)
		WHERE sub.id = ?
			AND f.owner_id = ?`,
		id, ownerID,
	)
	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Kind: "submission", ID: id}
		}
		return nil, err
	}

	sub.Answers, err = s.GetAnswers(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// DeleteSubmission removes a submission and its answers, scoped to the
// form owner.
func (s *Store) DeleteSubmission(ctx context.Context, id, ownerID int) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM submission
		WHERE id = ?
			AND form_id IN (SELECT id FROM form WHERE owner_id = ?)`,
		id, ownerID,
	)
	if err != nil {
		return errors.Wrap(err, "db.delete_submission")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "db.delete_submission.verify")
	}
	if n < 1 {
		return &NotFoundError{Kind: "submission", ID: id}
	}
	return nil
}

func (s *Store) CountSubmissions(ctx context.Context, formID int) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM submission WHERE form_id = ?`,
		formID,
	).Scan(&count)
	return count, errors.Wrap(err, "db.count_submissions")
}

// HasInstance reports whether a client instance id was already accepted
// for the form.
func (s *Store) HasInstance(ctx context.Context, formID int, instanceID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM submission
		WHERE form_id = ?
			AND instance_id = ?`,
		formID, instanceID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "db.get_instance")
	}
	return true, nil
}

// ComputeStatistics aggregates submission counts for the form: total,
// today, this week (week start is configurable), this month, plus the
// average completion duration.
func (s *Store) ComputeStatistics(ctx context.Context, formID int, now time.Time, weekStart time.Weekday) (*model.FormStatistics, error) {
	now = now.UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	daysIntoWeek := (int(now.Weekday()) - int(weekStart) + 7) % 7
	weekStartDate := dayStart.AddDate(0, 0, -daysIntoWeek)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	stats := &model.FormStatistics{}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(CASE WHEN created_at >= ? THEN 1 END),
			COUNT(CASE WHEN created_at >= ? THEN 1 END),
			COUNT(CASE WHEN created_at >= ? THEN 1 END),
			AVG(duration_seconds)
		FROM submission
		WHERE form_id = ?`,
		dayStart, weekStartDate, monthStart, formID,
	).Scan(
		&stats.TotalSubmissions,
		&stats.SubmissionsToday,
		&stats.SubmissionsThisWeek,
		&stats.SubmissionsThisMonth,
		&stats.AverageDuration,
	)
	return stats, errors.Wrap(err, "db.get_statistics")
}
