package validate

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/gofrs/uuid"

	"github.com/acordova/formbox/model"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrFormNotAvailable       Error = "form is not published"
	ErrAuthenticationRequired Error = "authentication required"
	ErrFormNotYetAvailable    Error = "form not yet available"
	ErrFormExpired            Error = "form has expired"
	ErrSubmissionLimitReached Error = "form has reached submission limit"
	ErrDuplicateInstance      Error = "submission already received"
)

// MissingRequiredError reports every required question absent from the
// payload, not just the first.
type MissingRequiredError struct {
	QuestionIDs []int
}

func (e *MissingRequiredError) Error() string {
	return fmt.Sprintf("missing required questions: %v", e.QuestionIDs)
}

// ValueError reports a per-type rule violation found in strict mode.
type ValueError struct {
	QuestionID int
	Message    string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("question %d: %s", e.QuestionID, e.Message)
}

// Identity is the caller resolved by the boundary layer; nil means anonymous.
type Identity struct {
	UserID int
}

// Store is the slice of the answer store the validator consults.
type Store interface {
	CountSubmissions(ctx context.Context, formID int) (int, error)
	HasInstance(ctx context.Context, formID int, instanceID string) (bool, error)
}

type Options struct {
	// Strict enables per-type value validation (ranges, lengths, patterns,
	// option membership) on top of the presence checks.
	Strict bool
	// Now defaults to time.Now; injectable for tests.
	Now func() time.Time
}

type PayloadAnswer struct {
	QuestionID  int         `json:"question_id"`
	RepeatIndex int         `json:"repeat_index"`
	Value       model.Value `json:"value"`
}

type Payload struct {
	Status      model.SubmissionStatus `json:"status"`
	InstanceID  string                 `json:"instance_id,omitempty"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	Geolocation *model.Geolocation     `json:"geolocation,omitempty"`
	Answers     []PayloadAnswer        `json:"answers"`
}

// ValidateAndAccept runs the full acceptance pipeline against a form schema
// and returns a normalized submission ready for atomic persistence, or a
// domain error naming the reason for rejection.
//
// The quota check is a read followed by a later write; under concurrent
// load the limit is advisory, not a hard cap.
func ValidateAndAccept(
	ctx context.Context,
	st Store,
	opts Options,
	form *model.Form,
	payload Payload,
	identity *Identity,
	meta model.ClientMeta,
) (*model.Submission, error) {
	now := time.Now().UTC()
	if opts.Now != nil {
		now = opts.Now()
	}

	// 1. availability: owners may always submit to their own form
	isOwner := identity != nil && identity.UserID == form.OwnerID
	if form.Status != model.FormPublished && !isOwner {
		return nil, ErrFormNotAvailable
	}

	// 2. anonymity
	if !form.AllowAnonymous && identity == nil {
		return nil, ErrAuthenticationRequired
	}

	// 3. time window: inclusive at start_date
	if form.StartDate != nil && now.Before(*form.StartDate) {
		return nil, ErrFormNotYetAvailable
	}
	if form.EndDate != nil && now.After(*form.EndDate) {
		return nil, ErrFormExpired
	}

	// 4. quota
	if form.SubmissionLimit != nil {
		count, err := st.CountSubmissions(ctx, form.ID)
		if err != nil {
			return nil, err
		}
		if count >= *form.SubmissionLimit {
			return nil, ErrSubmissionLimitReached
		}
	}

	// offline re-sync dedupe by client instance id
	instanceID := payload.InstanceID
	if instanceID == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return nil, err
		}
		instanceID = id.String()
	} else {
		seen, err := st.HasInstance(ctx, form.ID, instanceID)
		if err != nil {
			return nil, err
		}
		if seen {
			return nil, ErrDuplicateInstance
		}
	}

	answered := model.AnswerSet{}
	for _, a := range payload.Answers {
		if _, ok := answered[a.QuestionID]; !ok {
			answered[a.QuestionID] = a.Value
		}
	}

	// 5. required coverage, reported as one error
	if missing := missingRequired(form, answered, opts.Strict); len(missing) > 0 {
		return nil, &MissingRequiredError{QuestionIDs: missing}
	}

	// 6./7. unknown answers are dropped, known ones optionally type-checked
	var answers []model.Answer
	for _, a := range payload.Answers {
		q := form.QuestionByID(a.QuestionID)
		if q == nil {
			continue
		}
		if opts.Strict {
			if err := checkValue(q, a.Value); err != nil {
				return nil, err
			}
		}
		answers = append(answers, model.Answer{
			QuestionID:  a.QuestionID,
			RepeatIndex: a.RepeatIndex,
			Value:       a.Value,
		})
	}

	status := payload.Status
	if status == "" {
		status = model.SubmissionCompleted
	}

	sub := &model.Submission{
		FormID:     form.ID,
		InstanceID: instanceID,
		Status:     status,
		Meta:       meta,
		StartedAt:  now,
		Answers:    answers,
	}
	if identity != nil {
		uid := identity.UserID
		sub.UserID = &uid
	}
	if payload.Geolocation != nil {
		sub.Meta.Geolocation = payload.Geolocation
	}
	if payload.StartedAt != nil {
		sub.StartedAt = payload.StartedAt.UTC()
	}
	if status == model.SubmissionCompleted {
		completed := now
		sub.CompletedAt = &completed
		if duration := int(completed.Sub(sub.StartedAt).Seconds()); duration >= 0 {
			sub.DurationSeconds = &duration
		}
	}

	return sub, nil
}

// missingRequired returns required question ids absent from the answer set.
// In strict mode questions hidden by skip logic are exempt.
func missingRequired(form *model.Form, answered model.AnswerSet, strict bool) []int {
	var hidden map[int]bool
	if strict {
		hidden = model.HiddenQuestions(form, answered)
	}

	var missing []int
	for _, q := range form.Questions {
		if !q.Required || hidden[q.ID] {
			continue
		}
		if _, ok := answered[q.ID]; !ok {
			missing = append(missing, q.ID)
		}
	}
	sort.Ints(missing)
	return missing
}

func checkValue(q *model.Question, v model.Value) error {
	if v.IsAbsent() {
		if q.Required {
			return &ValueError{q.ID, "required answer is empty"}
		}
		return nil
	}

	if q.Type.IsChoice() {
		if len(q.Options) == 0 {
			return &ValueError{q.ID, "choice question has no options"}
		}
		if err := checkChoice(q, v); err != nil {
			return err
		}
	}

	if q.Type.IsNumeric() {
		if v.Kind() != model.ValueNumber {
			return &ValueError{q.ID, "expected a numeric answer"}
		}
		if q.MinValue != nil && v.Number() < *q.MinValue {
			return ruleError(q, fmt.Sprintf("value below minimum %g", *q.MinValue))
		}
		if q.MaxValue != nil && v.Number() > *q.MaxValue {
			return ruleError(q, fmt.Sprintf("value above maximum %g", *q.MaxValue))
		}
	}

	rule := q.Validation
	if rule == nil {
		return nil
	}

	if v.Kind() == model.ValueNumber {
		if rule.Min != nil && v.Number() < *rule.Min {
			return ruleError(q, fmt.Sprintf("value below minimum %g", *rule.Min))
		}
		if rule.Max != nil && v.Number() > *rule.Max {
			return ruleError(q, fmt.Sprintf("value above maximum %g", *rule.Max))
		}
	}

	if v.Kind() == model.ValueText {
		text := v.Text()
		if rule.MinLength != nil && len([]rune(text)) < *rule.MinLength {
			return ruleError(q, fmt.Sprintf("shorter than %d characters", *rule.MinLength))
		}
		if rule.MaxLength != nil && len([]rune(text)) > *rule.MaxLength {
			return ruleError(q, fmt.Sprintf("longer than %d characters", *rule.MaxLength))
		}
		if rule.Pattern != "" {
			re, err := regexp.Compile(rule.Pattern)
			if err != nil {
				return &ValueError{q.ID, "invalid validation pattern"}
			}
			if !re.MatchString(text) {
				return ruleError(q, "value does not match pattern")
			}
		}
	}

	return nil
}

func checkChoice(q *model.Question, v model.Value) error {
	allowed := make(map[string]bool, len(q.Options))
	for _, opt := range q.Options {
		allowed[opt.Value] = true
	}

	switch v.Kind() {
	case model.ValueText:
		if !allowed[v.Text()] {
			return ruleError(q, fmt.Sprintf("%q is not an option", v.Text()))
		}
	case model.ValueStructured:
		selected, ok := v.Structured().([]any)
		if !ok {
			return ruleError(q, "expected a list of selected options")
		}
		for _, item := range selected {
			s, ok := item.(string)
			if !ok || !allowed[s] {
				return ruleError(q, fmt.Sprintf("%v is not an option", item))
			}
		}
	default:
		return ruleError(q, "expected an option value")
	}
	return nil
}

// ruleError prefers the schema's custom message when one is set.
func ruleError(q *model.Question, msg string) error {
	if q.Validation != nil && q.Validation.Message != "" {
		msg = q.Validation.Message
	}
	return &ValueError{q.ID, msg}
}
