package model

import (
	"sort"
	"time"
)

type FormStatus string

const (
	FormDraft     FormStatus = "draft"
	FormPublished FormStatus = "published"
	FormArchived  FormStatus = "archived"
)

type QuestionType string

const (
	TypeText           QuestionType = "text"
	TypeTextarea       QuestionType = "textarea"
	TypeEmail          QuestionType = "email"
	TypePhone          QuestionType = "phone"
	TypeURL            QuestionType = "url"
	TypeInteger        QuestionType = "integer"
	TypeDecimal        QuestionType = "decimal"
	TypeRange          QuestionType = "range"
	TypeSelectOne      QuestionType = "select_one"
	TypeSelectMultiple QuestionType = "select_multiple"
	TypeRating         QuestionType = "rating"
	TypeRanking        QuestionType = "ranking"
	TypeDate           QuestionType = "date"
	TypeTime           QuestionType = "time"
	TypeDatetime       QuestionType = "datetime"
	TypeGeopoint       QuestionType = "geopoint"
	TypeImage          QuestionType = "image"
	TypeAudio          QuestionType = "audio"
	TypeVideo          QuestionType = "video"
	TypeFile           QuestionType = "file"
	TypeSignature      QuestionType = "signature"
	TypeBarcode        QuestionType = "barcode"
	TypeMatrix         QuestionType = "matrix"
	TypeCalculate      QuestionType = "calculate"
	TypeHidden         QuestionType = "hidden"
	TypeNote           QuestionType = "note"
)

// IsChoice reports whether the type selects from an option list.
func (t QuestionType) IsChoice() bool {
	switch t {
	case TypeSelectOne, TypeSelectMultiple, TypeRanking:
		return true
	}
	return false
}

// IsNumeric reports whether answers are expected in the number slot.
func (t QuestionType) IsNumeric() bool {
	switch t {
	case TypeInteger, TypeDecimal, TypeRange, TypeRating:
		return true
	}
	return false
}

// IsMedia reports whether answers are expected as file references.
func (t QuestionType) IsMedia() bool {
	switch t {
	case TypeImage, TypeAudio, TypeVideo, TypeFile, TypeSignature:
		return true
	}
	return false
}

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Image string `json:"image,omitempty"`
}

type ValidationRule struct {
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	MinLength *int     `json:"min_length,omitempty"`
	MaxLength *int     `json:"max_length,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
	Message   string   `json:"message,omitempty"`
}

type Question struct {
	ID            int             `json:"id,omitempty"`
	FormID        int             `json:"form_id,omitempty"`
	Type          QuestionType    `json:"question_type"`
	Label         string          `json:"label"`
	Description   string          `json:"description,omitempty"`
	Placeholder   string          `json:"placeholder,omitempty"`
	Required      bool            `json:"required"`
	Order         int             `json:"order"`
	Options       []Option        `json:"options,omitempty"`
	Validation    *ValidationRule `json:"validation,omitempty"`
	SkipLogic     *SkipLogic      `json:"skip_logic,omitempty"`
	DefaultValue  string          `json:"default_value,omitempty"`
	Calculation   string          `json:"calculation,omitempty"`
	MinValue      *float64        `json:"min_value,omitempty"`
	MaxValue      *float64        `json:"max_value,omitempty"`
	Step          *float64        `json:"step,omitempty"`
	MatrixRows    []string        `json:"matrix_rows,omitempty"`
	MatrixColumns []string        `json:"matrix_columns,omitempty"`
	Appearance    map[string]any  `json:"appearance,omitempty"`
	CreatedAt     time.Time       `json:"created_at,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at,omitempty"`
}

type FormSettings struct {
	Theme               string `json:"theme,omitempty"`
	Language            string `json:"language,omitempty"`
	ShowProgress        bool   `json:"show_progress,omitempty"`
	AllowSaveDraft      bool   `json:"allow_save_draft,omitempty"`
	ShowQuestionNumbers bool   `json:"show_question_numbers,omitempty"`
	OneQuestionPerPage  bool   `json:"one_question_per_page,omitempty"`
	SuccessMessage      string `json:"success_message,omitempty"`
	RedirectURL         string `json:"redirect_url,omitempty"`
}

type Form struct {
	ID              int          `json:"id,omitempty"`
	Version         int          `json:"version,omitempty"`
	Title           string       `json:"title"`
	Description     string       `json:"description,omitempty"`
	Status          FormStatus   `json:"status"`
	Settings        FormSettings `json:"settings"`
	OwnerID         int          `json:"owner_id,omitempty"`
	IsPublic        bool         `json:"is_public"`
	AllowAnonymous  bool         `json:"allow_anonymous"`
	SubmissionLimit *int         `json:"submission_limit,omitempty"`
	StartDate       *time.Time   `json:"start_date,omitempty"`
	EndDate         *time.Time   `json:"end_date,omitempty"`
	Questions       []Question   `json:"questions"`
	CreatedAt       time.Time    `json:"created_at,omitempty"`
	UpdatedAt       time.Time    `json:"updated_at,omitempty"`
}

// SortQuestions orders questions by their order field, keeping insertion
// order (ascending id) on ties.
func (f *Form) SortQuestions() {
	sort.SliceStable(f.Questions, func(i, j int) bool {
		if f.Questions[i].Order != f.Questions[j].Order {
			return f.Questions[i].Order < f.Questions[j].Order
		}
		return f.Questions[i].ID < f.Questions[j].ID
	})
}

func (f *Form) QuestionByID(id int) *Question {
	for i := range f.Questions {
		if f.Questions[i].ID == id {
			return &f.Questions[i]
		}
	}
	return nil
}

func (f *Form) RequiredQuestionIDs() []int {
	var ids []int
	for _, q := range f.Questions {
		if q.Required {
			ids = append(ids, q.ID)
		}
	}
	return ids
}

type SubmissionStatus string

const (
	SubmissionDraft     SubmissionStatus = "draft"
	SubmissionCompleted SubmissionStatus = "completed"
	SubmissionValidated SubmissionStatus = "validated"
)

type Geolocation struct {
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
	Accuracy *float64 `json:"accuracy,omitempty"`
}

// ClientMeta is captured by the boundary layer, never computed here.
type ClientMeta struct {
	IP          string         `json:"ip_address,omitempty"`
	UserAgent   string         `json:"user_agent,omitempty"`
	DeviceInfo  map[string]any `json:"device_info,omitempty"`
	Geolocation *Geolocation   `json:"geolocation,omitempty"`
}

type Submission struct {
	ID              int              `json:"id,omitempty"`
	FormID          int              `json:"form_id"`
	UserID          *int             `json:"user_id,omitempty"`
	InstanceID      string           `json:"instance_id,omitempty"`
	Status          SubmissionStatus `json:"status"`
	Meta            ClientMeta       `json:"meta,omitempty"`
	StartedAt       time.Time        `json:"started_at"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
	DurationSeconds *int             `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time        `json:"created_at,omitempty"`
	Answers         []Answer         `json:"answers"`
}

type Answer struct {
	ID           int       `json:"id,omitempty"`
	SubmissionID int       `json:"submission_id,omitempty"`
	QuestionID   int       `json:"question_id"`
	RepeatIndex  int       `json:"repeat_index"`
	Value        Value     `json:"value"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

type FormStatistics struct {
	TotalSubmissions     int      `json:"total_submissions"`
	SubmissionsToday     int      `json:"submissions_today"`
	SubmissionsThisWeek  int      `json:"submissions_this_week"`
	SubmissionsThisMonth int      `json:"submissions_this_month"`
	AverageDuration      *float64 `json:"average_duration"`
}
