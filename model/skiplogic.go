package model

import (
	"fmt"
	"strconv"
	"strings"
)

type SkipAction string

const (
	ActionShow SkipAction = "show"
	ActionHide SkipAction = "hide"
	ActionSkip SkipAction = "skip"
)

// SkipLogic attaches a condition to a question; when the condition holds,
// the action is applied to the target question.
type SkipLogic struct {
	Condition        string     `json:"condition,omitempty"`
	TargetQuestionID int        `json:"target_question_id,omitempty"`
	Action           SkipAction `json:"action,omitempty"`
}

type CompareOp string

const (
	OpEq CompareOp = "=="
	OpNe CompareOp = "!="
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
)

// Condition is a single comparison between a question's answer and a
// literal, e.g. `q12 == 'yes'` or `q3 > 5`.
type Condition struct {
	QuestionID int
	Op         CompareOp
	Text       string
	Number     float64
	IsNumber   bool
}

// operators are tried longest-first so "<=" is not read as "<".
var compareOps = []CompareOp{OpEq, OpNe, OpLe, OpGe, OpLt, OpGt}

// ParseCondition parses the `qID op literal` comparison grammar. Literals
// are numbers or single/double quoted strings.
func ParseCondition(expr string) (*Condition, error) {
	s := strings.TrimSpace(expr)
	if s == "" {
		return nil, fmt.Errorf("empty condition")
	}
	if s[0] != 'q' {
		return nil, fmt.Errorf("condition %q: expected question reference", expr)
	}

	i := 1
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 1 {
		return nil, fmt.Errorf("condition %q: expected question id after 'q'", expr)
	}
	qid, err := strconv.Atoi(s[1:i])
	if err != nil {
		return nil, fmt.Errorf("condition %q: bad question id", expr)
	}

	rest := strings.TrimSpace(s[i:])
	var op CompareOp
	for _, candidate := range compareOps {
		if strings.HasPrefix(rest, string(candidate)) {
			op = candidate
			rest = strings.TrimSpace(rest[len(candidate):])
			break
		}
	}
	if op == "" {
		return nil, fmt.Errorf("condition %q: expected comparison operator", expr)
	}
	if rest == "" {
		return nil, fmt.Errorf("condition %q: expected literal", expr)
	}

	cond := &Condition{QuestionID: qid, Op: op}
	if quote := rest[0]; quote == '\'' || quote == '"' {
		if len(rest) < 2 || rest[len(rest)-1] != quote {
			return nil, fmt.Errorf("condition %q: unterminated string literal", expr)
		}
		cond.Text = rest[1 : len(rest)-1]
		return cond, nil
	}

	n, err := strconv.ParseFloat(rest, 64)
	if err != nil {
		return nil, fmt.Errorf("condition %q: bad literal %q", expr, rest)
	}
	cond.Number = n
	cond.IsNumber = true
	return cond, nil
}

// AnswerSet indexes the first-instance answer value of each question.
type AnswerSet map[int]Value

// Evaluate compares the referenced answer against the literal. An absent
// answer never satisfies a condition.
func (c *Condition) Evaluate(answers AnswerSet) bool {
	v, ok := answers[c.QuestionID]
	if !ok || v.IsAbsent() {
		return false
	}

	if c.IsNumber {
		var n float64
		switch v.Kind() {
		case ValueNumber:
			n = v.Number()
		case ValueText:
			parsed, err := strconv.ParseFloat(v.Text(), 64)
			if err != nil {
				return false
			}
			n = parsed
		default:
			return false
		}
		return compareNumbers(n, c.Op, c.Number)
	}

	var s string
	switch v.Kind() {
	case ValueText:
		s = v.Text()
	case ValueFile:
		s = v.FileRef()
	default:
		return false
	}
	return compareStrings(s, c.Op, c.Text)
}

func compareNumbers(a float64, op CompareOp, b float64) bool {
	switch op {
	case OpEq:
		return a == b
	case OpNe:
		return a != b
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	case OpGt:
		return a > b
	case OpGe:
		return a >= b
	}
	return false
}

func compareStrings(a string, op CompareOp, b string) bool {
	switch op {
	case OpEq:
		return a == b
	case OpNe:
		return a != b
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	case OpGt:
		return a > b
	case OpGe:
		return a >= b
	}
	return false
}

// HiddenQuestions resolves every skip-logic rule of a form against an
// answer set and returns the set of question ids that end up hidden or
// skipped. Rules with unparseable conditions are ignored.
func HiddenQuestions(form *Form, answers AnswerSet) map[int]bool {
	hidden := make(map[int]bool)
	for _, q := range form.Questions {
		sl := q.SkipLogic
		if sl == nil || sl.Condition == "" || sl.TargetQuestionID == 0 {
			continue
		}
		cond, err := ParseCondition(sl.Condition)
		if err != nil {
			continue
		}

		holds := cond.Evaluate(answers)
		switch sl.Action {
		case ActionShow:
			if !holds {
				hidden[sl.TargetQuestionID] = true
			}
		case ActionHide, ActionSkip:
			if holds {
				hidden[sl.TargetQuestionID] = true
			}
		}
	}
	return hidden
}
