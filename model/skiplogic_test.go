package model

import (
	"testing"
)

func TestParseCondition(t *testing.T) {
	t.Run("number literal", func(t *testing.T) {
		cond, err := ParseCondition("q3 > 5")
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if cond.QuestionID != 3 || cond.Op != OpGt || !cond.IsNumber || cond.Number != 5 {
			t.Errorf("unexpected condition: %+v", cond)
		}
	})

	t.Run("single quoted string", func(t *testing.T) {
		cond, err := ParseCondition("q12 == 'yes'")
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if cond.QuestionID != 12 || cond.Op != OpEq || cond.IsNumber || cond.Text != "yes" {
			t.Errorf("unexpected condition: %+v", cond)
		}
	})

	t.Run("double quoted string", func(t *testing.T) {
		cond, err := ParseCondition(`q1 != "no"`)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if cond.Op != OpNe || cond.Text != "no" {
			t.Errorf("unexpected condition: %+v", cond)
		}
	})

	t.Run("le not read as lt", func(t *testing.T) {
		cond, err := ParseCondition("q2 <= 10")
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if cond.Op != OpLe {
			t.Errorf("expected <=, got %q", cond.Op)
		}
	})

	t.Run("no extra whitespace needed", func(t *testing.T) {
		cond, err := ParseCondition("q7>=2")
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if cond.QuestionID != 7 || cond.Op != OpGe || cond.Number != 2 {
			t.Errorf("unexpected condition: %+v", cond)
		}
	})

	invalid := []string{
		"",
		"3 > 5",
		"q > 5",
		"q3 5",
		"q3 >",
		"q3 == 'open",
		"q3 == banana",
	}
	for _, expr := range invalid {
		if _, err := ParseCondition(expr); err == nil {
			t.Errorf("expected error for %q", expr)
		}
	}
}

func TestConditionEvaluate(t *testing.T) {
	t.Run("absent answer never satisfies", func(t *testing.T) {
		cond, _ := ParseCondition("q1 != 'x'")
		if cond.Evaluate(AnswerSet{}) {
			t.Error("absent answer satisfied a condition")
		}
		if cond.Evaluate(AnswerSet{1: {}}) {
			t.Error("zero value satisfied a condition")
		}
	})

	t.Run("numeric zero is present", func(t *testing.T) {
		cond, _ := ParseCondition("q1 == 0")
		if !cond.Evaluate(AnswerSet{1: NumberValue(0)}) {
			t.Error("numeric 0 was treated as absent")
		}
	})

	t.Run("text answer compared numerically", func(t *testing.T) {
		cond, _ := ParseCondition("q1 > 4")
		if !cond.Evaluate(AnswerSet{1: TextValue("5")}) {
			t.Error("parseable text did not compare numerically")
		}
		if cond.Evaluate(AnswerSet{1: TextValue("banana")}) {
			t.Error("unparseable text satisfied a numeric condition")
		}
	})

	t.Run("string comparison", func(t *testing.T) {
		cond, _ := ParseCondition("q1 == 'yes'")
		if !cond.Evaluate(AnswerSet{1: TextValue("yes")}) {
			t.Error("expected match")
		}
		if cond.Evaluate(AnswerSet{1: TextValue("no")}) {
			t.Error("unexpected match")
		}
	})

	t.Run("structured answer does not match scalars", func(t *testing.T) {
		cond, _ := ParseCondition("q1 == 'yes'")
		if cond.Evaluate(AnswerSet{1: StructuredValue([]any{"yes"})}) {
			t.Error("structured value matched a string literal")
		}
	})
}

func TestHiddenQuestions(t *testing.T) {
	form := &Form{Questions: []Question{
		{ID: 1, Type: TypeSelectOne},
		{ID: 2, Type: TypeText, SkipLogic: &SkipLogic{
			Condition: "q1 == 'other'", TargetQuestionID: 3, Action: ActionShow,
		}},
		{ID: 3, Type: TypeText},
		{ID: 4, Type: TypeText, SkipLogic: &SkipLogic{
			Condition: "q1 == 'none'", TargetQuestionID: 5, Action: ActionHide,
		}},
		{ID: 5, Type: TypeText},
		{ID: 6, Type: TypeText, SkipLogic: &SkipLogic{
			Condition: "not a condition", TargetQuestionID: 1, Action: ActionHide,
		}},
	}}

	t.Run("show hides target until condition holds", func(t *testing.T) {
		hidden := HiddenQuestions(form, AnswerSet{1: TextValue("red")})
		if !hidden[3] {
			t.Error("show target should be hidden while condition fails")
		}
		hidden = HiddenQuestions(form, AnswerSet{1: TextValue("other")})
		if hidden[3] {
			t.Error("show target should be visible once condition holds")
		}
	})

	t.Run("hide hides target when condition holds", func(t *testing.T) {
		hidden := HiddenQuestions(form, AnswerSet{1: TextValue("none")})
		if !hidden[5] {
			t.Error("hide target should be hidden")
		}
		if hidden[1] {
			t.Error("unparseable rule should be ignored")
		}
	})
}
