package export

import (
	"fmt"

	"github.com/acordova/formbox/model"
)

const labelMaxLen = 50

type column struct {
	key      string
	question model.Question
}

// buildColumns derives one export column per question, keyed by the label
// truncated to 50 characters. By default colliding keys get a question-id
// suffix so no column can shadow another; compat mode reproduces the
// legacy behavior where the later question silently wins.
func buildColumns(questions []model.Question, compat bool) []column {
	columns := make([]column, 0, len(questions))
	seen := make(map[string]bool, len(questions))
	for _, q := range questions {
		key := truncateLabel(q.Label)
		if !compat && seen[key] {
			key = fmt.Sprintf("%s_%d", key, q.ID)
		}
		seen[key] = true
		columns = append(columns, column{key: key, question: q})
	}
	return columns
}

func truncateLabel(label string) string {
	runes := []rune(label)
	if len(runes) > labelMaxLen {
		return string(runes[:labelMaxLen])
	}
	return label
}
