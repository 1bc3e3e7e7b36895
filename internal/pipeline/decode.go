package pipeline

import (
	"encoding/json"
	"strings"
)

// DecodeAnswer parses the legal answer contract. A ```json fence is
// stripped; output that is not a JSON object becomes the whole answer. A
// JSON object with a blank answer decodes as is.
func DecodeAnswer(raw string) Answer {
	body := strings.TrimSpace(raw)
	if strings.HasPrefix(body, "```json") && strings.HasSuffix(body, "```") && len(body) >= len("```json```") {
		body = strings.TrimSpace(body[len("```json") : len(body)-len("```")])
	}

	var answer Answer
	if err := json.Unmarshal([]byte(body), &answer); err != nil {
		return Answer{Answer: raw}
	}
	answer.Answer = strings.TrimSpace(answer.Answer)
	return answer
}
