// Package quizgen turns free-form LLM output into structured multiple choice questions.
package quizgen

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"dsa-quiz-service/internal/domain"
)

var optionKeys = []string{"A", "B", "C", "D"}

const (
	maxQuestionLen    = 1000
	maxOptionLen      = 120
	maxRawOptionLen   = 150
	maxExplanationLen = 350
)

var (
	blockSplitters = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\n\s*Question\s*\d+\s*[.:)]\s*`),
		regexp.MustCompile(`(?i)\n\s*Q\s*\d+\s*[.:)]\s*`),
		regexp.MustCompile(`(?i)\n\s*#{1,3}\s*Question\s*\d+`),
		regexp.MustCompile(`(?i)\n\s*\*\*Question\s*\d+\*\*`),
	}
	// A bare "1." header counts only when it is not immediately followed by an option label.
	bareNumber      = regexp.MustCompile(`\n\s*\d+\s*[.:)]\s+`)
	optionLabelHead = regexp.MustCompile(`^[A-Da-d][.:)]`)

	fencedCode = regexp.MustCompile("```[\\s\\S]*?```")
	inlineCode = regexp.MustCompile("`[^`]+`")

	optionLine   = regexp.MustCompile(`^(?:[A-D][.)]\s+\S|\([A-D]\)\s+\S|[A-D]:\s+\S)`)
	metadataLine = regexp.MustCompile(`(?i)^(?:Correct|Answer|Explanation|Reason)[\s:]`)

	optionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^([A-D])\.\s*(.+)$`),
		regexp.MustCompile(`^([A-D])\)\s*(.+)$`),
		regexp.MustCompile(`^\(([A-D])\)\s*(.+)$`),
		regexp.MustCompile(`^([A-D]):\s*(.+)$`),
		regexp.MustCompile(`^([A-D])\s+(.+)$`),
	}
	optionTail       = regexp.MustCompile(`(?i)\s+(?:Correct|Answer|Explanation|Reason)[\s:]`)
	correctMarker    = regexp.MustCompile(`(?i)(?:Correct|Answer)[\s:]+([A-D])`)
	explanationStart = regexp.MustCompile(`(?i)^(?:Explanation|Reason)[\s:]+(.+)`)
	optionPrefix     = regexp.MustCompile(`^[A-D][.)]`)
	questionPrefix   = regexp.MustCompile(`(?i)^(?:Question|Q)\s*\d+\s*[.:)]\s*`)
	inferredOption   = regexp.MustCompile(`(?i)\boption\s+([A-D])\b`)
)

// ParseQuestions extracts questions from an LLM response. Blocks that do not yield a
// question with at least two options are skipped.
func ParseQuestions(text string) []domain.Question {
	text = strings.TrimSpace(strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(text))
	if text == "" {
		return nil
	}

	var questions []domain.Question
	for i, block := range splitBlocks(text) {
		q, err := parseBlock(block)
		if err != nil {
			slog.Debug("skipping question block", "block", i, "reason", err)
			continue
		}
		questions = append(questions, q)
	}
	return questions
}

func splitBlocks(text string) []string {
	// The leading newline lets the first header match the same way later ones do.
	padded := "\n" + text
	for _, re := range blockSplitters {
		if re.MatchString(padded) {
			return keepBlocks(re.Split(padded, -1), 20)
		}
	}
	if parts := splitBareNumbers(padded); len(parts) > 0 {
		return keepBlocks(parts, 20)
	}
	return keepBlocks(strings.Split(text, "\n\n"), 30)
}

func splitBareNumbers(text string) []string {
	var parts []string
	last := 0
	for _, loc := range bareNumber.FindAllStringIndex(text, -1) {
		if optionLabelHead.MatchString(text[loc[1]:]) {
			continue
		}
		parts = append(parts, text[last:loc[0]])
		last = loc[1]
	}
	if parts == nil {
		return nil
	}
	return append(parts, text[last:])
}

func keepBlocks(parts []string, minLen int) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); len(p) > minLen {
			out = append(out, p)
		}
	}
	return out
}

func parseBlock(block string) (domain.Question, error) {
	if len(block) < 30 {
		return domain.Question{}, fmt.Errorf("block too short")
	}

	codes := map[string]string{}
	protect := func(s string) string {
		key := fmt.Sprintf("__CODE_BLOCK_%d__", len(codes))
		codes[key] = s
		return key
	}
	restore := func(s string) string {
		for key, code := range codes {
			s = strings.ReplaceAll(s, key, code)
		}
		return s
	}
	processed := fencedCode.ReplaceAllStringFunc(block, protect)
	processed = inlineCode.ReplaceAllStringFunc(processed, protect)

	lines := nonEmptyLines(processed)
	if len(lines) == 0 {
		return domain.Question{}, fmt.Errorf("empty block")
	}

	var questionLines []string
	optionsStart := len(lines)
	for idx, line := range lines {
		if optionLine.MatchString(line) || metadataLine.MatchString(line) {
			optionsStart = idx
			break
		}
		if len(line) > 5 {
			questionLines = append(questionLines, restore(line))
		}
	}
	for i := range lines {
		lines[i] = restore(lines[i])
	}

	var prompt string
	if len(questionLines) > 0 {
		prompt = questionPrefix.ReplaceAllString(strings.TrimSpace(strings.Join(questionLines, " ")), "")
	} else {
		prompt = truncate(lines[0], 200)
		optionsStart = 1
	}
	if len(prompt) < 10 || strings.EqualFold(prompt, "question") || strings.EqualFold(prompt, "q") {
		return domain.Question{}, fmt.Errorf("question text too short")
	}

	options, correct, explanation := parseAnswerLines(lines[optionsStart:])
	if len(options) < 2 {
		return domain.Question{}, fmt.Errorf("only %d options", len(options))
	}
	for _, key := range optionKeys {
		if _, ok := options[key]; !ok {
			options[key] = "Option " + key
		}
	}

	if _, ok := options[correct]; !ok {
		correct = "A"
		if m := inferredOption.FindStringSubmatch(explanation); m != nil {
			correct = strings.ToUpper(m[1])
		}
	}
	if explanation == "" {
		explanation = fmt.Sprintf("The correct answer is %s. Review the related concepts to understand why.", correct)
	}

	for key, value := range options {
		options[key] = truncate(value, maxOptionLen)
	}
	return domain.Question{
		Prompt:      strings.TrimSpace(truncate(prompt, maxQuestionLen)),
		Options:     options,
		Correct:     correct,
		Explanation: truncate(explanation, maxExplanationLen),
	}, nil
}

func parseAnswerLines(lines []string) (map[string]string, string, string) {
	options := map[string]string{}
	var correct string
	var explanation []string
	parsingOptions := true

	for _, line := range lines {
		if parsingOptions && len(options) < len(optionKeys) {
			if key, value, ok := matchOption(line); ok {
				if _, dup := options[key]; !dup {
					options[key] = value
					continue
				}
			} else if len(options) > 0 {
				parsingOptions = false
			}
		}

		if m := correctMarker.FindStringSubmatch(line); m != nil {
			correct = strings.ToUpper(m[1])
			continue
		}
		if m := explanationStart.FindStringSubmatch(line); m != nil {
			explanation = append(explanation, strings.TrimSpace(m[1]))
			continue
		}
		if len(explanation) > 0 && !optionPrefix.MatchString(line) {
			explanation = append(explanation, line)
		}
	}
	return options, correct, strings.TrimSpace(strings.Join(explanation, " "))
}

func matchOption(line string) (string, string, bool) {
	for _, re := range optionPatterns {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		value := optionTail.Split(m[2], 2)[0]
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		return m[1], truncate(value, maxRawOptionLen), true
	}
	return "", "", false
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
