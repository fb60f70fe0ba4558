package assistant

import (
	"regexp"
	"strings"
)

// GuardResult is the outcome of scanning inbound text for prompt injection.
type GuardResult struct {
	Blocked   bool
	Score     float64
	Reasons   []string
	Sanitized string
}

type guardPattern struct {
	re     *regexp.Regexp
	reason string
	weight float64
}

const (
	blockThreshold = 0.7
	warnThreshold  = 0.3
)

var injectionPatterns = []guardPattern{
	{regexp.MustCompile(`(?i)(ignore|disregard|forget)\s+(all\s+)?(previous|prior|above|earlier|your)\s+(instructions?|rules?|prompts?|guidelines?)`), "injection:ignore_instructions", 0.9},
	{regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|my)\s+`), "injection:role_reassignment", 0.7},
	{regexp.MustCompile(`(?i)new\s+instructions?\s*:|system\s*prompt\s*:|<<\s*sys(tem)?\s*>>`), "injection:new_instructions", 0.9},
	{regexp.MustCompile(`(?i)(pretend|imagine)\s+(that\s+)?you\s+(have|had)\s+no\s+(rules?|restrictions?|limits?|filters?)`), "injection:pretend_no_rules", 0.9},
	{regexp.MustCompile(`(?i)jailbreak|DAN\s*mode|developer\s*mode`), "injection:jailbreak", 0.9},
	{regexp.MustCompile(`(?i)(reveal|show|print|repeat|tell\s+me)\s+(your\s+)?(system\s+prompt|instructions|hidden\s+prompt)`), "exfiltration:system_prompt", 0.8},
	{regexp.MustCompile(`(?i)\b(api|secret|aws|gemini)\s*(key|token|secret|password)s?\b`), "exfiltration:credentials", 0.8},
	{regexp.MustCompile(`<\s*(script|iframe|object|embed|svg)\b`), "obfuscation:html", 0.6},
	{regexp.MustCompile(`!\[.*\]\(https?://`), "obfuscation:markdown_image", 0.4},
	{regexp.MustCompile(`(?i)\[/?INST\]|<\|im_start\|>|<\|im_end\|>|<\|system\|>`), "context:special_tokens", 0.9},
	{regexp.MustCompile(`(?i)###\s*(system|instruction|assistant)\s*:`), "context:role_markers", 0.7},
}

var sanitizePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\[/?INST\]|<\|im_start\|>|<\|im_end\|>|<\|system\|>`),
	regexp.MustCompile(`(?i)###\s*(system|instruction|assistant)\s*:`),
	regexp.MustCompile(`<\s*(script|iframe|object|embed|svg)\b[^>]*>`),
	regexp.MustCompile(`!\[.*?\]\(https?://[^)]+\)`),
}

// ScanInput scores message for injection attempts. The score is the
// strongest signal plus 0.1 for each additional one.
func ScanInput(message string) GuardResult {
	if strings.TrimSpace(message) == "" {
		return GuardResult{Sanitized: message}
	}

	var reasons []string
	maxWeight := 0.0
	for _, p := range injectionPatterns {
		if p.re.MatchString(message) {
			reasons = append(reasons, p.reason)
			if p.weight > maxWeight {
				maxWeight = p.weight
			}
		}
	}
	score := maxWeight
	if len(reasons) > 1 {
		score += float64(len(reasons)-1) * 0.1
	}
	if score > 1.0 {
		score = 1.0
	}

	res := GuardResult{Score: score, Reasons: reasons, Sanitized: message}
	switch {
	case score >= blockThreshold:
		res.Blocked = true
		res.Sanitized = ""
	case score >= warnThreshold:
		res.Sanitized = Sanitize(message)
	}
	return res
}

// Sanitize strips role markers and markup from message.
func Sanitize(message string) string {
	for _, re := range sanitizePatterns {
		message = re.ReplaceAllString(message, "")
	}
	return strings.TrimSpace(message)
}

var leakPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)my (system\s+)?prompt\s+(is|says|tells)`),
	regexp.MustCompile(`(?i)my instructions?\s+(are|say|tell|include)`),
	regexp.MustCompile(`(?i)(powered by|built on|running on)\s+(Gemini|Bedrock|Claude|GPT|OpenAI|Google|AWS)`),
	regexp.MustCompile(`(?i)(api[_\s]?key|secret[_\s]?key|access[_\s]?token)\s*[:=]\s*\S+`),
	regexp.MustCompile(`AKIA[A-Z0-9]{16}`),
	regexp.MustCompile(`(?i)(postgres|redis|mongodb)://\S+`),
}

// LeaksInternals reports whether a model reply discloses prompts,
// providers or credentials.
func LeaksInternals(reply string) bool {
	for _, re := range leakPatterns {
		if re.MatchString(reply) {
			return true
		}
	}
	return false
}
