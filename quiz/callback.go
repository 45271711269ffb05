package quiz

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/korjavin/topicquizbot/models"
)

// Callback verbs. Tokens look like "a:12:3" and must stay under 64 bytes.
const (
	VerbAnswer    = "a"
	VerbToggle    = "m"
	VerbSubmit    = "s"
	VerbExplain   = "e"
	VerbTopic     = "t"
	VerbFrequency = "f"
	VerbProfile   = "p"
)

// Profile navigation targets.
const (
	ProfileTopic     = "topic"
	ProfileFrequency = "freq"
	ProfileBack      = "back"
)

// Token is a parsed callback token.
type Token struct {
	Verb       string
	QuestionID int64
	Index      int
	Arg        string
}

// ParseCallback decodes callback data. Anything unexpected yields
// models.ErrBadCallback.
func ParseCallback(data string) (Token, error) {
	parts := strings.Split(data, ":")
	tok := Token{Verb: parts[0]}
	args := parts[1:]

	bad := func() (Token, error) {
		return Token{}, fmt.Errorf("%w: %q", models.ErrBadCallback, data)
	}

	switch tok.Verb {
	case VerbAnswer, VerbToggle:
		if len(args) != 2 {
			return bad()
		}
		qid, ok := parseID(args[0])
		idx, err := strconv.Atoi(args[1])
		if !ok || err != nil || idx < 0 {
			return bad()
		}
		tok.QuestionID, tok.Index = qid, idx

	case VerbSubmit:
		if len(args) != 1 {
			return bad()
		}
		qid, ok := parseID(args[0])
		if !ok {
			return bad()
		}
		tok.QuestionID = qid

	case VerbExplain:
		switch len(args) {
		case 0:
		case 1:
			qid, ok := parseID(args[0])
			if !ok {
				return bad()
			}
			tok.QuestionID = qid
		default:
			return bad()
		}

	case VerbTopic:
		if len(args) != 1 {
			return bad()
		}
		idx, err := strconv.Atoi(args[0])
		if err != nil || idx < 0 || idx >= len(Topics) {
			return bad()
		}
		tok.Index = idx

	case VerbFrequency:
		if len(args) != 1 || !models.Frequency(args[0]).Valid() {
			return bad()
		}
		tok.Arg = args[0]

	case VerbProfile:
		if len(args) != 1 {
			return bad()
		}
		switch args[0] {
		case ProfileTopic, ProfileFrequency, ProfileBack:
			tok.Arg = args[0]
		default:
			return bad()
		}

	default:
		return bad()
	}
	return tok, nil
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}

func answerToken(qid int64, idx int) string {
	return fmt.Sprintf("%s:%d:%d", VerbAnswer, qid, idx)
}

func toggleToken(qid int64, idx int) string {
	return fmt.Sprintf("%s:%d:%d", VerbToggle, qid, idx)
}

func submitToken(qid int64) string {
	return fmt.Sprintf("%s:%d", VerbSubmit, qid)
}

func explainToken(qid int64) string {
	if qid == 0 {
		return VerbExplain
	}
	return fmt.Sprintf("%s:%d", VerbExplain, qid)
}

func topicToken(idx int) string {
	return fmt.Sprintf("%s:%d", VerbTopic, idx)
}

func frequencyToken(f models.Frequency) string {
	return VerbFrequency + ":" + string(f)
}

func profileToken(target string) string {
	return VerbProfile + ":" + target
}
