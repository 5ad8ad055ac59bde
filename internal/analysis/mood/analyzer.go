package mood

import (
	"strings"
)

// Label names the vibe read from a conversation.
type Label string

const (
	Neutral      Label = "neutral"
	Flirty       Label = "flirty"
	Friendzone   Label = "friendzone"
	Manipulative Label = "manipulative"
	Overthinking Label = "overthinking"
	Heartbroken  Label = "heartbroken"
	Wholesome    Label = "wholesome"
)

// Labels lists every label in display order.
var Labels = []Label{Neutral, Flirty, Friendzone, Manipulative, Overthinking, Heartbroken, Wholesome}

// Decision is a mood reading with an intensity between 1 and 5.
type Decision struct {
	Mood      Label   `json:"mood"`
	Intensity float32 `json:"intensity"`
	Score     int     `json:"score"`
}

var keywordBuckets = map[Label][]string{
	Flirty: {
		"rizz", "flirt", "cute", "crush", "😘", "😍", "😉", "🥰", "date", "hot", "miss you", "babe",
		"wink", "good looking", "beautiful", "handsome", "ur so", "you're so",
	},
	Friendzone: {
		"friendzone", "friend zone", "just friends", "like a brother", "like a sister", "bro", "buddy",
		"best friend", "as a friend", "not like that", "platonic",
	},
	Manipulative: {
		"manipulat", "gaslight", "guilt trip", "you owe me", "if you loved me", "after all i did",
		"you're overreacting", "no one else will", "controlling", "red flag", "toxic", "love bomb",
	},
	Overthinking: {
		"overthink", "what if", "does this mean", "why didn't", "left on read", "seen zone", "double text",
		"should i text", "anxious", "confused", "mixed signals", "read too much", "am i wrong",
	},
	Heartbroken: {
		"heartbroken", "breakup", "broke up", "ghosted", "cry", "hurt", "sad", "miss them", "moved on",
		"lonely", "alone", "💔", "😭", "rejected",
	},
	Wholesome: {
		"wholesome", "healthy", "respect", "supportive", "proud of you", "thank you", "grateful", "kind",
		"green flag", "genuine", "caring", "🥹", "❤️",
	},
}

var questionBoost = map[Label]int{
	Overthinking: 2,
}

// Analyze reads the mood of a chat and the assistant's reading of it.
// The reply wins when it carries a clear signal; otherwise the chat itself decides.
func Analyze(chatText, reply string) Decision {
	chatScore := scoreText(chatText)
	replyScore := scoreText(reply)

	final := replyScore
	if final.Score == 0 && chatScore.Score > 0 {
		final = chatScore
	}
	if final.Score == 0 {
		return Decision{Mood: Neutral, Intensity: 1, Score: 0}
	}

	intensity := 1 + float32(final.Score)/4
	if final.Mood == Manipulative {
		intensity += 1
	}
	if intensity > 5 {
		intensity = 5
	}
	return Decision{Mood: final.Mood, Intensity: intensity, Score: final.Score}
}

// ParseLabel maps free text onto a known label.
func ParseLabel(raw string) (Label, bool) {
	normalized := Label(strings.ToLower(strings.TrimSpace(raw)))
	for _, l := range Labels {
		if l == normalized {
			return l, true
		}
	}
	return "", false
}

func scoreText(text string) Decision {
	normalized := strings.TrimSpace(strings.ToLower(text))
	if normalized == "" {
		return Decision{Mood: Neutral}
	}

	scores := make(map[Label]int)
	for label, keywords := range keywordBuckets {
		for _, word := range keywords {
			if strings.Contains(normalized, word) {
				scores[label] += 3
			}
		}
	}

	if questions := strings.Count(text, "?"); questions > 1 {
		scores[Overthinking] += questions * questionBoost[Overthinking]
	}

	best, bestScore := Neutral, 0
	for _, label := range Labels {
		if s := scores[label]; s > bestScore {
			best, bestScore = label, s
		}
	}
	return Decision{Mood: best, Score: bestScore}
}
