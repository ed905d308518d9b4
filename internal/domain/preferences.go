package domain

import "time"

// FeedbackStyle is how the user wants the assistant to respond.
type FeedbackStyle string

const (
	FeedbackSupportive  FeedbackStyle = "supportive"
	FeedbackDetailed    FeedbackStyle = "detailed"
	FeedbackBrief       FeedbackStyle = "brief"
	FeedbackChallenging FeedbackStyle = "challenging"
)

// Valid reports whether the style is one of the four known values.
func (s FeedbackStyle) Valid() bool {
	switch s {
	case FeedbackSupportive, FeedbackDetailed, FeedbackBrief, FeedbackChallenging:
		return true
	}
	return false
}

// UserPreferences is the long-lived record of what the assistant knows about
// a user's goals and style. Scalar fields are replaced on update; list and
// map fields only ever grow.
type UserPreferences struct {
	UserID                 UserID            `json:"user_id"`
	PurposeStatement       string            `json:"purpose_statement,omitempty"`
	LongTermGoals          []string          `json:"long_term_goals,omitempty"`
	KnownChallenges        []string          `json:"known_challenges,omitempty"`
	PreferredFeedbackStyle FeedbackStyle     `json:"preferred_feedback_style,omitempty"`
	PersonalGlossary       map[string]string `json:"personal_glossary,omitempty"`
	UpdatedAt              time.Time         `json:"updated_at"`
}

// DefaultPreferences returns the record used before a user has any stored
// preferences.
func DefaultPreferences(userID UserID) *UserPreferences {
	return &UserPreferences{
		UserID:                 userID,
		PreferredFeedbackStyle: FeedbackSupportive,
		PersonalGlossary:       map[string]string{},
	}
}

// Clone returns a deep copy so updates never mutate a stored record in
// place.
func (p *UserPreferences) Clone() *UserPreferences {
	out := *p
	out.LongTermGoals = append([]string(nil), p.LongTermGoals...)
	out.KnownChallenges = append([]string(nil), p.KnownChallenges...)
	out.PersonalGlossary = make(map[string]string, len(p.PersonalGlossary))
	for k, v := range p.PersonalGlossary {
		out.PersonalGlossary[k] = v
	}
	return &out
}
