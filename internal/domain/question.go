package domain

type QuestionID string

// Author is captured when the question is submitted, not a live reference to the user.
type Author struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar,omitempty"`
}

// Question is a typed question of a room view.
// IsAnswered and IsHighlighted are independent flags.
type Question struct {
	ID            QuestionID `json:"id"`
	Content       string     `json:"content"`
	Author        Author     `json:"author"`
	IsAnswered    bool       `json:"is_answered"`
	IsHighlighted bool       `json:"is_highlighted"`
	LikeCount     int        `json:"like_count"`
}
