package model

import (
	"path"
	"time"
)

const (
	PostCollection   = "questions"
	AnswerCollection = "answers"

	FieldExpiresAt = "expires_at"
)

// Post is a time-limited user question. Its answers live in a sub-collection
// and are deleted together with it.
type Post struct {
	ID        string
	ExpiresAt time.Time
}

type Answer struct {
	ID     string
	PostID string
}

func PostPath(id string) string {
	return path.Join(PostCollection, id)
}

func AnswersPath(postID string) string {
	return path.Join(PostCollection, postID, AnswerCollection)
}

func AnswerPath(postID, answerID string) string {
	return path.Join(AnswersPath(postID), answerID)
}
