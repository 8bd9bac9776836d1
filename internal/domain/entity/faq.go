package entity

import "time"

// FAQ is a question and answer saved from a topic chat by staff.
type FAQ struct {
	ID               string        `json:"id" firestore:"-"`
	PaperID          string        `json:"paper_id" firestore:"-"`
	TopicID          string        `json:"topic_id" firestore:"-"`
	QuestionText     string        `json:"question_text" firestore:"questionText"`
	AnswerText       string        `json:"answer_text" firestore:"answerText"`
	QuestionMediaURL *string       `json:"question_media_url" firestore:"questionMediaUrl"`
	AnswerMediaURL   *string       `json:"answer_media_url" firestore:"answerMediaUrl"`
	AnswerMediaType  MessageType   `json:"answer_media_type" firestore:"answerMediaType"`
	SourceMessageID  string        `json:"source_message_id,omitempty" firestore:"sourceMessageId,omitempty"`
	Provenance       FAQProvenance `json:"provenance" firestore:"provenance"`
}

type FAQProvenance struct {
	SavedByID string    `json:"saved_by_id" firestore:"savedById"`
	SavedAt   time.Time `json:"saved_at" firestore:"savedAt,serverTimestamp"`
}
