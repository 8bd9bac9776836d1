package entity

import "time"

type PollOption struct {
	Text  string `json:"text" firestore:"text"`
	Count int    `json:"count" firestore:"count"`
}

type Poll struct {
	ID        string       `json:"id" firestore:"id"`
	PaperID   string       `json:"paper_id" firestore:"paperId"`
	TopicID   string       `json:"topic_id" firestore:"topicId"`
	Question  string       `json:"question" firestore:"question"`
	Options   []PollOption `json:"options" firestore:"options"`
	CreatorID string       `json:"creator_id" firestore:"creatorId"`
	Voters    []string     `json:"voters" firestore:"voters"`
	CreatedAt time.Time    `json:"created_at" firestore:"createdAt,serverTimestamp"`
}

const MinPollOptions = 2

func (p *Poll) HasVoted(uid string) bool {
	for _, v := range p.Voters {
		if v == uid {
			return true
		}
	}
	return false
}
