package models

// Card is keyed by (uuid, ts). Comments and Medias are stored as given; the
// medias list is not checked against the media table.
type Card struct {
	UUID     int64  `json:"uuid" dynamodbav:"uuid"`          // Partition key
	TS       string `json:"ts" dynamodbav:"ts"`              // Sort key
	Title    string `json:"title" dynamodbav:"title"`
	Subtitle string `json:"subtitle" dynamodbav:"subtitle"`
	Content  string `json:"content" dynamodbav:"content"`
	Icon     string `json:"icon" dynamodbav:"icon"`
	Comments []any  `json:"comments,omitempty" dynamodbav:"comments,omitempty"`
	Medias   []any  `json:"medias,omitempty" dynamodbav:"medias,omitempty"`
	Tags     string `json:"tags" dynamodbav:"tags"`
}

// CardKey is the primary key of a card.
type CardKey struct {
	UUID int64  `json:"uuid" dynamodbav:"uuid"`
	TS   string `json:"ts" dynamodbav:"ts"`
}

func (c Card) Key() CardKey {
	return CardKey{UUID: c.UUID, TS: c.TS}
}
