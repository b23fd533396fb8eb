package models

const (
	MediaPicture = "picture"
	MediaMovie   = "movie"
)

// Media is keyed by (ts, name).
type Media struct {
	TS   string `json:"ts" dynamodbav:"ts"`     // Partition key
	Name string `json:"name" dynamodbav:"name"` // Sort key
	Path string `json:"path" dynamodbav:"path"`
	URL  string `json:"url" dynamodbav:"url"`
	Type string `json:"type" dynamodbav:"type"`
}

type MediaKey struct {
	TS   string `json:"ts" dynamodbav:"ts"`
	Name string `json:"name" dynamodbav:"name"`
}

func (m Media) Key() MediaKey {
	return MediaKey{TS: m.TS, Name: m.Name}
}
