package ws

import (
	"time"
)

// Event types pushed to notification subscribers
const (
	EventArticleCreated   = "article.created"
	EventArticlePublished = "article.published"
	EventConnected        = "connected"
)

// Event is the JSON frame sent to websocket clients
type Event struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is a frame received from a client; its content is ignored
type ClientMessage struct {
	Type string `json:"type"`
}
