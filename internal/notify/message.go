package notify

import (
	"errors"
	"fmt"
)

// ErrUnsupportedKind is returned by a sink that cannot deliver a message kind.
var ErrUnsupportedKind = errors.New("unsupported message kind")

type Kind string

const (
	KindText     Kind = "text"
	KindMarkdown Kind = "markdown"
	KindImage    Kind = "image"
	KindNews     Kind = "news"
)

// Message is one of Text, Markdown, Image or News.
type Message interface {
	Kind() Kind
	sealed()
}

// Text is a plain or HTML-formatted text message.
type Text struct {
	Content string
	// HTML marks Content as Telegram-style HTML.
	HTML                bool
	ReplyTo             string
	MentionedList       []string
	MentionedMobileList []string
}

type Markdown struct {
	Content string
}

// Image carries raw image bytes; sinks encode them as needed.
type Image struct {
	Data []byte
}

type News struct {
	Articles []Article
}

type Article struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
	PicURL      string `json:"picurl,omitempty"`
}

func (Text) Kind() Kind     { return KindText }
func (Markdown) Kind() Kind { return KindMarkdown }
func (Image) Kind() Kind    { return KindImage }
func (News) Kind() Kind     { return KindNews }

func (Text) sealed()     {}
func (Markdown) sealed() {}
func (Image) sealed()    {}
func (News) sealed()     {}

func unsupported(sink string, msg Message) error {
	kind := Kind("nil")
	if msg != nil {
		kind = msg.Kind()
	}
	return fmt.Errorf("%s: %w: %s", sink, ErrUnsupportedKind, kind)
}
