package robot

import "fmt"

// MsgType is the value of the top-level "msgtype" key.
type MsgType string

const (
	MsgTypeText       MsgType = "text"
	MsgTypeMarkdown   MsgType = "markdown"
	MsgTypeActionCard MsgType = "actionCard"
	MsgTypeFeedCard   MsgType = "feedCard"
	MsgTypeLink       MsgType = "link"
)

// Message is one of Text, Markdown, ActionCard, MultiActionCard, FeedCard or
// Link. The set is closed; other packages cannot add variants.
type Message interface {
	MsgType() MsgType
	// Validate reports the first missing required field.
	Validate() error
	robotMessage()
}

// Normalize returns m with pointer variants such as *Text dereferenced to
// their values. A nil message or nil pointer wraps ErrUnknownMsgType.
func Normalize(m Message) (Message, error) {
	switch v := m.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil message", ErrUnknownMsgType)
	case *Text:
		if v != nil {
			return *v, nil
		}
	case *Markdown:
		if v != nil {
			return *v, nil
		}
	case *ActionCard:
		if v != nil {
			return *v, nil
		}
	case *MultiActionCard:
		if v != nil {
			return *v, nil
		}
	case *FeedCard:
		if v != nil {
			return *v, nil
		}
	case *Link:
		if v != nil {
			return *v, nil
		}
	default:
		return m, nil
	}
	return nil, fmt.Errorf("%w: nil %T", ErrUnknownMsgType, m)
}

// At lists mention targets. All is independent of the two lists.
type At struct {
	Mobiles []string
	UserIDs []string
	All     bool
}

type Text struct {
	Content string
	At      At
}

func NewText(content string, at At) Text {
	return Text{Content: content, At: at}
}

func (Text) robotMessage()    {}
func (Text) MsgType() MsgType { return MsgTypeText }
func (m Text) Validate() error {
	if m.Content == "" {
		return &ValidationError{MsgType: MsgTypeText, Field: "content"}
	}
	return nil
}

type Markdown struct {
	// Title is shown in the conversation list.
	Title string
	Text  string
	At    At
}

func NewMarkdown(title, text string, at At) Markdown {
	return Markdown{Title: title, Text: text, At: at}
}

func (Markdown) robotMessage()    {}
func (Markdown) MsgType() MsgType { return MsgTypeMarkdown }
func (m Markdown) Validate() error {
	return requireFields(MsgTypeMarkdown, "title", m.Title, "text", m.Text)
}

// ActionCard is a card whose whole body links to a single URL.
type ActionCard struct {
	Title       string
	Text        string
	SingleTitle string
	SingleURL   string
}

func NewActionCard(title, text, buttonTitle, buttonURL string) ActionCard {
	return ActionCard{Title: title, Text: text, SingleTitle: buttonTitle, SingleURL: buttonURL}
}

func (ActionCard) robotMessage()    {}
func (ActionCard) MsgType() MsgType { return MsgTypeActionCard }
func (m ActionCard) Validate() error {
	return requireFields(MsgTypeActionCard,
		"title", m.Title,
		"text", m.Text,
		"singleTitle", m.SingleTitle,
		"singleURL", m.SingleURL,
	)
}

// Orientation is the button layout of a MultiActionCard.
type Orientation string

const (
	Vertical   Orientation = "0"
	Horizontal Orientation = "1"
)

type Button struct {
	Title     string
	ActionURL string
}

// MultiActionCard is a card with independently linked buttons.
type MultiActionCard struct {
	Title       string
	Text        string
	Orientation Orientation
	Buttons     []Button
}

func NewMultiActionCard(title, text string, orientation Orientation, buttons ...Button) MultiActionCard {
	return MultiActionCard{Title: title, Text: text, Orientation: orientation, Buttons: buttons}
}

func (MultiActionCard) robotMessage()    {}
func (MultiActionCard) MsgType() MsgType { return MsgTypeActionCard }
func (m MultiActionCard) Validate() error {
	if err := requireFields(MsgTypeActionCard, "title", m.Title, "text", m.Text); err != nil {
		return err
	}
	if m.Orientation != Vertical && m.Orientation != Horizontal {
		return &ValidationError{MsgType: MsgTypeActionCard, Field: "btnOrientation"}
	}
	for _, b := range m.Buttons {
		if err := requireFields(MsgTypeActionCard, "btns.title", b.Title, "btns.actionURL", b.ActionURL); err != nil {
			return err
		}
	}
	return nil
}

type FeedLink struct {
	Title      string
	MessageURL string
	PicURL     string
}

type FeedCard struct {
	Links []FeedLink
}

func NewFeedCard(links ...FeedLink) FeedCard {
	return FeedCard{Links: links}
}

func (FeedCard) robotMessage()    {}
func (FeedCard) MsgType() MsgType { return MsgTypeFeedCard }
func (m FeedCard) Validate() error {
	if len(m.Links) == 0 {
		return &ValidationError{MsgType: MsgTypeFeedCard, Field: "links"}
	}
	for _, l := range m.Links {
		err := requireFields(MsgTypeFeedCard,
			"links.title", l.Title,
			"links.messageURL", l.MessageURL,
			"links.picURL", l.PicURL,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// Link is a link card. A nil PicURL is sent as an explicit null.
type Link struct {
	Text       string
	Title      string
	PicURL     *string
	MessageURL string
}

func NewLink(title, text, messageURL string, picURL *string) Link {
	return Link{Text: text, Title: title, PicURL: picURL, MessageURL: messageURL}
}

func (Link) robotMessage()    {}
func (Link) MsgType() MsgType { return MsgTypeLink }
func (m Link) Validate() error {
	return requireFields(MsgTypeLink, "text", m.Text, "title", m.Title, "messageUrl", m.MessageURL)
}

// requireFields takes name/value pairs.
func requireFields(t MsgType, pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return &ValidationError{MsgType: t, Field: pairs[i]}
		}
	}
	return nil
}
