package robot

import (
	"fmt"

	go_json "github.com/goccy/go-json"
)

type wireMessage struct {
	MsgType    MsgType         `json:"msgtype"`
	Text       *wireText       `json:"text,omitempty"`
	Markdown   *wireMarkdown   `json:"markdown,omitempty"`
	ActionCard *wireActionCard `json:"actionCard,omitempty"`
	FeedCard   *wireFeedCard   `json:"feedCard,omitempty"`
	Link       *wireLink       `json:"link,omitempty"`
	At         *wireAt         `json:"at,omitempty"`
}

type wireText struct {
	Content string `json:"content"`
}

type wireMarkdown struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type wireAt struct {
	AtMobiles []string `json:"atMobiles"`
	AtUserIDs []string `json:"atUserIds"`
	IsAtAll   bool     `json:"isAtAll"`
}

type wireActionCard struct {
	Title          string       `json:"title"`
	Text           string       `json:"text"`
	SingleTitle    string       `json:"singleTitle,omitempty"`
	SingleURL      string       `json:"singleURL,omitempty"`
	BtnOrientation Orientation  `json:"btnOrientation,omitempty"`
	Btns           []wireButton `json:"btns,omitempty"`
}

type wireButton struct {
	Title     string `json:"title"`
	ActionURL string `json:"actionURL"`
}

type wireFeedCard struct {
	Links []wireFeedLink `json:"links"`
}

type wireFeedLink struct {
	Title      string `json:"title"`
	MessageURL string `json:"messageURL"`
	PicURL     string `json:"picURL"`
}

type wireLink struct {
	Text       string  `json:"text"`
	Title      string  `json:"title"`
	PicURL     *string `json:"picUrl"`
	MessageURL string  `json:"messageUrl"`
}

// Encode returns the wire JSON for m. It does not validate m.
func Encode(m Message) ([]byte, error) {
	m, err := Normalize(m)
	if err != nil {
		return nil, err
	}
	w, err := toWire(m)
	if err != nil {
		return nil, err
	}
	data, err := go_json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s message: %w", m.MsgType(), err)
	}
	return data, nil
}

func toWire(m Message) (*wireMessage, error) {
	switch m := m.(type) {
	case Text:
		return &wireMessage{
			MsgType: MsgTypeText,
			Text:    &wireText{Content: m.Content},
			At:      atToWire(m.At),
		}, nil
	case Markdown:
		return &wireMessage{
			MsgType:  MsgTypeMarkdown,
			Markdown: &wireMarkdown{Title: m.Title, Text: m.Text},
			At:       atToWire(m.At),
		}, nil
	case ActionCard:
		return &wireMessage{
			MsgType: MsgTypeActionCard,
			ActionCard: &wireActionCard{
				Title:       m.Title,
				Text:        m.Text,
				SingleTitle: m.SingleTitle,
				SingleURL:   m.SingleURL,
			},
		}, nil
	case MultiActionCard:
		btns := make([]wireButton, len(m.Buttons))
		for i, b := range m.Buttons {
			btns[i] = wireButton{Title: b.Title, ActionURL: b.ActionURL}
		}
		return &wireMessage{
			MsgType: MsgTypeActionCard,
			ActionCard: &wireActionCard{
				Title:          m.Title,
				Text:           m.Text,
				BtnOrientation: m.Orientation,
				Btns:           btns,
			},
		}, nil
	case FeedCard:
		links := make([]wireFeedLink, len(m.Links))
		for i, l := range m.Links {
			links[i] = wireFeedLink{Title: l.Title, MessageURL: l.MessageURL, PicURL: l.PicURL}
		}
		return &wireMessage{
			MsgType:  MsgTypeFeedCard,
			FeedCard: &wireFeedCard{Links: links},
		}, nil
	case Link:
		return &wireMessage{
			MsgType: MsgTypeLink,
			Link: &wireLink{
				Text:       m.Text,
				Title:      m.Title,
				PicURL:     m.PicURL,
				MessageURL: m.MessageURL,
			},
		}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownMsgType, m)
	}
}

func atToWire(at At) *wireAt {
	return &wireAt{
		AtMobiles: orEmpty(at.Mobiles),
		AtUserIDs: orEmpty(at.UserIDs),
		IsAtAll:   at.All,
	}
}

// orEmpty keeps empty lists serialized as [] instead of null.
func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Decode parses a wire JSON document into a Message. An actionCard with a
// singleTitle or singleURL decodes as ActionCard, otherwise as
// MultiActionCard. It does not validate the result.
func Decode(data []byte) (Message, error) {
	var w wireMessage
	if err := go_json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	var at At
	if w.At != nil {
		at = At{Mobiles: w.At.AtMobiles, UserIDs: w.At.AtUserIDs, All: w.At.IsAtAll}
	}

	switch w.MsgType {
	case MsgTypeText:
		if w.Text == nil {
			return nil, fmt.Errorf("%w: text message without text object", ErrMalformedMessage)
		}
		return Text{Content: w.Text.Content, At: at}, nil
	case MsgTypeMarkdown:
		if w.Markdown == nil {
			return nil, fmt.Errorf("%w: markdown message without markdown object", ErrMalformedMessage)
		}
		return Markdown{Title: w.Markdown.Title, Text: w.Markdown.Text, At: at}, nil
	case MsgTypeActionCard:
		ac := w.ActionCard
		if ac == nil {
			return nil, fmt.Errorf("%w: actionCard message without actionCard object", ErrMalformedMessage)
		}
		if ac.SingleTitle != "" || ac.SingleURL != "" {
			return ActionCard{Title: ac.Title, Text: ac.Text, SingleTitle: ac.SingleTitle, SingleURL: ac.SingleURL}, nil
		}
		buttons := make([]Button, len(ac.Btns))
		for i, b := range ac.Btns {
			buttons[i] = Button{Title: b.Title, ActionURL: b.ActionURL}
		}
		return MultiActionCard{Title: ac.Title, Text: ac.Text, Orientation: ac.BtnOrientation, Buttons: buttons}, nil
	case MsgTypeFeedCard:
		if w.FeedCard == nil {
			return nil, fmt.Errorf("%w: feedCard message without feedCard object", ErrMalformedMessage)
		}
		links := make([]FeedLink, len(w.FeedCard.Links))
		for i, l := range w.FeedCard.Links {
			links[i] = FeedLink{Title: l.Title, MessageURL: l.MessageURL, PicURL: l.PicURL}
		}
		return FeedCard{Links: links}, nil
	case MsgTypeLink:
		if w.Link == nil {
			return nil, fmt.Errorf("%w: link message without link object", ErrMalformedMessage)
		}
		return Link{Text: w.Link.Text, Title: w.Link.Title, PicURL: w.Link.PicURL, MessageURL: w.Link.MessageURL}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMsgType, w.MsgType)
	}
}
