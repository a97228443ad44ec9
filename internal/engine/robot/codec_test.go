package robot

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func ptr[T any](v T) *T { return &v }

func jsonValue(t *testing.T, data []byte) any {
	t.Helper()
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("invalid JSON %s: %v", data, err)
	}
	return v
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{
			name: "text without mentions",
			msg:  NewText("hello", At{}),
			want: `{"msgtype":"text","text":{"content":"hello"},"at":{"atMobiles":[],"atUserIds":[],"isAtAll":false}}`,
		},
		{
			name: "text at all with empty lists",
			msg:  NewText("hello", At{All: true}),
			want: `{"msgtype":"text","text":{"content":"hello"},"at":{"atMobiles":[],"atUserIds":[],"isAtAll":true}}`,
		},
		{
			name: "markdown with mentions",
			msg:  NewMarkdown("Deploy", "### done", At{Mobiles: []string{"13800000000"}, UserIDs: []string{"u1", "u2"}}),
			want: `{"msgtype":"markdown","markdown":{"title":"Deploy","text":"### done"},"at":{"atMobiles":["13800000000"],"atUserIds":["u1","u2"],"isAtAll":false}}`,
		},
		{
			name: "single action card",
			msg:  NewActionCard("Release", "v1.2.0 is out", "Read more", "https://example.com/r"),
			want: `{"msgtype":"actionCard","actionCard":{"title":"Release","text":"v1.2.0 is out","singleTitle":"Read more","singleURL":"https://example.com/r"}}`,
		},
		{
			name: "multi action card",
			msg: NewMultiActionCard("Vote", "Ship it?", Horizontal,
				Button{Title: "Yes", ActionURL: "https://example.com/y"},
				Button{Title: "No", ActionURL: "https://example.com/n"},
			),
			want: `{"msgtype":"actionCard","actionCard":{"title":"Vote","text":"Ship it?","btnOrientation":"1","btns":[{"title":"Yes","actionURL":"https://example.com/y"},{"title":"No","actionURL":"https://example.com/n"}]}}`,
		},
		{
			name: "vertical multi action card",
			msg:  NewMultiActionCard("Vote", "Ship it?", Vertical, Button{Title: "Yes", ActionURL: "https://example.com/y"}),
			want: `{"msgtype":"actionCard","actionCard":{"title":"Vote","text":"Ship it?","btnOrientation":"0","btns":[{"title":"Yes","actionURL":"https://example.com/y"}]}}`,
		},
		{
			name: "feed card",
			msg: NewFeedCard(
				FeedLink{Title: "One", MessageURL: "https://example.com/1", PicURL: "https://example.com/1.png"},
				FeedLink{Title: "Two", MessageURL: "https://example.com/2", PicURL: "https://example.com/2.png"},
			),
			want: `{"msgtype":"feedCard","feedCard":{"links":[{"title":"One","messageURL":"https://example.com/1","picURL":"https://example.com/1.png"},{"title":"Two","messageURL":"https://example.com/2","picURL":"https://example.com/2.png"}]}}`,
		},
		{
			name: "link without picture keeps explicit null",
			msg:  NewLink("Title", "Body", "https://example.com", nil),
			want: `{"msgtype":"link","link":{"text":"Body","title":"Title","picUrl":null,"messageUrl":"https://example.com"}}`,
		},
		{
			name: "link with picture",
			msg:  NewLink("Title", "Body", "https://example.com", ptr("https://example.com/p.png")),
			want: `{"msgtype":"link","link":{"text":"Body","title":"Title","picUrl":"https://example.com/p.png","messageUrl":"https://example.com"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.msg)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if diff := cmp.Diff(jsonValue(t, []byte(tt.want)), jsonValue(t, got)); diff != "" {
				t.Errorf("Encode() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeNil(t *testing.T) {
	if _, err := Encode(nil); !errors.Is(err, ErrUnknownMsgType) {
		t.Errorf("Encode(nil) error = %v, want %v", err, ErrUnknownMsgType)
	}
}

func TestEncodePointerVariants(t *testing.T) {
	values := []Message{
		NewText("hello", At{All: true}),
		NewMarkdown("Deploy", "### done", At{}),
		NewActionCard("Release", "v1.2.0 is out", "Read more", "https://example.com/r"),
		NewMultiActionCard("Vote", "Ship it?", Vertical, Button{Title: "Yes", ActionURL: "https://example.com/y"}),
		NewFeedCard(FeedLink{Title: "a", MessageURL: "https://example.com/a", PicURL: "https://example.com/a.png"}),
		NewLink("t", "x", "https://example.com", nil),
	}
	for _, v := range values {
		t.Run(string(v.MsgType()), func(t *testing.T) {
			var p Message
			switch v := v.(type) {
			case Text:
				p = &v
			case Markdown:
				p = &v
			case ActionCard:
				p = &v
			case MultiActionCard:
				p = &v
			case FeedCard:
				p = &v
			case Link:
				p = &v
			}

			want, err := Encode(v)
			if err != nil {
				t.Fatalf("Encode(%T) error = %v", v, err)
			}
			got, err := Encode(p)
			if err != nil {
				t.Fatalf("Encode(%T) error = %v", p, err)
			}
			if diff := cmp.Diff(jsonValue(t, want), jsonValue(t, got)); diff != "" {
				t.Errorf("pointer encoding mismatch (-value +pointer):\n%s", diff)
			}
		})
	}
}

func TestNilPointerMessages(t *testing.T) {
	for _, m := range []Message{(*Text)(nil), (*Markdown)(nil), (*ActionCard)(nil), (*MultiActionCard)(nil), (*FeedCard)(nil), (*Link)(nil)} {
		if _, err := Normalize(m); !errors.Is(err, ErrUnknownMsgType) {
			t.Errorf("Normalize(%T) error = %v, want %v", m, err, ErrUnknownMsgType)
		}
		if _, err := Encode(m); !errors.Is(err, ErrUnknownMsgType) {
			t.Errorf("Encode(%T) error = %v, want %v", m, err, ErrUnknownMsgType)
		}
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Message
		wantErr error
	}{
		{
			name: "text",
			in:   `{"msgtype":"text","text":{"content":"hi"},"at":{"atMobiles":["138"],"isAtAll":true}}`,
			want: Text{Content: "hi", At: At{Mobiles: []string{"138"}, All: true}},
		},
		{
			name: "text without at",
			in:   `{"msgtype":"text","text":{"content":"hi"}}`,
			want: Text{Content: "hi"},
		},
		{
			name: "markdown",
			in:   `{"msgtype":"markdown","markdown":{"title":"T","text":"# x"}}`,
			want: Markdown{Title: "T", Text: "# x"},
		},
		{
			name: "single action card",
			in:   `{"msgtype":"actionCard","actionCard":{"title":"T","text":"x","singleTitle":"go","singleURL":"https://example.com"}}`,
			want: ActionCard{Title: "T", Text: "x", SingleTitle: "go", SingleURL: "https://example.com"},
		},
		{
			name: "multi action card",
			in:   `{"msgtype":"actionCard","actionCard":{"title":"T","text":"x","btnOrientation":"1","btns":[{"title":"a","actionURL":"https://a"}]}}`,
			want: MultiActionCard{Title: "T", Text: "x", Orientation: Horizontal, Buttons: []Button{{Title: "a", ActionURL: "https://a"}}},
		},
		{
			name: "feed card",
			in:   `{"msgtype":"feedCard","feedCard":{"links":[{"title":"a","messageURL":"https://a","picURL":"https://a.png"}]}}`,
			want: FeedCard{Links: []FeedLink{{Title: "a", MessageURL: "https://a", PicURL: "https://a.png"}}},
		},
		{
			name: "link with null picture",
			in:   `{"msgtype":"link","link":{"text":"b","title":"t","picUrl":null,"messageUrl":"https://m"}}`,
			want: Link{Text: "b", Title: "t", MessageURL: "https://m"},
		},
		{
			name: "link with picture",
			in:   `{"msgtype":"link","link":{"text":"b","title":"t","picUrl":"https://p","messageUrl":"https://m"}}`,
			want: Link{Text: "b", Title: "t", PicURL: ptr("https://p"), MessageURL: "https://m"},
		},
		{
			name:    "unknown msgtype",
			in:      `{"msgtype":"image"}`,
			wantErr: ErrUnknownMsgType,
		},
		{
			name:    "missing variant object",
			in:      `{"msgtype":"link"}`,
			wantErr: ErrMalformedMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.in))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Decode() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeInvalidJSON(t *testing.T) {
	if _, err := Decode([]byte(`{"msgtype":`)); err == nil {
		t.Error("Decode() expected error, got none")
	}
}

func TestLinkNullPictureSurvivesDecodeEncode(t *testing.T) {
	const in = `{"msgtype":"link","link":{"text":"b","title":"t","picUrl":null,"messageUrl":"https://m"}}`

	msg, err := Decode([]byte(in))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	out, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if diff := cmp.Diff(jsonValue(t, []byte(in)), jsonValue(t, out)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		msg       Message
		wantField string
	}{
		{name: "text ok", msg: NewText("x", At{All: true})},
		{name: "text empty", msg: NewText("", At{}), wantField: "content"},
		{name: "markdown no title", msg: NewMarkdown("", "x", At{}), wantField: "title"},
		{name: "action card no url", msg: NewActionCard("t", "x", "go", ""), wantField: "singleURL"},
		{name: "multi card bad orientation", msg: NewMultiActionCard("t", "x", "2"), wantField: "btnOrientation"},
		{name: "multi card no buttons ok", msg: NewMultiActionCard("t", "x", Vertical)},
		{
			name:      "multi card button without url",
			msg:       NewMultiActionCard("t", "x", Vertical, Button{Title: "a"}),
			wantField: "btns.actionURL",
		},
		{name: "feed card empty", msg: NewFeedCard(), wantField: "links"},
		{
			name:      "feed card link without picture",
			msg:       NewFeedCard(FeedLink{Title: "a", MessageURL: "https://a"}),
			wantField: "links.picURL",
		},
		{name: "link without target", msg: NewLink("t", "x", "", nil), wantField: "messageUrl"},
		{name: "link without picture ok", msg: NewLink("t", "x", "https://m", nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Validate() field = %v, want %v", verr.Field, tt.wantField)
			}
			if verr.MsgType != tt.msg.MsgType() {
				t.Errorf("Validate() msgtype = %v, want %v", verr.MsgType, tt.msg.MsgType())
			}
		})
	}
}
