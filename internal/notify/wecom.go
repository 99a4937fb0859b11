package notify

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

const DefaultWeComURL = "https://qyapi.weixin.qq.com/cgi-bin/webhook/send"

type wecomText struct {
	Content             string   `json:"content"`
	MentionedList       []string `json:"mentioned_list,omitempty"`
	MentionedMobileList []string `json:"mentioned_mobile_list,omitempty"`
}

type wecomContent struct {
	Content string `json:"content"`
}

type wecomImage struct {
	Base64 string `json:"base64"`
	MD5    string `json:"md5"`
}

type wecomNews struct {
	Articles []Article `json:"articles"`
}

type wecomPayload struct {
	MsgType  string        `json:"msgtype"`
	Text     *wecomText    `json:"text,omitempty"`
	Markdown *wecomContent `json:"markdown,omitempty"`
	Image    *wecomImage   `json:"image,omitempty"`
	News     *wecomNews    `json:"news,omitempty"`
}

type wecomResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// WeCom posts to a WeChat Work group bot webhook.
type WeCom struct {
	endpoint  string
	http      JSONPoster
	converter *md.Converter
}

func NewWeCom(baseURL, key string, http JSONPoster) *WeCom {
	if baseURL == "" {
		baseURL = DefaultWeComURL
	}
	return &WeCom{
		endpoint:  baseURL + "?key=" + url.QueryEscape(key),
		http:      http,
		converter: md.NewConverter("", true, nil),
	}
}

func (w *WeCom) Name() string { return "wecom" }

// Deliver sends every message kind. HTML text is converted to markdown.
// The bot API returns no message id, so the id is always empty.
func (w *WeCom) Deliver(ctx context.Context, msg Message) (string, error) {
	payload, err := w.payload(msg)
	if err != nil {
		return "", err
	}
	var resp wecomResponse
	if err := w.http.PostJSON(ctx, w.endpoint, payload, &resp); err != nil {
		return "", fmt.Errorf("wecom send: %w", err)
	}
	if resp.ErrCode != 0 {
		return "", fmt.Errorf("wecom bot error %d: %s", resp.ErrCode, resp.ErrMsg)
	}
	return "", nil
}

func (w *WeCom) payload(msg Message) (wecomPayload, error) {
	switch m := msg.(type) {
	case Text:
		if m.HTML {
			content, err := w.HTMLToMarkdown(m.Content)
			if err != nil {
				return wecomPayload{}, fmt.Errorf("convert html: %w", err)
			}
			return wecomPayload{MsgType: string(KindMarkdown), Markdown: &wecomContent{Content: content}}, nil
		}
		return wecomPayload{MsgType: string(KindText), Text: &wecomText{
			Content:             m.Content,
			MentionedList:       m.MentionedList,
			MentionedMobileList: m.MentionedMobileList,
		}}, nil
	case Markdown:
		return wecomPayload{MsgType: string(KindMarkdown), Markdown: &wecomContent{Content: m.Content}}, nil
	case Image:
		sum := md5.Sum(m.Data)
		return wecomPayload{MsgType: string(KindImage), Image: &wecomImage{
			Base64: base64.StdEncoding.EncodeToString(m.Data),
			MD5:    hex.EncodeToString(sum[:]),
		}}, nil
	case News:
		return wecomPayload{MsgType: string(KindNews), News: &wecomNews{Articles: m.Articles}}, nil
	default:
		return wecomPayload{}, unsupported(w.Name(), msg)
	}
}

// HTMLToMarkdown keeps line breaks of newline-separated HTML.
func (w *WeCom) HTMLToMarkdown(html string) (string, error) {
	html = strings.ReplaceAll(html, "\n", "<br>")
	out, err := w.converter.ConvertString(html)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
