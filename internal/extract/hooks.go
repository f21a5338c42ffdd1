package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hyperifyio/newsextract/internal/article"
	"github.com/hyperifyio/newsextract/internal/dom"
)

// hooks run before the default title, meta and body extraction. Values a
// hook sets are kept; anything left empty falls through to the profile.
// naver_mainframe acts at fetch time through Engine.FrameURL.
var hooks = map[string]func(*page){
	"wechat_ssr":          wechatSSR,
	"tencent_window_data": tencentWindowData,
	"sohu_imgs_list":      sohuImgsList,
	"quora_answer":        quoraAnswer,
	"detik_cover":         detikCover,
	"naver_mainframe":     nil,
}

var (
	wechatSSRData     = regexp.MustCompile(`window\.__QMTPL_SSR_DATA__=(.+);</script>`)
	wechatPictureList = regexp.MustCompile(`window\.picture_page_info_list = (\[[\s\S]*?\])\.slice\(0,\s*20\);`)
	wechatCDNURL      = regexp.MustCompile(`cdn_url:\s*'([^']+)'`)
)

// wechatSSR handles picture-style posts whose body is rendered from an
// inline data blob instead of #js_content.
func wechatSSR(pg *page) {
	if !strings.Contains(pg.raw, "window.__QMTPL_SSR_DATA__") {
		return
	}
	var body []article.Fragment
	if m := wechatPictureList.FindStringSubmatch(pg.raw); m != nil {
		for _, u := range wechatCDNURL.FindAllStringSubmatch(m[1], -1) {
			body = append(body, article.Image(strings.ReplaceAll(u[1], `\x26amp;`, "&"), ""))
		}
	}
	var data struct {
		Title    string `json:"title"`
		Desc     string `json:"desc"`
		NickName string `json:"nick_name"`
	}
	if m := wechatSSRData.FindStringSubmatch(pg.raw); m != nil {
		blob := strings.ReplaceAll(strings.TrimSpace(m[1]), " * 1", "")
		if err := json.Unmarshal([]byte(blob), &data); err != nil {
			data.Title = jsStringField(blob, "title")
			data.Desc = jsStringField(blob, "desc")
			data.NickName = jsStringField(blob, "nick_name")
		}
	}
	lines := data.Desc
	if lines == "" {
		lines = data.Title
	}
	for _, line := range strings.Split(lines, "\n") {
		if t := dom.Normalize(line); t != "" {
			body = append(body, article.Text(t))
		}
	}
	pg.header.Title = dom.Normalize(data.Title)
	pg.meta.AuthorName = dom.Normalize(data.NickName)
	pg.body = body
	pg.replaced = true
}

// jsStringField pulls a quoted string property out of a JavaScript object
// literal that is not valid JSON.
func jsStringField(src, key string) string {
	re := regexp.MustCompile(`(?:^|[{,\s])["']?` + regexp.QuoteMeta(key) + `["']?\s*:\s*(?:"((?:[^"\\]|\\.)*)"|'((?:[^'\\]|\\.)*)')`)
	m := re.FindStringSubmatch(src)
	if m == nil {
		return ""
	}
	v := m[1]
	if v == "" {
		v = m[2]
	}
	var out string
	if err := json.Unmarshal([]byte(`"`+strings.ReplaceAll(v, `\'`, `'`)+`"`), &out); err != nil {
		return v
	}
	return out
}

var tencentData = regexp.MustCompile(`window\.DATA\s*=\s*(\{[\s\S]*?\});`)

// tencentWindowData reads byline fields from the window.DATA blob.
func tencentWindowData(pg *page) {
	m := tencentData.FindStringSubmatch(pg.raw)
	if m == nil {
		return
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(m[1]), &data); err != nil {
		return
	}
	pg.meta.AuthorName = scalar(data["media"])
	pg.meta.PublishTime = scalar(data["pubtime"])
}

var (
	sohuImgs          = regexp.MustCompile(`imgsList:\s*(\[[\s\S]*?\])\s*,`)
	jsonTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// sohuImgsList substitutes the obfuscated img src values in the body with
// the real URLs listed in the page script, in order. Without that list,
// images whose src is not an http(s) URL are dropped. Caption text next to
// an image is not kept.
func sohuImgsList(pg *page) {
	pg.dropCaptions = true
	urls := sohuImageURLs(pg.raw)
	if len(urls) == 0 {
		pg.media.Substitute = func(c string) string {
			l := strings.ToLower(c)
			if strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://") || strings.HasPrefix(l, "//") {
				return c
			}
			return ""
		}
		return
	}
	next := 0
	pg.media.Substitute = func(string) string {
		if next >= len(urls) {
			return ""
		}
		u := urls[next]
		next++
		return u
	}
}

func sohuImageURLs(raw string) []string {
	m := sohuImgs.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}
	var items []struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(jsonTrailingComma.ReplaceAllString(m[1], "$1")), &items); err != nil {
		return nil
	}
	var out []string
	for _, it := range items {
		if u := strings.TrimSpace(it.URL); u != "" {
			out = append(out, u)
		}
	}
	return out
}

var quoraPush = regexp.MustCompile(`(?s)push\(("\{\\"data\\":\{\\"answer\\":.*?\}\}")\);`)

type quoraAnswerData struct {
	Aid          json.RawMessage `json:"aid"`
	Qid          json.RawMessage `json:"qid"`
	CreationTime int64           `json:"creationTime"`
	Content      json.RawMessage `json:"content"`
	Author       struct {
		Names []struct {
			GivenName  string `json:"givenName"`
			FamilyName string `json:"familyName"`
		} `json:"names"`
		ProfileURL string `json:"profileUrl"`
	} `json:"author"`
	Question struct {
		Title          json.RawMessage `json:"title"`
		TitlePlaintext string          `json:"titlePlaintext"`
	} `json:"question"`
}

type quoraDoc struct {
	Sections []struct {
		Type  string `json:"type"`
		Spans []struct {
			Text      string `json:"text"`
			Modifiers struct {
				Image         string `json:"image"`
				DominantColor string `json:"dominant_color"`
			} `json:"modifiers"`
		} `json:"spans"`
	} `json:"sections"`
}

// quoraAnswer builds the whole article from the answer payload pushed into
// the page's data store. The payload is a JSON string holding JSON.
func quoraAnswer(pg *page) {
	ans := findQuoraAnswer(pg.raw)
	if ans == nil {
		return
	}
	pg.replaced = true
	pg.header.Title = quoraTitle(ans)
	if aid := scalarRaw(ans.Aid); aid != "" {
		pg.header.ArticleID = aid
	}
	if len(ans.Author.Names) > 0 {
		n := ans.Author.Names[0]
		pg.meta.AuthorName = strings.TrimSpace(n.GivenName + " " + n.FamilyName)
	}
	pg.meta.AuthorURL = ans.Author.ProfileURL
	if ans.CreationTime > 0 {
		pg.meta.PublishTime = time.UnixMicro(ans.CreationTime).UTC().Format("2006-01-02 15:04:05")
	}
	pg.meta.Extra = map[string]string{
		"question_id": scalarRaw(ans.Qid),
		"answer_id":   scalarRaw(ans.Aid),
	}

	var doc quoraDoc
	if !decodeNested(ans.Content, &doc) {
		return
	}
	for _, sec := range doc.Sections {
		for _, span := range sec.Spans {
			if img := span.Modifiers.Image; img != "" {
				pg.body = append(pg.body, article.Image(img, span.Modifiers.DominantColor))
				continue
			}
			if sec.Type == "image" {
				continue
			}
			if t := dom.Normalize(span.Text); t != "" {
				pg.body = append(pg.body, article.Text(t))
			}
		}
	}
}

func findQuoraAnswer(raw string) *quoraAnswerData {
	for _, m := range quoraPush.FindAllStringSubmatch(raw, -1) {
		var inner string
		if err := json.Unmarshal([]byte(m[1]), &inner); err != nil {
			continue
		}
		var payload struct {
			Data struct {
				Answer *quoraAnswerData `json:"answer"`
			} `json:"data"`
		}
		if err := json.Unmarshal([]byte(inner), &payload); err != nil {
			continue
		}
		if a := payload.Data.Answer; a != nil && len(a.Content) > 0 {
			return a
		}
	}
	return nil
}

func quoraTitle(ans *quoraAnswerData) string {
	var doc quoraDoc
	if decodeNested(ans.Question.Title, &doc) && len(doc.Sections) > 0 && len(doc.Sections[0].Spans) > 0 {
		if t := dom.Normalize(doc.Sections[0].Spans[0].Text); t != "" {
			return t
		}
	}
	return dom.Normalize(ans.Question.TitlePlaintext)
}

// decodeNested decodes raw into v, unwrapping one level of JSON-in-a-string.
func decodeNested(raw json.RawMessage, v any) bool {
	if len(raw) == 0 {
		return false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		raw = json.RawMessage(s)
	}
	return json.Unmarshal(raw, v) == nil
}

// detikCover prepends the lead image or video that sits outside the body
// container, captioned with the figure caption.
func detikCover(pg *page) {
	media := pg.doc.Find("div.detail__media")
	if media.Length() == 0 {
		return
	}
	caption := ""
	if c := media.Find("figcaption.detail__media-caption"); c.Length() > 0 {
		caption = dom.Text(c.Get(0))
	}
	if img, ok := media.Find("figure.detail__media-image > img").Attr("src"); ok && strings.TrimSpace(img) != "" {
		pg.lead = append(pg.lead, article.Image(dom.Resolve(pg.base, img), caption))
	}
	if v, ok := media.ChildrenFiltered("iframe").Attr("src"); ok && strings.TrimSpace(v) != "" {
		pg.lead = append(pg.lead, article.Video(dom.Resolve(pg.base, v), caption))
	}
}

func scalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%f", x), "0"), ".")
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func scalarRaw(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return strings.TrimSpace(str)
	}
	return s
}
