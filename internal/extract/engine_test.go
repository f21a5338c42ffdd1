package extract

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperifyio/newsextract/internal/article"
	"github.com/hyperifyio/newsextract/internal/profile"
)

func engineFor(t *testing.T, id string) *Engine {
	t.Helper()
	reg, err := profile.Default()
	if err != nil {
		t.Fatalf("profiles: %v", err)
	}
	p, err := reg.Get(id)
	if err != nil {
		t.Fatalf("profile %s: %v", id, err)
	}
	return New(p)
}

func TestParse_Toutiao(t *testing.T) {
	page := `<html><head><title>x</title></head><body>
<h1>Big news <span class="tag">hot</span></h1>
<div class="article-meta"><span>2024-12-30 10:00</span><span class="name"><a href="/c/user/42/">Reporter</a></span></div>
<article>
  <p>Opening paragraph.</p>
  <p><img data-src="https://p3.toutiaoimg.com/a.jpg" src="data:image/gif;base64,R0lGOD"></p>
  <h2>Section</h2>
  <ol><li>one</li><li>two</li></ol>
</article></body></html>`
	a, err := engineFor(t, "toutiao").Parse("https://www.toutiao.com/article/7434425099895210546/", []byte(page))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if a.Title != "Big news" {
		t.Fatalf("title: %q", a.Title)
	}
	if a.ArticleID != "7434425099895210546" || a.Platform != "toutiao" {
		t.Fatalf("id/platform: %q %q", a.ArticleID, a.Platform)
	}
	wantMeta := article.MetaInfo{AuthorName: "Reporter", AuthorURL: "https://www.toutiao.com/c/user/42/", PublishTime: "2024-12-30 10:00"}
	if !reflect.DeepEqual(a.Meta, wantMeta) {
		t.Fatalf("meta: %#v", a.Meta)
	}
	want := []string{"text:Opening paragraph.", "image:https://p3.toutiaoimg.com/a.jpg", "text:Section", "text:1. one", "text:2. two"}
	if got := texts(a.Fragments); !reflect.DeepEqual(got, want) {
		t.Fatalf("fragments: %v", got)
	}
	if !reflect.DeepEqual(a.Images, []string{"https://p3.toutiaoimg.com/a.jpg"}) || len(a.Texts) != 4 {
		t.Fatalf("projections: %v %v", a.Images, a.Texts)
	}
}

func TestParse_MissingTitleIsError(t *testing.T) {
	page := `<html><body><article><p>No heading here</p></article></body></html>`
	_, err := engineFor(t, "toutiao").Parse("https://www.toutiao.com/article/1/", []byte(page))
	if !errors.Is(err, ErrMissingTitle) {
		t.Fatalf("expected ErrMissingTitle, got %v", err)
	}
	var te *TitleError
	if !errors.As(err, &te) || te.URL != "https://www.toutiao.com/article/1/" {
		t.Fatalf("expected TitleError carrying url, got %#v", err)
	}
}

func TestParse_EmptyBodyIsNotError(t *testing.T) {
	page := `<html><body><h1>Loading</h1><article></article></body></html>`
	a, err := engineFor(t, "toutiao").Parse("https://www.toutiao.com/article/1/", []byte(page))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !a.IsEmpty() {
		t.Fatalf("expected empty article, got %v", a.Fragments)
	}
}

func TestParse_FallbackRootWhenSelectorMisses(t *testing.T) {
	page := `<html><body><h1 class="post_title">Title</h1><main><p>from main</p></main></body></html>`
	a, err := engineFor(t, "netease").Parse("https://www.163.com/news/article/ABC.html", []byte(page))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(a.Texts, []string{"from main"}) {
		t.Fatalf("texts: %v", a.Texts)
	}
}

func TestParse_BBCSkipsPlaceholders(t *testing.T) {
	page := `<html><body><article>
<h1>Headline</h1>
<figure><img src="https://www.bbc.com/bbcx/grey-placeholder.png"><img src="https://ichef.bbci.co.uk/news/480/photo.jpg" alt="Crowd"></figure>
<div data-component="byline-block"><p>Jane Reporter</p></div>
<div data-component="text-block"><p>Body text.</p></div>
<time datetime="2024-12-30T10:00:00Z">30 December</time>
</article></body></html>`
	a, err := engineFor(t, "bbc").Parse("https://www.bbc.com/news/articles/c0k3700zljjo", []byte(page))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(a.Images, []string{"https://ichef.bbci.co.uk/news/480/photo.jpg"}) {
		t.Fatalf("images: %v", a.Images)
	}
	if a.Meta.AuthorName != "Jane Reporter" || a.Meta.PublishTime != "2024-12-30T10:00:00Z" {
		t.Fatalf("meta: %#v", a.Meta)
	}
	for _, f := range a.Fragments {
		if f.Kind == article.KindImage && f.Desc != "Crowd" {
			t.Fatalf("expected alt as desc, got %q", f.Desc)
		}
	}
}

func TestParse_WechatSSR(t *testing.T) {
	page := `<html><head></head><body>
<script>var createTime = '2024-12-30 08:15';</script>
<script>window.__QMTPL_SSR_DATA__={"title":"Picture post","desc":"line one\nline two\n","nick_name":"Daily Pics"};</script>
<script>window.picture_page_info_list = [{cdn_url: 'https://mmbiz.qpic.cn/a.jpg?wx_fmt=jpeg\x26amp;from=appmsg'},{cdn_url: 'https://mmbiz.qpic.cn/b.jpg'}].slice(0, 20);</script>
<div id="js_content"><p>ignored when ssr data present</p></div>
</body></html>`
	a, err := engineFor(t, "wechat").Parse("https://mp.weixin.qq.com/s/abc", []byte(page))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if a.Title != "Picture post" || a.Meta.AuthorName != "Daily Pics" || a.Meta.PublishTime != "2024-12-30 08:15" {
		t.Fatalf("header/meta: %q %#v", a.Title, a.Meta)
	}
	want := []string{
		"image:https://mmbiz.qpic.cn/a.jpg?wx_fmt=jpeg&from=appmsg",
		"image:https://mmbiz.qpic.cn/b.jpg",
		"text:line one",
		"text:line two",
	}
	if got := texts(a.Fragments); !reflect.DeepEqual(got, want) {
		t.Fatalf("fragments: %v", got)
	}
}

func TestParse_WechatClassic(t *testing.T) {
	page := `<html><body>
<h1 id="activity-name"> Weekly digest </h1>
<span id="profileBt">Tech Daily</span>
<div id="meta_content"><span class="rich_media_meta rich_media_meta_text">Alice</span></div>
<div id="js_content"><section>Intro<p><img data-src="https://mmbiz.qpic.cn/c.png"></p></section><p>Outro</p></div>
</body></html>`
	a, err := engineFor(t, "wechat").Parse("https://mp.weixin.qq.com/s/xyz", []byte(page))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if a.Title != "Weekly digest" || a.Meta.AuthorName != "Tech Daily - Alice" {
		t.Fatalf("title/author: %q %q", a.Title, a.Meta.AuthorName)
	}
	want := []string{"text:Intro", "image:https://mmbiz.qpic.cn/c.png", "text:Outro"}
	if got := texts(a.Fragments); !reflect.DeepEqual(got, want) {
		t.Fatalf("fragments: %v", got)
	}
}

func TestParse_TencentWindowData(t *testing.T) {
	page := `<html><body>
<script>window.DATA = {"media": "Tencent Tech", "pubtime": "2024-12-30 10:00:00", "id": 7};</script>
<h1>Chip supply</h1>
<div class="rich_media_content"><p>First.</p><p><img src="//inews.gtimg.com/x.jpg"></p></div>
</body></html>`
	a, err := engineFor(t, "tencent").Parse("https://news.qq.com/rain/a/20241230A04Z9J00", []byte(page))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if a.Meta.AuthorName != "Tencent Tech" || a.Meta.PublishTime != "2024-12-30 10:00:00" {
		t.Fatalf("meta: %#v", a.Meta)
	}
	if !reflect.DeepEqual(a.Images, []string{"https://inews.gtimg.com/x.jpg"}) {
		t.Fatalf("images: %v", a.Images)
	}
}

func TestParse_SohuImgsList(t *testing.T) {
	page := `<html><body>
<script>var cfg = {imgsList: [{"url": "https://p.sohu.com/1.jpg",}, {"url": "https://p.sohu.com/2.jpg"},], other: 1};</script>
<h1>Sohu story</h1>
<article id="mp-editor"><p><img src="Zm9vYmFy">Photo: agency</p><p>Caption text</p><img src="YmF6"></article>
</body></html>`
	a, err := engineFor(t, "sohu").Parse("https://www.sohu.com/a/851286463_121924584", []byte(page))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []string{"image:https://p.sohu.com/1.jpg", "text:Caption text", "image:https://p.sohu.com/2.jpg"}
	if got := texts(a.Fragments); !reflect.DeepEqual(got, want) {
		t.Fatalf("fragments: %v", got)
	}
	if a.ArticleID != "851286463" {
		t.Fatalf("id: %q", a.ArticleID)
	}
}

func TestParse_SohuWithoutListDropsObfuscated(t *testing.T) {
	page := `<html><body><h1>Sohu story</h1>
<article id="mp-editor"><p><img src="Zm9vYmFy"></p><p><img src="//p.sohu.com/3.jpg"></p></article>
</body></html>`
	a, err := engineFor(t, "sohu").Parse("https://www.sohu.com/a/1_2", []byte(page))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(a.Images, []string{"https://p.sohu.com/3.jpg"}) {
		t.Fatalf("images: %v", a.Images)
	}
}

func TestParse_DetikCover(t *testing.T) {
	page := `<html><body><article class="detail">
<h1>Judul berita</h1>
<div class="detail__date">Senin, 30 Des 2024 10:00 WIB</div>
<div class="detail__media"><figure class="detail__media-image"><img src="https://akcdn.detik.net.id/cover.jpg"><figcaption class="detail__media-caption">Foto: ilustrasi</figcaption></figure></div>
<div class="detail__body-text itp_bodycontent"><p>Isi berita.</p></div>
</article></body></html>`
	a, err := engineFor(t, "detik").Parse("https://news.detik.com/berita/d-7632865/judul-berita", []byte(page))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(a.Fragments) != 2 {
		t.Fatalf("fragments: %v", a.Fragments)
	}
	cover := a.Fragments[0]
	if cover.Kind != article.KindImage || cover.Content != "https://akcdn.detik.net.id/cover.jpg" || cover.Desc != "Foto: ilustrasi" {
		t.Fatalf("cover: %#v", cover)
	}
	if a.Fragments[1].Content != "Isi berita." || a.Meta.PublishTime != "Senin, 30 Des 2024 10:00 WIB" {
		t.Fatalf("body/meta: %v %#v", a.Fragments[1], a.Meta)
	}
}

type quoraSpan struct {
	Text      string            `json:"text"`
	Modifiers map[string]string `json:"modifiers"`
}

type quoraSection struct {
	Type  string      `json:"type"`
	Spans []quoraSpan `json:"spans"`
}

func quoraPage(t *testing.T) []byte {
	t.Helper()
	content, _ := json.Marshal(map[string]any{"sections": []quoraSection{
		{Type: "plain", Spans: []quoraSpan{{Text: "First line of the answer."}}},
		{Type: "image", Spans: []quoraSpan{{Modifiers: map[string]string{"image": "https://qph.cf2.quoracdn.net/main-qimg-1", "dominant_color": "#112233"}}}},
		{Type: "plain", Spans: []quoraSpan{{Text: "Closing thought."}}},
	}})
	title, _ := json.Marshal(map[string]any{"sections": []quoraSection{{Type: "plain", Spans: []quoraSpan{{Text: "What is the best advice?"}}}}})
	type name struct {
		GivenName  string `json:"givenName"`
		FamilyName string `json:"familyName"`
	}
	var payload struct {
		Data struct {
			Answer struct {
				Aid          int64  `json:"aid"`
				Qid          int64  `json:"qid"`
				CreationTime int64  `json:"creationTime"`
				Content      string `json:"content"`
				Author       struct {
					Names      []name `json:"names"`
					ProfileURL string `json:"profileUrl"`
				} `json:"author"`
				Question struct {
					Title string `json:"title"`
				} `json:"question"`
			} `json:"answer"`
		} `json:"data"`
	}
	ans := &payload.Data.Answer
	ans.Aid = 113244679
	ans.Qid = 5501
	ans.CreationTime = 1700000000000000
	ans.Content = string(content)
	ans.Author.Names = []name{{GivenName: "Ada", FamilyName: "Lovelace"}}
	ans.Author.ProfileURL = "https://www.quora.com/profile/Ada"
	ans.Question.Title = string(title)
	inner, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	outer, _ := json.Marshal(string(inner))
	return []byte(`<html><head><title>Quora</title></head><body><script>window.ansFrontendGlobals.data.inlineQueryResults.results["x"].push(` +
		string(outer) + `);</script></body></html>`)
}

func TestParse_QuoraAnswer(t *testing.T) {
	a, err := engineFor(t, "quora").Parse("https://www.quora.com/What-is-the-best-advice/answers/113244679", quoraPage(t))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if a.Title != "What is the best advice?" || a.ArticleID != "113244679" {
		t.Fatalf("title/id: %q %q", a.Title, a.ArticleID)
	}
	wantMeta := article.MetaInfo{
		AuthorName:  "Ada Lovelace",
		AuthorURL:   "https://www.quora.com/profile/Ada",
		PublishTime: "2023-11-14 22:13:20",
		Extra:       map[string]string{"question_id": "5501", "answer_id": "113244679"},
	}
	if !reflect.DeepEqual(a.Meta, wantMeta) {
		t.Fatalf("meta: %#v", a.Meta)
	}
	want := []string{"text:First line of the answer.", "image:https://qph.cf2.quoracdn.net/main-qimg-1", "text:Closing thought."}
	if got := texts(a.Fragments); !reflect.DeepEqual(got, want) {
		t.Fatalf("fragments: %v", got)
	}
	if a.Fragments[1].Desc != "#112233" {
		t.Fatalf("image desc: %q", a.Fragments[1].Desc)
	}
}

func TestParse_QuoraWithoutPayloadFails(t *testing.T) {
	_, err := engineFor(t, "quora").Parse("https://www.quora.com/q/answers/1", []byte(`<html><body><h1>Sign in</h1></body></html>`))
	if !errors.Is(err, ErrMissingTitle) {
		t.Fatalf("expected ErrMissingTitle, got %v", err)
	}
}

func TestFrameURL_Naver(t *testing.T) {
	e := engineFor(t, "naver")
	u, ok := e.FrameURL([]byte(`<html><body><iframe id="mainFrame" src="/PostView.naver?blogId=sjh&amp;logNo=22"></iframe></body></html>`))
	if !ok || u != "https://blog.naver.com/PostView.naver?blogId=sjh&logNo=22" {
		t.Fatalf("frame url: %q ok=%v", u, ok)
	}
	if _, ok := e.FrameURL([]byte(`<html><body><div class="se-main-container"></div></body></html>`)); ok {
		t.Fatalf("expected no frame")
	}
	if _, ok := engineFor(t, "bbc").FrameURL([]byte(`<iframe id="mainFrame" src="/x"></iframe>`)); ok {
		t.Fatalf("profiles without frame must report false")
	}
}

func TestParse_StripRemovesOnlyListedFurniture(t *testing.T) {
	src := `profiles:
  - id: strip
    url_patterns: ['^https://example\.com/']
    title: h1
    content: main
    strip: ['div.cookie-banner']
`
	reg, err := profile.Load(strings.NewReader(src))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	p, _ := reg.Get("strip")
	page := `<html><body><h1>T</h1><main>
<div class="cookie-banner"><p>We use cookies</p></div>
<div class="recipe-cookie"><p>Cookies need butter.</p></div>
</main></body></html>`
	a, err := New(p).Parse("https://example.com/a", []byte(page))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := texts(a.Fragments); !reflect.DeepEqual(got, []string{"text:Cookies need butter."}) {
		t.Fatalf("fragments: %v", got)
	}
}
