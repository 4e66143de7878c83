package utils

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const mediaVoicePrefix = "/api/media/chat/voice/"

// EnhanceHTMLContent 为图片增加懒加载属性，并把单独成段的语音链接转换为播放器
func EnhanceHTMLContent(htmlStr string) string {
	if htmlStr == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return htmlStr
	}

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		s.SetAttr("referrerpolicy", "no-referrer")
		s.SetAttr("loading", "lazy")
	})

	doc.Find("p").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if strings.Contains(text, " ") {
			return
		}

		src := text
		if idx := strings.Index(text, mediaVoicePrefix); idx > 0 {
			// 绝对地址只保留同源路径
			src = text[idx:]
		}
		if strings.HasPrefix(src, mediaVoicePrefix) {
			s.ReplaceWithHtml(`<audio controls preload="none" src="` + src + `"></audio>`)
		}
	})

	html, _ := doc.Find("body").Html()
	if html == "" {
		html, _ = doc.Html()
	}
	return html
}
