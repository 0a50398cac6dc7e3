package editor

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type marks struct {
	bold   bool
	italic bool
	href   string
}

// Parse converts HTML markup into blocks. Unknown containers are descended
// into; unknown leaf elements become paragraphs of their text. The result
// always holds at least one block.
func Parse(content string) ([]Block, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, err
	}
	p := &parser{}
	p.container(doc.Find("body").First())
	if len(p.blocks) == 0 {
		p.blocks = []Block{{Kind: Paragraph}}
	}
	return p.blocks, nil
}

type parser struct {
	blocks []Block
	// loose collects inline content found directly in a container.
	loose []Run
}

func (p *parser) container(sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, child *goquery.Selection) {
		switch name := goquery.NodeName(child); name {
		case "#text", "strong", "b", "em", "i", "a", "span", "br", "code", "u", "s", "mark", "small", "sub", "sup":
			p.loose = appendInline(p.loose, child, marks{}, nil)
		case "#comment", "script", "style", "head", "title", "meta", "link":
		default:
			p.flushLoose()
			p.element(name, child)
		}
	})
	p.flushLoose()
}

func (p *parser) flushLoose() {
	if runs := normalizeRuns(p.loose); runs != nil {
		p.blocks = append(p.blocks, Block{Kind: Paragraph, Runs: runs})
	}
	p.loose = nil
}

func (p *parser) element(name string, sel *goquery.Selection) {
	switch name {
	case "p":
		p.textBlock(Paragraph, sel)
	case "h1":
		p.textBlock(Heading1, sel)
	case "h2":
		p.textBlock(Heading2, sel)
	case "h3", "h4", "h5", "h6":
		p.textBlock(Heading3, sel)
	case "ul":
		p.list(BulletItem, sel)
	case "ol":
		p.list(OrderedItem, sel)
	case "blockquote":
		p.quote(sel)
	case "img":
		p.image(sel)
	case "div", "section", "article", "main", "header", "footer", "figure", "body":
		p.container(sel)
	case "hr":
	default:
		p.textBlock(Paragraph, sel)
	}
}

func (p *parser) textBlock(kind Kind, sel *goquery.Selection) {
	var images []Block
	runs := normalizeRuns(appendInline(nil, sel, marks{}, &images))
	if runs != nil || len(images) == 0 {
		p.blocks = append(p.blocks, Block{Kind: kind, Runs: runs})
	}
	p.blocks = append(p.blocks, images...)
}

func (p *parser) list(kind Kind, sel *goquery.Selection) {
	sel.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		var images []Block
		var runs []Run
		var nested []*goquery.Selection
		li.Contents().Each(func(_ int, child *goquery.Selection) {
			switch goquery.NodeName(child) {
			case "ul", "ol":
				nested = append(nested, child)
			case "p":
				if len(runs) > 0 {
					runs = append(runs, Run{Text: " "})
				}
				runs = appendInline(runs, child, marks{}, &images)
			default:
				runs = appendInline(runs, child, marks{}, &images)
			}
		})
		p.blocks = append(p.blocks, Block{Kind: kind, Runs: normalizeRuns(runs)})
		p.blocks = append(p.blocks, images...)
		for _, n := range nested {
			if goquery.NodeName(n) == "ol" {
				p.list(OrderedItem, n)
			} else {
				p.list(BulletItem, n)
			}
		}
	})
}

func (p *parser) quote(sel *goquery.Selection) {
	inner := &parser{}
	inner.container(sel)
	for _, b := range inner.blocks {
		if b.IsText() {
			b.Kind = Quote
		}
		p.blocks = append(p.blocks, b)
	}
}

func (p *parser) image(sel *goquery.Selection) {
	src, _ := sel.Attr("src")
	if strings.TrimSpace(src) == "" {
		return
	}
	alt, _ := sel.Attr("alt")
	p.blocks = append(p.blocks, Block{Kind: Image, Src: strings.TrimSpace(src), Alt: alt})
}

// appendInline walks sel collecting text runs. Images found inline are lifted
// into images when non-nil and dropped otherwise.
func appendInline(runs []Run, sel *goquery.Selection, m marks, images *[]Block) []Run {
	sel.Each(func(_ int, node *goquery.Selection) {
		name := goquery.NodeName(node)
		switch name {
		case "#text":
			runs = append(runs, Run{Text: node.Text(), Bold: m.bold, Italic: m.italic, Href: m.href})
			return
		case "#comment", "script", "style":
			return
		case "br":
			runs = append(runs, Run{Text: " ", Bold: m.bold, Italic: m.italic, Href: m.href})
			return
		case "img":
			if images != nil {
				if src, ok := node.Attr("src"); ok && strings.TrimSpace(src) != "" {
					alt, _ := node.Attr("alt")
					*images = append(*images, Block{Kind: Image, Src: strings.TrimSpace(src), Alt: alt})
				}
			}
			return
		}
		inner := m
		switch name {
		case "strong", "b":
			inner.bold = true
		case "em", "i":
			inner.italic = true
		case "a":
			if href, ok := node.Attr("href"); ok {
				inner.href = strings.TrimSpace(href)
			}
		}
		node.Contents().Each(func(_ int, child *goquery.Selection) {
			runs = appendInline(runs, child, inner, images)
		})
	})
	return runs
}

// Render serializes blocks to HTML. Consecutive list items share one list
// element and consecutive quote blocks share one blockquote.
func Render(blocks []Block) string {
	var sb strings.Builder
	for i := 0; i < len(blocks); i++ {
		b := blocks[i]
		switch b.Kind {
		case BulletItem, OrderedItem:
			tag := "ul"
			if b.Kind == OrderedItem {
				tag = "ol"
			}
			sb.WriteString("<" + tag + ">")
			for ; i < len(blocks) && blocks[i].Kind == b.Kind; i++ {
				sb.WriteString("<li><p>")
				writeRuns(&sb, blocks[i].Runs)
				sb.WriteString("</p></li>")
			}
			i--
			sb.WriteString("</" + tag + ">")
		case Quote:
			sb.WriteString("<blockquote>")
			for ; i < len(blocks) && blocks[i].Kind == Quote; i++ {
				sb.WriteString("<p>")
				writeRuns(&sb, blocks[i].Runs)
				sb.WriteString("</p>")
			}
			i--
			sb.WriteString("</blockquote>")
		case Image:
			sb.WriteString(`<img src="` + html.EscapeString(b.Src) + `"`)
			if b.Alt != "" {
				sb.WriteString(` alt="` + html.EscapeString(b.Alt) + `"`)
			}
			sb.WriteString(">")
		default:
			tag := blockTag(b.Kind)
			sb.WriteString("<" + tag + ">")
			writeRuns(&sb, b.Runs)
			sb.WriteString("</" + tag + ">")
		}
	}
	return sb.String()
}

func blockTag(kind Kind) string {
	switch kind {
	case Heading1:
		return "h1"
	case Heading2:
		return "h2"
	case Heading3:
		return "h3"
	default:
		return "p"
	}
}

func writeRuns(sb *strings.Builder, runs []Run) {
	for _, r := range runs {
		text := html.EscapeString(r.Text)
		if r.Italic {
			text = "<em>" + text + "</em>"
		}
		if r.Bold {
			text = "<strong>" + text + "</strong>"
		}
		if r.Href != "" {
			text = `<a href="` + html.EscapeString(r.Href) + `">` + text + "</a>"
		}
		sb.WriteString(text)
	}
}
