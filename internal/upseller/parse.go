// Package upseller reads the order listing of the Upseller panel.
//
// ParsePage turns one rendered page into row blocks. The preferred layout is
// the bordered order table, where every order row (.my_table_border) is
// preceded by a header row (tr.top_row) carrying the platform id "#UP…" and
// the seller account. Pages without that layout fall back to generic tables,
// then to list-like elements, each yielding unsegmented blocks.
package upseller

import (
	"fmt"
	"io"
	"regexp"
	"salesledger/internal/accessor"
	"salesledger/internal/money"
	"salesledger/internal/sale"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxBorderedRows = 400
	maxTables       = 8
	maxTableRows    = 200
	maxListItems    = 200

	// how many siblings back a header row is looked for
	topRowLookback = 5
)

var (
	upsellerIDRegex   = regexp.MustCompile(`(?i)#UP[0-9A-Z]+`)
	itemQuantityRegex = regexp.MustCompile(`(?i)(?:x|×)\s*(\d+)`)
	mercadoLibreRegex = regexp.MustCompile(`(?i)mercado\s*libre`)
	currencyRegex     = regexp.MustCompile(`(?i)R\$`)
)

// Page is one parsed order listing page.
type Page struct {
	Blocks []accessor.RowBlock
	// Layout is "bordered" for the order table, "table" or "list" for the
	// fallbacks.
	Layout string
	// HasNext is true when the pager shows an enabled "next" control.
	HasNext bool
	// OnFirst is true when the first pager item is the active one, or when the
	// page has no pager at all.
	OnFirst bool
}

func ParsePage(r io.Reader) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Page{}, fmt.Errorf("parse html: %w", err)
	}
	return ParseDocument(doc), nil
}

func ParseDocument(doc *goquery.Document) Page {
	page := Page{
		HasNext: doc.Find("li.ant-pagination-next:not(.ant-pagination-disabled)").Length() > 0,
		OnFirst: true,
	}
	if first := doc.Find("li.ant-pagination-item-1"); first.Length() > 0 {
		page.OnFirst = first.HasClass("ant-pagination-item-active")
	}

	bordered := doc.Find(".my_table_border")
	if bordered.Length() > 0 {
		page.Layout = "bordered"
		bordered.EachWithBreak(func(i int, row *goquery.Selection) bool {
			if i >= maxBorderedRows {
				return false
			}
			if block, ok := parseBorderedRow(row); ok {
				page.Blocks = append(page.Blocks, block)
			}
			return true
		})
		return page
	}

	page.Layout = "table"
	page.Blocks = parseTables(doc)
	if len(page.Blocks) == 0 {
		page.Layout = "list"
		page.Blocks = parseLists(doc)
	}
	return page
}

func precedingTopRow(row *goquery.Selection) *goquery.Selection {
	prev := row.Prev()
	for i := 0; i < topRowLookback && prev.Length() > 0; i++ {
		if prev.HasClass("top_row") {
			return prev
		}
		prev = prev.Prev()
	}
	return nil
}

func topRowID(top *goquery.Selection) string {
	text := cleanText(top.Find("a").First())
	if text == "" {
		text = cleanText(top)
	}
	return strings.ToUpper(upsellerIDRegex.FindString(text))
}

func topRowMeta(top *goquery.Selection) (conta, plataforma string) {
	conta = attrOrText(top.Find(".tr_top_content .mr_10 span[title]").First(), "title")

	var candidates []string
	top.Find(".tr_top_content .mr_10 span").Each(func(_ int, span *goquery.Selection) {
		if t := cleanText(span); t != "" {
			candidates = append(candidates, t)
		}
	})
	for _, c := range candidates {
		if mercadoLibreRegex.MatchString(c) {
			return conta, CanonicalPlatform(c)
		}
	}
	if len(candidates) > 0 {
		plataforma = CanonicalPlatform(candidates[len(candidates)-1])
	}
	return conta, plataforma
}

func parseQuantity(text string) string {
	m := itemQuantityRegex.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return ""
	}
	return fmt.Sprintf("x%d", n)
}

func skuOf(sel *goquery.Selection) string {
	return attrOrText(sel.Find(".line_overflow_2 a[title]").First(), "title")
}

func parseItem(block *goquery.Selection) (sale.Item, bool) {
	item := sale.Item{
		Sku:        skuOf(block),
		Quantidade: parseQuantity(cleanText(block.Find("b").First())),
		Preco:      money.FirstAmount(innerText(block)),
	}
	block.Find(".flex_1").First().Children().EachWithBreak(func(_ int, child *goquery.Selection) bool {
		t := cleanText(child)
		if t == "" || t == item.Sku || currencyRegex.MatchString(t) || itemQuantityRegex.MatchString(t) {
			return true
		}
		item.Variacao = t
		return false
	})
	ok := item.Sku != "" || item.Preco != "" || item.Quantidade != "" || item.Variacao != ""
	return item, ok
}

func productCodes(cell *goquery.Selection) []string {
	var codes []string
	cell.Find(".line_overflow_2 a[title]").Each(func(_ int, a *goquery.Selection) {
		if code := attrOrText(a, "title"); code != "" {
			codes = append(codes, code)
		}
	})
	return codes
}

func parseItems(cell *goquery.Selection) []sale.Item {
	var items []sale.Item
	cell.Find(".ml_12.flex.mb_20").Each(func(_ int, block *goquery.Selection) {
		if item, ok := parseItem(block); ok {
			items = append(items, item)
		}
	})
	if len(items) > 0 {
		return items
	}
	for _, code := range productCodes(cell) {
		items = append(items, sale.Item{Sku: code})
	}
	return items
}

func parseBorderedRow(row *goquery.Selection) (accessor.RowBlock, bool) {
	var block accessor.RowBlock
	if top := precedingTopRow(row); top != nil {
		block.StructuralID = topRowID(top)
		block.Conta, block.Plataforma = topRowMeta(top)
	}

	tds := row.Find("td")
	tds.Each(func(_ int, td *goquery.Selection) {
		if t := innerText(td); t != "" {
			block.Cells = append(block.Cells, t)
		}
	})
	if tds.Length() > 0 {
		productCell := tds.First()
		block.ProductCodes = productCodes(productCell)
		block.Items = parseItems(productCell)
	}

	if len(block.Cells) == 0 {
		if t := innerText(row); t != "" {
			block.Cells = []string{t}
		}
	}

	ok := len(block.Cells) > 0 || block.StructuralID != "" || len(block.Items) > 0
	return block, ok
}

func parseTables(doc *goquery.Document) []accessor.RowBlock {
	var blocks []accessor.RowBlock
	doc.Find("table").EachWithBreak(func(ti int, table *goquery.Selection) bool {
		if ti >= maxTables {
			return false
		}
		table.Find("tbody tr").EachWithBreak(func(ri int, tr *goquery.Selection) bool {
			if ri >= maxTableRows {
				return false
			}
			var cells []string
			tr.Find("td").Each(func(_ int, td *goquery.Selection) {
				if t := cleanText(td); t != "" {
					cells = append(cells, t)
				}
			})
			if len(cells) == 0 {
				if t := cleanText(tr); t != "" {
					cells = []string{t}
				}
			}
			if len(cells) > 0 {
				blocks = append(blocks, accessor.RowBlock{Cells: cells})
			}
			return true
		})
		return true
	})
	return blocks
}

func parseLists(doc *goquery.Document) []accessor.RowBlock {
	var blocks []accessor.RowBlock
	doc.Find("[role='row'], li, .row").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if len(blocks) >= maxListItems {
			return false
		}
		if t := cleanText(el); t != "" {
			blocks = append(blocks, accessor.RowBlock{Cells: []string{t}})
		}
		return true
	})
	return blocks
}
