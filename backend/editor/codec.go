package editor

import (
	"fmt"
	"strconv"
	"strings"
)

// 独自マークダウン方言のマーカー文字
// ホストアプリのリテラルテキストとの衝突を避けるため標準Markdownとは異なる
const (
	markerBold      = '*'
	markerItalic    = '^'
	markerUnderline = '_'
	markerStrike    = '~'
)

func markerFor(c byte) (Mark, bool) {
	switch c {
	case markerBold:
		return MarkBold, true
	case markerItalic:
		return MarkItalic, true
	case markerUnderline:
		return MarkUnderline, true
	case markerStrike:
		return MarkStrike, true
	}
	return "", false
}

func markerChar(m Mark) byte {
	switch m {
	case MarkBold:
		return markerBold
	case MarkItalic:
		return markerItalic
	case MarkUnderline:
		return markerUnderline
	case MarkStrike:
		return markerStrike
	}
	return 0
}

// ------------------------------------------------------------
// エンコード
// ------------------------------------------------------------

// Encode はドキュメントをマークダウン方言の文字列に変換する
// FormattingEngineが生成したドキュメントに対してDecodeと可逆
func Encode(doc Document) string {
	var lines []string
	for _, b := range doc.Blocks {
		switch b.Kind {
		case KindHeading1:
			lines = append(lines, "# "+encodeSpans(b.Spans))
		case KindHeading2:
			lines = append(lines, "## "+encodeSpans(b.Spans))
		case KindHeading3:
			lines = append(lines, "### "+encodeSpans(b.Spans))
		case KindQuote:
			lines = append(lines, "> "+encodeSpans(b.Spans))
		case KindBullet:
			lines = append(lines, "- "+encodeSpans(b.Spans))
		case KindNumbered:
			lines = append(lines, fmt.Sprintf("%d. %s", b.Number, encodeSpans(b.Spans)))
		case KindCheckbox:
			box := "- [ ] "
			if b.Checked {
				box = "- [x] "
			}
			lines = append(lines, box+encodeSpans(b.Spans))
		case KindTable:
			for _, row := range b.Rows {
				cells := make([]string, len(row))
				for i, cell := range row {
					cells[i] = encodeSpans(cell.Spans)
				}
				lines = append(lines, "| "+strings.Join(cells, " | ")+" |")
			}
		default:
			lines = append(lines, encodeSpans(b.Spans))
		}
	}
	return strings.Join(lines, "\n")
}

// encodeSpans はスパン列をインラインマーカー付きテキストに変換する
func encodeSpans(spans []Span) string {
	return encodeLevel(spans, 0)
}

// encodeLevel は指定された深さのマーカーを基準に隣接スパンをまとめて出力する
// 同じ外側マーカーを共有するスパンは1組のマーカーで囲む（*a^b^c* 形式）
func encodeLevel(spans []Span, depth int) string {
	var sb strings.Builder
	i := 0
	for i < len(spans) {
		s := spans[i]
		if len(s.Marks) <= depth {
			sb.WriteString(s.Text)
			i++
			continue
		}
		m := s.Marks[depth]
		j := i
		for j < len(spans) && len(spans[j].Marks) > depth && spans[j].Marks[depth] == m &&
			(m != MarkLink || spans[j].URL == s.URL) {
			j++
		}
		inner := encodeLevel(spans[i:j], depth+1)
		if m == MarkLink {
			sb.WriteString("[" + inner + "](" + s.URL + ")")
		} else {
			c := markerChar(m)
			sb.WriteByte(c)
			sb.WriteString(inner)
			sb.WriteByte(c)
		}
		i = j
	}
	return sb.String()
}

// ------------------------------------------------------------
// デコード
// ------------------------------------------------------------

// Decode はマークダウン方言の文字列をドキュメントに変換する
// 不正な入力でも失敗せず、解釈できない部分はリテラルテキストとして扱う
func Decode(content string) Document {
	doc := Document{}
	if content == "" {
		return doc
	}
	lines := strings.Split(content, "\n")
	for _, line := range lines {
		if isTableRow(line) {
			row := decodeTableRow(line)
			// 連続するテーブル行は1つのテーブルブロックにまとめる
			if n := len(doc.Blocks); n > 0 && doc.Blocks[n-1].Kind == KindTable &&
				len(doc.Blocks[n-1].Rows[0]) == len(row) {
				doc.Blocks[n-1].Rows = append(doc.Blocks[n-1].Rows, row)
				continue
			}
			doc.Blocks = append(doc.Blocks, Block{Kind: KindTable, Rows: [][]Cell{row}})
			continue
		}
		doc.Blocks = append(doc.Blocks, decodeLine(line))
	}
	doc.normalize()
	return doc
}

// decodeLine は1行を行頭プレフィックスでブロックに分類する
func decodeLine(line string) Block {
	switch {
	case strings.HasPrefix(line, "### "):
		return Block{Kind: KindHeading3, Spans: decodeSpans(line[4:])}
	case strings.HasPrefix(line, "## "):
		return Block{Kind: KindHeading2, Spans: decodeSpans(line[3:])}
	case strings.HasPrefix(line, "# "):
		return Block{Kind: KindHeading1, Spans: decodeSpans(line[2:])}
	case strings.HasPrefix(line, "> "):
		return Block{Kind: KindQuote, Spans: decodeSpans(line[2:])}
	case strings.HasPrefix(line, "- [ ] "):
		return Block{Kind: KindCheckbox, Spans: decodeSpans(line[6:])}
	case strings.HasPrefix(line, "- [x] "):
		return Block{Kind: KindCheckbox, Checked: true, Spans: decodeSpans(line[6:])}
	case strings.HasPrefix(line, "- "):
		return Block{Kind: KindBullet, Spans: decodeSpans(line[2:])}
	}
	if n, rest, ok := parseNumberedPrefix(line); ok {
		return Block{Kind: KindNumbered, Number: n, Spans: decodeSpans(rest)}
	}
	return Block{Kind: KindParagraph, Spans: decodeSpans(line)}
}

// parseNumberedPrefix は "N. text" 形式の行頭を解析する
// 番号は常に1以上（"0. " はrenumberと同じ下限に丸める）
func parseNumberedPrefix(line string) (int, string, bool) {
	dot := strings.Index(line, ". ")
	if dot < 1 {
		return 0, "", false
	}
	n, err := strconv.Atoi(line[:dot])
	if err != nil || n < 0 {
		return 0, "", false
	}
	if n < 1 {
		n = 1
	}
	return n, line[dot+2:], true
}

func isTableRow(line string) bool {
	trimmed := strings.TrimSpace(line)
	return len(trimmed) >= 2 && strings.HasPrefix(trimmed, "|") && strings.HasSuffix(trimmed, "|")
}

func decodeTableRow(line string) []Cell {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimPrefix(trimmed, "|")
	trimmed = strings.TrimSuffix(trimmed, "|")
	parts := strings.Split(trimmed, "|")
	cells := make([]Cell, len(parts))
	for i, p := range parts {
		cells[i] = Cell{Spans: normalizeSpans(decodeSpans(strings.TrimSpace(p)))}
	}
	return cells
}

// decodeSpans は行内のインラインマーカーを解決してスパン列を生成する
// 左から右へ走査し、最も外側のマーカーから非貪欲に解決する
// 対応する閉じマーカーのない文字はリテラルとして扱う
func decodeSpans(text string) []Span {
	return parseInline(text, nil, "")
}

func parseInline(text string, outer []Mark, url string) []Span {
	if text == "" {
		if len(outer) > 0 {
			// 空のマーカーペア（カーソル挿入用）も保持する
			return []Span{{Text: "", Marks: cloneMarks(outer), URL: url}}
		}
		return nil
	}
	var spans []Span
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			spans = append(spans, Span{Text: lit.String(), Marks: cloneMarks(outer), URL: url})
			lit.Reset()
		}
	}
	i := 0
	for i < len(text) {
		c := text[i]
		if mark, ok := markerFor(c); ok {
			// 最も近い閉じマーカーを探す（非貪欲）
			if j := strings.IndexByte(text[i+1:], c); j >= 0 {
				flush()
				inner := text[i+1 : i+1+j]
				spans = append(spans, parseInline(inner, append(cloneMarks(outer), mark), url)...)
				i += j + 2
				continue
			}
			// 閉じマーカーなし：リテラル文字
			lit.WriteByte(c)
			i++
			continue
		}
		if c == '[' {
			if linkText, linkURL, consumed, ok := parseLink(text[i:]); ok {
				flush()
				spans = append(spans, parseInline(linkText, append(cloneMarks(outer), MarkLink), linkURL)...)
				i += consumed
				continue
			}
		}
		lit.WriteByte(c)
		i++
	}
	flush()
	return spans
}

// parseLink は "[text](url)" 形式を解析する
// 形式が崩れている場合はリテラル扱いにするためokをfalseで返す
func parseLink(s string) (text, url string, consumed int, ok bool) {
	close := strings.Index(s, "](")
	if close < 0 {
		return "", "", 0, false
	}
	end := strings.IndexByte(s[close+2:], ')')
	if end < 0 {
		return "", "", 0, false
	}
	return s[1:close], s[close+2 : close+2+end], close + 2 + end + 1, true
}
