package editor

import "strings"

// Mark はインラインスパンに適用される書式マーカー
type Mark string

const (
	MarkBold      Mark = "bold"
	MarkItalic    Mark = "italic"
	MarkUnderline Mark = "underline"
	MarkStrike    Mark = "strikethrough"
	MarkLink      Mark = "link"
)

// BlockKind はブロックの種類
type BlockKind string

const (
	KindParagraph BlockKind = "paragraph"
	KindHeading1  BlockKind = "heading1"
	KindHeading2  BlockKind = "heading2"
	KindHeading3  BlockKind = "heading3"
	KindQuote     BlockKind = "quote"
	KindBullet    BlockKind = "bullet"
	KindNumbered  BlockKind = "numbered"
	KindCheckbox  BlockKind = "checkbox"
	KindTable     BlockKind = "table"
)

// Span は書式付きテキストの連続した一区間
// Marksは外側から内側の順（最初に適用されたマーカーが先頭）
type Span struct {
	Text  string `json:"text"`
	Marks []Mark `json:"marks,omitempty"`
	URL   string `json:"url,omitempty"` // MarkLinkを含む場合のリンク先
}

// Cell はテーブルの1セル
type Cell struct {
	Spans []Span `json:"spans,omitempty"`
}

// Block はドキュメントのトップレベル構造単位
// Kindに応じて使用されるフィールドが異なる
type Block struct {
	Kind    BlockKind `json:"kind"`
	Spans   []Span    `json:"spans,omitempty"`   // テキスト系ブロック
	Number  int       `json:"number,omitempty"`  // 番号付きリスト項目
	Checked bool      `json:"checked,omitempty"` // チェックボックス項目
	Rows    [][]Cell  `json:"rows,omitempty"`    // テーブル（先頭行がヘッダー）
}

// Document はブロックの順序付き列
type Document struct {
	Blocks []Block `json:"blocks"`
}

// Selection はフラット化テキスト内の選択範囲（rune単位のオフセット）
type Selection struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// IsCollapsed は選択範囲が空（カーソルのみ）かどうかを返す
func (s Selection) IsCollapsed() bool {
	return s.Start == s.End
}

// HasMark は指定されたマーカーを持つかどうかを返す
func (s *Span) HasMark(m Mark) bool {
	for _, mark := range s.Marks {
		if mark == m {
			return true
		}
	}
	return false
}

// textLen はスパンのテキスト長（rune数）を返す
func (s *Span) textLen() int {
	return len([]rune(s.Text))
}

// marksEqual は2つのスパンの書式が同一かどうかを判定する
func marksEqual(a, b Span) bool {
	if len(a.Marks) != len(b.Marks) || a.URL != b.URL {
		return false
	}
	for i := range a.Marks {
		if a.Marks[i] != b.Marks[i] {
			return false
		}
	}
	return true
}

// cloneMarks はマーカーのスライスを複製する
func cloneMarks(marks []Mark) []Mark {
	if len(marks) == 0 {
		return nil
	}
	out := make([]Mark, len(marks))
	copy(out, marks)
	return out
}

// Text はブロックのプレーンテキストを返す（テーブルは空文字列）
func (b *Block) Text() string {
	if b.Kind == KindTable {
		return ""
	}
	var sb strings.Builder
	for _, s := range b.Spans {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// textLen はブロックのテキスト長（rune数）を返す
func (b *Block) textLen() int {
	n := 0
	for _, s := range b.Spans {
		n += s.textLen()
	}
	return n
}

// IsListItem はリスト項目（箇条書き・番号付き・チェックボックス）かどうかを返す
func (b *Block) IsListItem() bool {
	return b.Kind == KindBullet || b.Kind == KindNumbered || b.Kind == KindCheckbox
}

// Clone はブロックの完全な複製を返す
func (b Block) Clone() Block {
	out := b
	if b.Spans != nil {
		out.Spans = make([]Span, len(b.Spans))
		for i, s := range b.Spans {
			out.Spans[i] = s
			out.Spans[i].Marks = cloneMarks(s.Marks)
		}
	}
	if b.Rows != nil {
		out.Rows = make([][]Cell, len(b.Rows))
		for r, row := range b.Rows {
			out.Rows[r] = make([]Cell, len(row))
			for c, cell := range row {
				spans := make([]Span, len(cell.Spans))
				for i, s := range cell.Spans {
					spans[i] = s
					spans[i].Marks = cloneMarks(s.Marks)
				}
				if len(spans) == 0 {
					spans = nil
				}
				out.Rows[r][c] = Cell{Spans: spans}
			}
		}
	}
	return out
}

// Clone はドキュメントの完全な複製を返す
// FormattingEngineの操作は入力を変更せず複製に対して行う
func (d Document) Clone() Document {
	out := Document{}
	if d.Blocks != nil {
		out.Blocks = make([]Block, len(d.Blocks))
		for i, b := range d.Blocks {
			out.Blocks[i] = b.Clone()
		}
	}
	return out
}

// PlainText はドキュメントのフラット化テキストを返す
// ブロック間は改行1文字で区切られる
func (d Document) PlainText() string {
	texts := make([]string, len(d.Blocks))
	for i := range d.Blocks {
		texts[i] = d.Blocks[i].Text()
	}
	return strings.Join(texts, "\n")
}

// locate はフラット化オフセットをブロック番号とブロック内オフセットに変換する
// オフセットが範囲外の場合は末尾に丸める
func (d Document) locate(offset int) (blockIdx, local int) {
	if offset < 0 {
		offset = 0
	}
	pos := 0
	for i := range d.Blocks {
		n := d.Blocks[i].textLen()
		if offset <= pos+n {
			return i, offset - pos
		}
		pos += n + 1 // ブロック区切りの改行分
	}
	if len(d.Blocks) == 0 {
		return 0, 0
	}
	last := len(d.Blocks) - 1
	return last, d.Blocks[last].textLen()
}

// normalize はスパン列を正規化する
// 同一書式の隣接スパンを結合し、書式のない空スパンを除去する
func (d *Document) normalize() {
	for i := range d.Blocks {
		b := &d.Blocks[i]
		if b.Kind == KindTable {
			continue
		}
		b.Spans = normalizeSpans(b.Spans)
	}
}

func normalizeSpans(spans []Span) []Span {
	var out []Span
	for _, s := range spans {
		if s.Text == "" && len(s.Marks) == 0 {
			continue
		}
		if n := len(out); n > 0 && marksEqual(out[n-1], s) {
			out[n-1].Text += s.Text
			continue
		}
		s.Marks = cloneMarks(s.Marks)
		out = append(out, s)
	}
	return out
}

// renumber は番号付きリストの連続した並びを先頭番号から連番に振り直す
// 並びの先頭項目の番号は維持され、以降は+1ずつ増加する
func (d *Document) renumber() {
	next := 0
	inRun := false
	for i := range d.Blocks {
		b := &d.Blocks[i]
		if b.Kind != KindNumbered {
			inRun = false
			continue
		}
		if !inRun {
			if b.Number < 1 {
				b.Number = 1
			}
			next = b.Number + 1
			inRun = true
			continue
		}
		b.Number = next
		next++
	}
}
