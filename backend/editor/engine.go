package editor

// FormattingEngineの操作群
// 全ての操作は入力ドキュメントを変更せず、新しいドキュメントと選択範囲を返す

// Direction はdeleteAtBoundaryの削除方向
type Direction int

const (
	DirectionBackward Direction = iota
	DirectionForward
)

// ToggleInline は選択範囲のインライン書式を切り替える
// 選択範囲全体が既にマーカーで囲まれていれば解除し、そうでなければ適用する
// 空の選択範囲の場合は空のマーカーペアを挿入しカーソルをその内側に置く
func ToggleInline(doc Document, sel Selection, mark Mark) (Document, Selection) {
	out := doc.Clone()
	if sel.IsCollapsed() {
		insertEmptyMarked(&out, sel.Start, mark, "")
		out.normalize()
		return out, sel
	}

	splitAtOffsets(&out, sel)
	targets := spansInRange(&out, sel)
	if len(targets) == 0 {
		return out, sel
	}

	enclosed := true
	for _, t := range targets {
		if !out.Blocks[t.block].Spans[t.span].HasMark(mark) {
			enclosed = false
			break
		}
	}

	for _, t := range targets {
		s := &out.Blocks[t.block].Spans[t.span]
		if enclosed {
			removeMark(s, mark)
		} else if !s.HasMark(mark) {
			s.Marks = append(cloneMarks(s.Marks), mark)
		}
	}

	out.normalize()
	return out, sel
}

// InsertLink は選択範囲をリンクに変換する
// 選択範囲が既にリンク内にある場合はネストせずURLを書き換える
func InsertLink(doc Document, sel Selection, url string) (Document, Selection) {
	out := doc.Clone()
	splitAtOffsets(&out, sel)
	targets := spansInRange(&out, sel)

	// 既存リンク内の選択はURLの編集として扱う
	inLink := false
	for _, t := range targets {
		if out.Blocks[t.block].Spans[t.span].HasMark(MarkLink) {
			inLink = true
			break
		}
	}
	if !inLink && sel.IsCollapsed() {
		// カーソル位置がリンク内かどうかを確認
		blockIdx, local := out.locate(sel.Start)
		if blockIdx < len(out.Blocks) {
			if s := spanAt(&out.Blocks[blockIdx], local); s != nil && s.HasMark(MarkLink) {
				s.URL = url
				out.normalize()
				return out, sel
			}
		}
		return out, sel
	}

	for _, t := range targets {
		s := &out.Blocks[t.block].Spans[t.span]
		if s.HasMark(MarkLink) {
			s.URL = url
			continue
		}
		if inLink {
			continue
		}
		s.Marks = append(cloneMarks(s.Marks), MarkLink)
		s.URL = url
	}

	out.normalize()
	return out, sel
}

// BlockOptions はInsertBlockItemの種類別パラメータ
type BlockOptions struct {
	Rows int // テーブルの行数（1〜10に丸められる）
	Cols int // テーブルの列数（1〜6に丸められる）
}

// InsertBlockItem は指定位置に新しいブロックを挿入する
// テーブルの寸法は許容範囲に丸められ、拒否されることはない
func InsertBlockItem(doc Document, pos int, kind BlockKind, opts BlockOptions) (Document, int) {
	out := doc.Clone()
	if pos < 0 {
		pos = 0
	}
	if pos > len(out.Blocks) {
		pos = len(out.Blocks)
	}

	block := Block{Kind: kind}
	switch kind {
	case KindNumbered:
		block.Number = 1
	case KindTable:
		rows := clampInt(opts.Rows, 1, 10)
		cols := clampInt(opts.Cols, 1, 6)
		block.Rows = make([][]Cell, rows)
		for r := range block.Rows {
			block.Rows[r] = make([]Cell, cols)
		}
	}

	out.Blocks = append(out.Blocks[:pos], append([]Block{block}, out.Blocks[pos:]...)...)
	out.renumber()
	return out, pos
}

// ContinueList はリスト項目内でのEnter相当の操作を処理する
// 項目が空の場合はリストを抜けて段落に置き換え、
// そうでなければ同種の兄弟項目を直後に挿入する
func ContinueList(doc Document, blockIdx int) (Document, int) {
	if blockIdx < 0 || blockIdx >= len(doc.Blocks) || !doc.Blocks[blockIdx].IsListItem() {
		return doc, blockIdx
	}
	out := doc.Clone()
	cur := &out.Blocks[blockIdx]

	if cur.Text() == "" {
		// 空の項目でEnter：リストモードを抜ける
		out.Blocks[blockIdx] = Block{Kind: KindParagraph}
		out.renumber()
		return out, blockIdx
	}

	sibling := Block{Kind: cur.Kind}
	if cur.Kind == KindNumbered {
		sibling.Number = cur.Number + 1
	}
	pos := blockIdx + 1
	out.Blocks = append(out.Blocks[:pos], append([]Block{sibling}, out.Blocks[pos:]...)...)
	out.renumber()
	return out, pos
}

// DeleteAtBoundary はリスト項目の先頭でのBackspace相当の操作を処理する
// 空の項目は削除して直前のブロックにフォーカスを移す
// 項目にテキストがある場合は何もしない（通常の文字削除はエンジンの責務外）
func DeleteAtBoundary(doc Document, blockIdx int, dir Direction) (Document, int) {
	if blockIdx < 0 || blockIdx >= len(doc.Blocks) || !doc.Blocks[blockIdx].IsListItem() {
		return doc, blockIdx
	}
	if doc.Blocks[blockIdx].Text() != "" {
		return doc, blockIdx
	}
	out := doc.Clone()
	out.Blocks = append(out.Blocks[:blockIdx], out.Blocks[blockIdx+1:]...)
	focus := blockIdx - 1
	if focus < 0 {
		// 前のブロックがない場合は空の段落を作成する
		out.Blocks = append([]Block{{Kind: KindParagraph}}, out.Blocks...)
		focus = 0
	}
	out.renumber()
	return out, focus
}

// ------------------------------------------------------------
// 選択範囲とスパンの対応付け
// ------------------------------------------------------------

type spanRef struct {
	block int
	span  int
}

// splitAtOffsets は選択範囲の両端にスパン境界を作る
func splitAtOffsets(doc *Document, sel Selection) {
	// 終端から先に分割するとオフセットがずれない
	splitAt(doc, sel.End)
	splitAt(doc, sel.Start)
}

func splitAt(doc *Document, offset int) {
	blockIdx, local := doc.locate(offset)
	if blockIdx >= len(doc.Blocks) {
		return
	}
	b := &doc.Blocks[blockIdx]
	pos := 0
	for i := 0; i < len(b.Spans); i++ {
		n := b.Spans[i].textLen()
		if local > pos && local < pos+n {
			left, right := splitSpan(b.Spans[i], local-pos)
			b.Spans = append(b.Spans[:i], append([]Span{left, right}, b.Spans[i+1:]...)...)
			return
		}
		pos += n
	}
}

func splitSpan(s Span, at int) (Span, Span) {
	runes := []rune(s.Text)
	left := Span{Text: string(runes[:at]), Marks: cloneMarks(s.Marks), URL: s.URL}
	right := Span{Text: string(runes[at:]), Marks: cloneMarks(s.Marks), URL: s.URL}
	return left, right
}

// spansInRange は選択範囲に完全に含まれるスパンを列挙する
// 事前にsplitAtOffsetsで境界を揃えておくこと
func spansInRange(doc *Document, sel Selection) []spanRef {
	var refs []spanRef
	pos := 0
	for bi := range doc.Blocks {
		b := &doc.Blocks[bi]
		if b.Kind == KindTable {
			pos += 1 // 区切りの改行のみ
			continue
		}
		spanPos := pos
		for si := range b.Spans {
			n := b.Spans[si].textLen()
			if n > 0 && spanPos >= sel.Start && spanPos+n <= sel.End {
				refs = append(refs, spanRef{block: bi, span: si})
			}
			spanPos += n
		}
		pos += b.textLen() + 1
	}
	return refs
}

// spanAt はブロック内オフセット位置のスパンを返す
func spanAt(b *Block, local int) *Span {
	pos := 0
	for i := range b.Spans {
		n := b.Spans[i].textLen()
		if local >= pos && local <= pos+n {
			return &b.Spans[i]
		}
		pos += n
	}
	return nil
}

// insertEmptyMarked はカーソル位置に空のマーカー付きスパンを挿入する
func insertEmptyMarked(doc *Document, offset int, mark Mark, url string) {
	if len(doc.Blocks) == 0 {
		doc.Blocks = []Block{{Kind: KindParagraph}}
	}
	splitAt(doc, offset)
	blockIdx, local := doc.locate(offset)
	b := &doc.Blocks[blockIdx]
	empty := Span{Text: "", Marks: []Mark{mark}, URL: url}
	pos := 0
	for i := range b.Spans {
		if local == pos {
			b.Spans = append(b.Spans[:i], append([]Span{empty}, b.Spans[i:]...)...)
			return
		}
		pos += b.Spans[i].textLen()
	}
	b.Spans = append(b.Spans, empty)
}

func removeMark(s *Span, mark Mark) {
	var out []Mark
	removed := false
	for _, m := range s.Marks {
		if m == mark && !removed {
			removed = true
			continue
		}
		out = append(out, m)
	}
	s.Marks = out
	if mark == MarkLink && !s.HasMark(MarkLink) {
		s.URL = ""
	}
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// InsertText は指定オフセットにプレーンテキストを挿入する補助操作
// 挿入位置のスパンの書式を引き継ぐ
func InsertText(doc Document, offset int, text string) (Document, Selection) {
	out := doc.Clone()
	if len(out.Blocks) == 0 {
		out.Blocks = []Block{{Kind: KindParagraph}}
	}
	blockIdx, local := out.locate(offset)
	b := &out.Blocks[blockIdx]
	if len(b.Spans) == 0 {
		b.Spans = []Span{{Text: text}}
	} else {
		pos := 0
		for i := range b.Spans {
			n := b.Spans[i].textLen()
			if local <= pos+n {
				runes := []rune(b.Spans[i].Text)
				at := local - pos
				b.Spans[i].Text = string(runes[:at]) + text + string(runes[at:])
				break
			}
			pos += n
		}
	}
	out.normalize()
	end := offset + len([]rune(text))
	return out, Selection{Start: end, End: end}
}
