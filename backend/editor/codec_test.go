/*
MarkdownCodecのテストスイート

このテストファイルは、独自マークダウン方言とドキュメントモデルの
双方向変換を検証するためのテストケースを含んでいます。

テストケース:
1. TestDecodeBlocks
   - 行頭プレフィックスによるブロック分類が正しく行われることを確認

2. TestDecodeInlineMarkers
   - インラインマーカーの非貪欲・外側優先の解決を検証
   - 未対応マーカーのリテラル扱いを検証

3. TestDecodeNeverFails
   - 不正な入力でもリテラルテキストに劣化して処理が継続することを確認

4. TestDecodeNumberedFloor
   - 番号付き項目の番号が常に1以上にデコードされることを確認

5. TestEncodeDecodeRoundTrip
   - FormattingEngine操作で構築したドキュメントの可逆変換を検証

6. TestDecodeTableRows
   - 連続するテーブル行が1つのテーブルブロックにまとまることを確認
*/

package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestDecodeBlocks は行頭プレフィックスによるブロック分類をテストします
func TestDecodeBlocks(t *testing.T) {
	doc := Decode("# 見出し1\n## 見出し2\n### 見出し3\n> 引用\n- 箇条書き\n1. 番号付き\n- [ ] 未完了\n- [x] 完了\n本文")

	assert.Len(t, doc.Blocks, 9)
	assert.Equal(t, KindHeading1, doc.Blocks[0].Kind)
	assert.Equal(t, KindHeading2, doc.Blocks[1].Kind)
	assert.Equal(t, KindHeading3, doc.Blocks[2].Kind)
	assert.Equal(t, KindQuote, doc.Blocks[3].Kind)
	assert.Equal(t, KindBullet, doc.Blocks[4].Kind)
	assert.Equal(t, KindNumbered, doc.Blocks[5].Kind)
	assert.Equal(t, 1, doc.Blocks[5].Number)
	assert.Equal(t, KindCheckbox, doc.Blocks[6].Kind)
	assert.False(t, doc.Blocks[6].Checked)
	assert.Equal(t, KindCheckbox, doc.Blocks[7].Kind)
	assert.True(t, doc.Blocks[7].Checked)
	assert.Equal(t, KindParagraph, doc.Blocks[8].Kind)
	assert.Equal(t, "本文", doc.Blocks[8].Text())
}

// TestDecodeInlineMarkers はインラインマーカーの解決をテストします
func TestDecodeInlineMarkers(t *testing.T) {
	// 太字
	doc := Decode("a *b* c")
	assert.Equal(t, []Span{
		{Text: "a "},
		{Text: "b", Marks: []Mark{MarkBold}},
		{Text: " c"},
	}, doc.Blocks[0].Spans)

	// ネストしたマーカー（外側が先に解決される）
	doc = Decode("*^both^*")
	assert.Equal(t, []Span{
		{Text: "both", Marks: []Mark{MarkBold, MarkItalic}},
	}, doc.Blocks[0].Spans)

	// マーカーをまたぐ混在
	doc = Decode("*a^b^c*")
	assert.Equal(t, []Span{
		{Text: "a", Marks: []Mark{MarkBold}},
		{Text: "b", Marks: []Mark{MarkBold, MarkItalic}},
		{Text: "c", Marks: []Mark{MarkBold}},
	}, doc.Blocks[0].Spans)

	// リンク
	doc = Decode("see [docs](https://example.com) here")
	assert.Equal(t, []Span{
		{Text: "see "},
		{Text: "docs", Marks: []Mark{MarkLink}, URL: "https://example.com"},
		{Text: " here"},
	}, doc.Blocks[0].Spans)

	// 下線と取り消し線
	doc = Decode("_u_ and ~s~")
	assert.Equal(t, []Span{
		{Text: "u", Marks: []Mark{MarkUnderline}},
		{Text: " and "},
		{Text: "s", Marks: []Mark{MarkStrike}},
	}, doc.Blocks[0].Spans)
}

// TestDecodeNeverFails は不正入力の劣化処理をテストします
func TestDecodeNeverFails(t *testing.T) {
	// 閉じマーカーのない単独マーカーはリテラル
	doc := Decode("unmatched *marker")
	assert.Equal(t, "unmatched *marker", doc.Blocks[0].Text())
	assert.Empty(t, doc.Blocks[0].Spans[0].Marks)

	// 壊れたリンク構文はリテラル
	doc = Decode("[broken](no-close")
	assert.Equal(t, "[broken](no-close", doc.Blocks[0].Text())

	doc = Decode("[no-url-part]")
	assert.Equal(t, "[no-url-part]", doc.Blocks[0].Text())

	// 空文字列は空ドキュメント
	doc = Decode("")
	assert.Empty(t, doc.Blocks)
}

// TestDecodeNumberedFloor は番号付き項目の番号の下限をテストします
func TestDecodeNumberedFloor(t *testing.T) {
	// "0." は番号付き項目として扱い、番号は下限の1に丸める
	doc := Decode("0. 項目")
	assert.Equal(t, KindNumbered, doc.Blocks[0].Kind)
	assert.Equal(t, 1, doc.Blocks[0].Number)
	assert.Equal(t, "項目", doc.Blocks[0].Text())

	// 後続の項目は先頭番号からの連番としてrenumberされる
	doc = Decode("0. 一\n5. 二")
	doc.renumber()
	assert.Equal(t, 1, doc.Blocks[0].Number)
	assert.Equal(t, 2, doc.Blocks[1].Number)

	// 負数はリテラルの段落
	doc = Decode("-1. 項目")
	assert.Equal(t, KindParagraph, doc.Blocks[0].Kind)
}

// TestEncodeDecodeRoundTrip はエンジン操作で構築したドキュメントの可逆変換をテストします
func TestEncodeDecodeRoundTrip(t *testing.T) {
	doc := Document{}
	doc, _ = InsertBlockItem(doc, 0, KindHeading1, BlockOptions{})
	doc, _ = InsertText(doc, 0, "議事録")
	doc, _ = InsertBlockItem(doc, 1, KindBullet, BlockOptions{})
	doc, _ = InsertText(doc, 4, "最初の項目")
	doc, _ = InsertBlockItem(doc, 2, KindNumbered, BlockOptions{})
	doc, _ = InsertText(doc, 10, "手順その1")
	doc, _ = InsertBlockItem(doc, 3, KindCheckbox, BlockOptions{})
	doc, _ = InsertText(doc, 16, "宿題")
	doc, _ = InsertBlockItem(doc, 4, KindTable, BlockOptions{Rows: 2, Cols: 2})

	// インライン書式を適用
	doc, _ = ToggleInline(doc, Selection{Start: 0, End: 3}, MarkBold)
	doc, _ = ToggleInline(doc, Selection{Start: 4, End: 9}, MarkItalic)
	doc, _ = InsertLink(doc, Selection{Start: 16, End: 18}, "https://example.com")

	encoded := Encode(doc)
	decoded := Decode(encoded)
	assert.Equal(t, doc, decoded)
}

// TestRoundTripEmptyMarkerPair は空のマーカーペアの可逆変換をテストします
func TestRoundTripEmptyMarkerPair(t *testing.T) {
	doc := Decode("ab")
	doc, _ = ToggleInline(doc, Selection{Start: 1, End: 1}, MarkBold)

	encoded := Encode(doc)
	assert.Equal(t, "a**b", encoded)
	assert.Equal(t, doc, Decode(encoded))
}

// TestDecodeTableRows はテーブル行のまとめ処理をテストします
func TestDecodeTableRows(t *testing.T) {
	doc := Decode("| 名前 | 数量 |\n| りんご | 3 |\n本文")

	assert.Len(t, doc.Blocks, 2)
	table := doc.Blocks[0]
	assert.Equal(t, KindTable, table.Kind)
	assert.Len(t, table.Rows, 2)
	assert.Len(t, table.Rows[0], 2)
	assert.Equal(t, "名前", table.Rows[0][0].Spans[0].Text)
	assert.Equal(t, "3", table.Rows[1][1].Spans[0].Text)

	// 空セルを含むテーブルの可逆変換
	doc2, _ := InsertBlockItem(Document{}, 0, KindTable, BlockOptions{Rows: 2, Cols: 3})
	doc2, err := SetCellText(doc2, 0, 0, 0, "ヘッダー")
	assert.NoError(t, err)
	assert.Equal(t, doc2, Decode(Encode(doc2)))
}

// TestEncodeAdjacentSpansShareMarker は同じ外側マーカーを共有する隣接スパンの
// エンコードが1組のマーカーにまとまることをテストします
func TestEncodeAdjacentSpansShareMarker(t *testing.T) {
	doc := Decode("*abc*")
	doc, _ = ToggleInline(doc, Selection{Start: 1, End: 2}, MarkItalic)

	encoded := Encode(doc)
	assert.Equal(t, "*a^b^c*", encoded)
	assert.Equal(t, doc, Decode(encoded))
}
