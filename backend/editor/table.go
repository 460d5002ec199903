package editor

import "errors"

// テーブル構造操作の検証エラー
// 例外的な制御フローは使わず、呼び出し元に結果値として返す
var (
	ErrNotTable   = errors.New("block is not a table")
	ErrLastRow    = errors.New("cannot delete the last remaining row")
	ErrLastColumn = errors.New("cannot delete the last remaining column")
	ErrHeaderRow  = errors.New("cannot delete the header row")
	ErrOutOfRange = errors.New("row or column index out of range")
)

// AddRow は基準行の上または下に空の行を挿入する
func AddRow(doc Document, blockIdx, anchorRow int, below bool) (Document, error) {
	out := doc.Clone()
	b, err := tableAt(&out, blockIdx)
	if err != nil {
		return doc, err
	}
	if anchorRow < 0 || anchorRow >= len(b.Rows) {
		return doc, ErrOutOfRange
	}
	pos := anchorRow
	if below {
		pos++
	}
	row := make([]Cell, len(b.Rows[0]))
	b.Rows = append(b.Rows[:pos], append([][]Cell{row}, b.Rows[pos:]...)...)
	return out, nil
}

// AddColumn は基準列の左または右に空の列を挿入する
// 全ての行に同時に挿入され、行の長さは常に揃う
func AddColumn(doc Document, blockIdx, anchorCol int, right bool) (Document, error) {
	out := doc.Clone()
	b, err := tableAt(&out, blockIdx)
	if err != nil {
		return doc, err
	}
	if anchorCol < 0 || anchorCol >= len(b.Rows[0]) {
		return doc, ErrOutOfRange
	}
	pos := anchorCol
	if right {
		pos++
	}
	for r := range b.Rows {
		b.Rows[r] = append(b.Rows[r][:pos], append([]Cell{{}}, b.Rows[r][pos:]...)...)
	}
	return out, nil
}

// DeleteRow は指定行を削除する
// 最後の1行およびヘッダー行（先頭行）の削除は拒否される
func DeleteRow(doc Document, blockIdx, row int) (Document, error) {
	out := doc.Clone()
	b, err := tableAt(&out, blockIdx)
	if err != nil {
		return doc, err
	}
	if row < 0 || row >= len(b.Rows) {
		return doc, ErrOutOfRange
	}
	if len(b.Rows) == 1 {
		return doc, ErrLastRow
	}
	if row == 0 {
		return doc, ErrHeaderRow
	}
	b.Rows = append(b.Rows[:row], b.Rows[row+1:]...)
	return out, nil
}

// DeleteColumn は指定列を全ての行から削除する
// 最後の1列の削除は拒否される
func DeleteColumn(doc Document, blockIdx, col int) (Document, error) {
	out := doc.Clone()
	b, err := tableAt(&out, blockIdx)
	if err != nil {
		return doc, err
	}
	if col < 0 || col >= len(b.Rows[0]) {
		return doc, ErrOutOfRange
	}
	if len(b.Rows[0]) == 1 {
		return doc, ErrLastColumn
	}
	for r := range b.Rows {
		b.Rows[r] = append(b.Rows[r][:col], b.Rows[r][col+1:]...)
	}
	return out, nil
}

// DeleteTable はテーブルブロック全体を削除する
func DeleteTable(doc Document, blockIdx int) (Document, error) {
	out := doc.Clone()
	if _, err := tableAt(&out, blockIdx); err != nil {
		return doc, err
	}
	out.Blocks = append(out.Blocks[:blockIdx], out.Blocks[blockIdx+1:]...)
	out.renumber()
	return out, nil
}

// SetCellText はセルのテキストを書き換える補助操作
func SetCellText(doc Document, blockIdx, row, col int, text string) (Document, error) {
	out := doc.Clone()
	b, err := tableAt(&out, blockIdx)
	if err != nil {
		return doc, err
	}
	if row < 0 || row >= len(b.Rows) || col < 0 || col >= len(b.Rows[0]) {
		return doc, ErrOutOfRange
	}
	b.Rows[row][col] = Cell{Spans: normalizeSpans(decodeSpans(text))}
	return out, nil
}

func tableAt(doc *Document, blockIdx int) (*Block, error) {
	if blockIdx < 0 || blockIdx >= len(doc.Blocks) {
		return nil, ErrOutOfRange
	}
	b := &doc.Blocks[blockIdx]
	if b.Kind != KindTable {
		return nil, ErrNotTable
	}
	return b, nil
}
