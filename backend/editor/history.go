package editor

import (
	"sync"
	"time"

	"github.com/bep/debounce"
)

// undoスタックの最大保持数（超過時は最古のスナップショットから破棄）
const maxHistoryEntries = 50

// HistoryStack はシリアライズ済みスナップショット文字列に対する
// 直線的なundo/redoを提供する
// 生のオブジェクトグラフではなくEncodeの結果を保持することで
// 共有や所有権の問題を避けている
type HistoryStack struct {
	mu       sync.Mutex
	baseline string
	undo     []string
	redo     []string
}

// NewHistoryStack は新しいHistoryStackインスタンスを作成する
func NewHistoryStack() *HistoryStack {
	return &HistoryStack{}
}

// Reset は両スタックをクリアして基準内容を設定する
func (h *HistoryStack) Reset(content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.baseline = content
	h.undo = nil
	h.redo = nil
}

// Record は新しいスナップショットを記録する
// 基準内容と同一の場合は何もしない
// 記録するとredoスタックはクリアされる（分岐のない直線的undo）
func (h *HistoryStack) Record(content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if content == h.baseline {
		return
	}
	h.undo = append(h.undo, h.baseline)
	if len(h.undo) > maxHistoryEntries {
		h.undo = h.undo[len(h.undo)-maxHistoryEntries:]
	}
	h.redo = nil
	h.baseline = content
}

// Undo は1つ前のスナップショットに戻す
// undoスタックが空の場合はfalseを返す
func (h *HistoryStack) Undo() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.undo) == 0 {
		return "", false
	}
	prev := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, h.baseline)
	h.baseline = prev
	return prev, true
}

// Redo はundoで戻した変更をやり直す
// redoスタックが空の場合はfalseを返す
func (h *HistoryStack) Redo() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.redo) == 0 {
		return "", false
	}
	next := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, h.baseline)
	h.baseline = next
	return next, true
}

// CanUndo はundo可能かどうかを返す
func (h *HistoryStack) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo) > 0
}

// CanRedo はredo可能かどうかを返す
func (h *HistoryStack) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo) > 0
}

// SnapshotRecorder は編集イベントをデバウンスしてHistoryStackに記録する
// 連続したキーストロークは静止期間後に1つのスナップショットにまとめられる
// （キャンセル＆再スケジュール方式：新しい編集が保留中の記録を置き換える）
type SnapshotRecorder struct {
	mu        sync.Mutex
	history   *HistoryStack
	debounced func(func())
	pending   string
	dirty     bool
}

// NewSnapshotRecorder は新しいSnapshotRecorderインスタンスを作成する
func NewSnapshotRecorder(history *HistoryStack, interval time.Duration) *SnapshotRecorder {
	return &SnapshotRecorder{
		history:   history,
		debounced: debounce.New(interval),
	}
}

// Push は最新の編集内容を通知する
// 静止期間が経過した時点での最終内容のみが記録される
func (r *SnapshotRecorder) Push(content string) {
	r.mu.Lock()
	r.pending = content
	r.dirty = true
	r.mu.Unlock()
	r.debounced(r.flush)
}

// Flush は保留中のスナップショットを即座に記録する
// アプリ終了時やundo直前の確定に使用する
func (r *SnapshotRecorder) Flush() {
	r.flush()
}

func (r *SnapshotRecorder) flush() {
	r.mu.Lock()
	if !r.dirty {
		r.mu.Unlock()
		return
	}
	content := r.pending
	r.dirty = false
	r.mu.Unlock()
	r.history.Record(content)
}
