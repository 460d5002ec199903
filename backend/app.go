package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"quick-notepad/backend/editor"
)

// 編集履歴スナップショットの静止期間
// 連続したキーストロークはこの間隔でまとめて記録される
const snapshotDebounceInterval = 500 * time.Millisecond

// editSession は編集中ノートのundo/redo状態を保持します
type editSession struct {
	noteID   string
	history  *editor.HistoryStack
	recorder *editor.SnapshotRecorder
}

// NewContext は新しいContextインスタンスを作成します
func NewContext(ctx context.Context) *Context {
	return &Context{
		ctx:             ctx,
		skipBeforeClose: false,
	}
}

// SkipBeforeClose はBeforeClose処理のスキップフラグを設定します
func (c *Context) SkipBeforeClose(skip bool) {
	c.skipBeforeClose = skip
}

// NewApp は新しいAppインスタンスを作成します
func NewApp() *App {
	history := editor.NewHistoryStack()
	return &App{
		ctx: NewContext(context.Background()),
		session: &editSession{
			history:  history,
			recorder: editor.NewSnapshotRecorder(history, snapshotDebounceInterval),
		},
		frontendReady: make(chan struct{}),
	}
}

// ------------------------------------------------------------
// アプリケーション関連の操作
// ------------------------------------------------------------

// アプリケーション起動時に呼び出される初期化関数
func (a *App) Startup(ctx context.Context) {
	a.ctx.ctx = ctx

	// アプリケーションデータディレクトリの設定
	appData, err := os.UserConfigDir()
	if err != nil {
		appData, err = os.UserHomeDir()
		if err != nil {
			appData = "."
		}
	}

	a.appDataDir = filepath.Join(appData, "quick-notepad")
	a.notesDir = filepath.Join(a.appDataDir, "notes")
	os.MkdirAll(a.notesDir, 0755)

	a.logger = NewAppLogger(ctx, false, a.appDataDir)
	a.logger.Console("appDataDir: %s", a.appDataDir)

	// SettingsServiceの初期化
	a.settingsService = NewSettingsService(a.appDataDir)

	// NoteServiceの初期化
	noteService, err := NewNoteService(a.notesDir, a.logger)
	if err != nil {
		a.logger.Error(err, "Error initializing note service")
		return
	}
	a.noteService = noteService

	// TransferServiceの初期化
	a.transferService = NewTransferService(a.ctx, noteService, a.logger)

	// Drive認証と同期サービスの初期化
	a.authService = NewDriveAuthService(ctx, a.appDataDir, a.logger, false)
	connected, err := a.authService.InitializeWithSavedToken()
	if err != nil {
		a.logger.Error(err, "Error initializing drive connection")
	}
	if connected {
		a.syncService = NewSyncService(ctx, noteService, a.authService.RemoteStore(), a.logger)
		a.pollingService = NewSyncPollingService(ctx, a.syncService, a.logger)
	}
}

// DomReady はフロントエンドの準備完了時に呼び出されます
func (a *App) DomReady(ctx context.Context) {
	select {
	case <-a.frontendReady:
		// 既に通知済み
	default:
		close(a.frontendReady)
	}

	// 接続済みの場合はポーリングを開始する
	if a.pollingService != nil {
		a.pollingService.StartPolling()
	}
}

// BeforeClose はアプリケーション終了前に呼び出されます
func (a *App) BeforeClose(ctx context.Context) (prevent bool) {
	if a.ctx.skipBeforeClose {
		return false
	}

	// 保留中の履歴スナップショットとアップロードを確定する
	a.session.recorder.Flush()
	if a.syncService != nil {
		a.syncService.FlushPendingUploads()
	}
	if a.pollingService != nil {
		a.pollingService.StopPolling()
	}
	return false
}

// BringToFront はウィンドウを前面に表示します
func (a *App) BringToFront() {
	if a.logger != nil && !a.logger.IsTestMode() {
		wailsRuntime.WindowShow(a.ctx.ctx)
	}
}

// ------------------------------------------------------------
// ノート関連の操作
// ------------------------------------------------------------

// ListNotes は全てのノートを返します
func (a *App) ListNotes() ([]Note, error) {
	return a.noteService.ListNotes()
}

// CreateNote は新しいノートを作成します
func (a *App) CreateNote(folder string) (*Note, error) {
	note, err := a.noteService.CreateNote(folder)
	if err != nil {
		return nil, a.logger.Error(err, "Failed to create note")
	}
	if a.syncService != nil {
		a.syncService.QueueNoteUpload(note.ID)
	}
	return note, nil
}

// UpdateNote はノートの指定フィールドを更新します
func (a *App) UpdateNote(id string, fields NoteFields) (*Note, error) {
	note, err := a.noteService.UpdateNote(id, fields)
	if err != nil {
		return nil, a.logger.Error(err, "Failed to update note: %s", id)
	}
	if note != nil && a.syncService != nil {
		a.syncService.QueueNoteUpload(note.ID)
	}
	return note, nil
}

// DeleteNote はノートを削除します
// リモート接続中はリモート側の削除確認後にローカルから削除されます
func (a *App) DeleteNote(id string) error {
	if a.syncService != nil {
		return a.syncService.DeleteNoteEverywhere(id)
	}
	return a.noteService.DeleteNote(id)
}

// SearchNotes は検索語にマッチするノートを返します
func (a *App) SearchNotes(term string) ([]Note, error) {
	notes, err := a.noteService.ListNotes()
	if err != nil {
		return nil, err
	}
	return SearchNotes(notes, term), nil
}

// GroupedNotes はビューの設定を反映したフォルダごとのノート一覧を返します
func (a *App) GroupedNotes(view string) (map[string][]Note, error) {
	notes, err := a.noteService.ListNotes()
	if err != nil {
		return nil, err
	}
	settings, err := a.settingsService.LoadSettings()
	if err != nil {
		return nil, err
	}
	return GroupByFolder(notes, settings.FolderPrefs[view]), nil
}

// ------------------------------------------------------------
// 編集セッションとundo/redo
// ------------------------------------------------------------

// OpenNote はノートを編集対象として開き、履歴を初期化します
func (a *App) OpenNote(id string) (*Note, error) {
	note, err := a.noteService.LoadNote(id)
	if err != nil {
		return nil, a.logger.Error(err, "Failed to open note: %s", id)
	}
	a.session.noteID = id
	a.session.history.Reset(note.Content)
	return note, nil
}

// EditNoteContent は編集中ノートの本文を保存し、履歴記録を予約します
func (a *App) EditNoteContent(content string) (*Note, error) {
	if a.session.noteID == "" {
		return nil, fmt.Errorf("no note is open")
	}
	note, err := a.noteService.UpdateNote(a.session.noteID, NoteFields{Content: &content})
	if err != nil {
		return nil, err
	}
	a.session.recorder.Push(content)
	if a.syncService != nil {
		a.syncService.QueueNoteUpload(a.session.noteID)
	}
	return note, nil
}

// Undo は編集中ノートを1つ前のスナップショットに戻します
// 戻せない場合は現在の内容をそのまま返します
func (a *App) Undo() (string, error) {
	a.session.recorder.Flush()
	content, ok := a.session.history.Undo()
	if !ok {
		note, err := a.noteService.LoadNote(a.session.noteID)
		if err != nil {
			return "", err
		}
		return note.Content, nil
	}
	if _, err := a.noteService.UpdateNote(a.session.noteID, NoteFields{Content: &content}); err != nil {
		return "", err
	}
	return content, nil
}

// Redo はundoで戻した変更をやり直します
func (a *App) Redo() (string, error) {
	content, ok := a.session.history.Redo()
	if !ok {
		note, err := a.noteService.LoadNote(a.session.noteID)
		if err != nil {
			return "", err
		}
		return note.Content, nil
	}
	if _, err := a.noteService.UpdateNote(a.session.noteID, NoteFields{Content: &content}); err != nil {
		return "", err
	}
	return content, nil
}

// ------------------------------------------------------------
// 書式操作（フロントエンドからの編集コマンド）
// ------------------------------------------------------------

// FormatResult は書式操作後の本文と選択範囲
type FormatResult struct {
	Content string `json:"content"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// ApplyInlineFormat は選択範囲のインライン書式を切り替えます
func (a *App) ApplyInlineFormat(content string, start, end int, mark string) FormatResult {
	doc := editor.Decode(content)
	doc, sel := editor.ToggleInline(doc, editor.Selection{Start: start, End: end}, editor.Mark(mark))
	return FormatResult{Content: editor.Encode(doc), Start: sel.Start, End: sel.End}
}

// ApplyLink は選択範囲をリンクにします（リンク内ではURLを書き換え）
func (a *App) ApplyLink(content string, start, end int, url string) FormatResult {
	doc := editor.Decode(content)
	doc, sel := editor.InsertLink(doc, editor.Selection{Start: start, End: end}, url)
	return FormatResult{Content: editor.Encode(doc), Start: sel.Start, End: sel.End}
}

// InsertBlock は指定位置にブロックを挿入します
func (a *App) InsertBlock(content string, pos int, kind string, rows, cols int) string {
	doc := editor.Decode(content)
	doc, _ = editor.InsertBlockItem(doc, pos, editor.BlockKind(kind), editor.BlockOptions{Rows: rows, Cols: cols})
	return editor.Encode(doc)
}

// HandleEnterKey はリスト項目内でのEnterキーを処理します
func (a *App) HandleEnterKey(content string, blockIdx int) string {
	doc := editor.Decode(content)
	doc, _ = editor.ContinueList(doc, blockIdx)
	return editor.Encode(doc)
}

// HandleBackspaceKey はリスト項目先頭でのBackspaceキーを処理します
func (a *App) HandleBackspaceKey(content string, blockIdx int) string {
	doc := editor.Decode(content)
	doc, _ = editor.DeleteAtBoundary(doc, blockIdx, editor.DirectionBackward)
	return editor.Encode(doc)
}

// TableAddRow はテーブルに行を追加します
func (a *App) TableAddRow(content string, blockIdx, anchorRow int, below bool) (string, error) {
	doc := editor.Decode(content)
	doc, err := editor.AddRow(doc, blockIdx, anchorRow, below)
	if err != nil {
		return content, err
	}
	return editor.Encode(doc), nil
}

// TableAddColumn はテーブルに列を追加します
func (a *App) TableAddColumn(content string, blockIdx, anchorCol int, right bool) (string, error) {
	doc := editor.Decode(content)
	doc, err := editor.AddColumn(doc, blockIdx, anchorCol, right)
	if err != nil {
		return content, err
	}
	return editor.Encode(doc), nil
}

// TableDeleteRow はテーブルの行を削除します
// 最後の行・ヘッダー行の削除は拒否され、本文は変更されません
func (a *App) TableDeleteRow(content string, blockIdx, row int) (string, error) {
	doc := editor.Decode(content)
	doc, err := editor.DeleteRow(doc, blockIdx, row)
	if err != nil {
		return content, err
	}
	return editor.Encode(doc), nil
}

// TableDeleteColumn はテーブルの列を削除します
func (a *App) TableDeleteColumn(content string, blockIdx, col int) (string, error) {
	doc := editor.Decode(content)
	doc, err := editor.DeleteColumn(doc, blockIdx, col)
	if err != nil {
		return content, err
	}
	return editor.Encode(doc), nil
}

// TableSetCell はテーブルのセルのテキストを書き換えます
func (a *App) TableSetCell(content string, blockIdx, row, col int, text string) (string, error) {
	doc := editor.Decode(content)
	doc, err := editor.SetCellText(doc, blockIdx, row, col, text)
	if err != nil {
		return content, err
	}
	return editor.Encode(doc), nil
}

// TableDelete はテーブル全体を削除します
func (a *App) TableDelete(content string, blockIdx int) (string, error) {
	doc := editor.Decode(content)
	doc, err := editor.DeleteTable(doc, blockIdx)
	if err != nil {
		return content, err
	}
	return editor.Encode(doc), nil
}

// ------------------------------------------------------------
// 設定関連の操作
// ------------------------------------------------------------

// GetSettings は現在の設定を返します
func (a *App) GetSettings() (*Settings, error) {
	return a.settingsService.LoadSettings()
}

// SetPanelWidth はサイドパネル幅を更新します
func (a *App) SetPanelWidth(width int) (*Settings, error) {
	return a.settingsService.SetPanelWidth(width)
}

// SetSidebarCollapsed はサイドバーの折りたたみ状態を更新します
// 折りたたみ中はポーリングを止め、展開時に再開します
func (a *App) SetSidebarCollapsed(collapsed bool) (*Settings, error) {
	settings, err := a.settingsService.SetSidebarCollapsed(collapsed)
	if err != nil {
		return nil, err
	}
	if a.pollingService != nil {
		if collapsed {
			a.pollingService.StopPolling()
		} else {
			a.pollingService.StartPolling()
		}
	}
	return settings, nil
}

// ToggleFolderCollapsed はフォルダの折りたたみ状態を切り替えます
func (a *App) ToggleFolderCollapsed(view, folder string) (*Settings, error) {
	return a.settingsService.ToggleFolderCollapsed(view, folder)
}

// SetFolderColor はフォルダの表示色を設定します
func (a *App) SetFolderColor(view, folder, color string) (*Settings, error) {
	return a.settingsService.SetFolderColor(view, folder, color)
}

// SetFolderOrder はフォルダの表示順を設定します
func (a *App) SetFolderOrder(view string, folders []string) (*Settings, error) {
	return a.settingsService.SetFolderOrder(view, folders)
}

// SetNoteOrder はフォルダ内のノートの並び順を設定します
func (a *App) SetNoteOrder(view, folder string, noteIDs []string) (*Settings, error) {
	return a.settingsService.SetNoteOrder(view, folder, noteIDs)
}

// ------------------------------------------------------------
// エクスポート・インポート
// ------------------------------------------------------------

// ExportNotesToFile は保存先を選択させて全ノートを書き出します
func (a *App) ExportNotesToFile() (int, error) {
	path, err := a.transferService.SelectExportPath()
	if err != nil || path == "" {
		return 0, err
	}
	count, err := a.transferService.ExportNotes(path)
	if err != nil {
		return 0, a.logger.Error(err, "Failed to export notes")
	}
	a.logger.Info("Exported %d notes to %s", count, path)
	return count, nil
}

// ImportNotesFromFile はファイルを選択させてノートを取り込みます
func (a *App) ImportNotesFromFile(mode ImportMode) (*ImportResult, error) {
	path, err := a.transferService.SelectImportPath()
	if err != nil || path == "" {
		return nil, err
	}
	result, err := a.transferService.ImportNotes(path, mode)
	if err != nil {
		return nil, a.logger.Error(err, "Failed to import notes")
	}
	a.logger.Info("Import complete: %d added, %d replaced", result.Added, result.Replaced)
	if !a.logger.IsTestMode() {
		wailsRuntime.EventsEmit(a.ctx.ctx, "notes:reload")
	}
	return result, nil
}

// ------------------------------------------------------------
// リモート同期
// ------------------------------------------------------------

// ConnectDrive は手動認証フローを開始し、成功したら同期を開始します
func (a *App) ConnectDrive() error {
	if err := a.authService.StartManualAuth(); err != nil {
		return a.logger.ErrorWithNotify(err, "Failed to connect to Google Drive")
	}
	a.syncService = NewSyncService(a.ctx.ctx, a.noteService, a.authService.RemoteStore(), a.logger)
	a.pollingService = NewSyncPollingService(a.ctx.ctx, a.syncService, a.logger)
	a.pollingService.StartPolling()
	return nil
}

// LogoutDrive はリモート同期を停止してログアウトします
func (a *App) LogoutDrive() error {
	if a.pollingService != nil {
		a.pollingService.StopPolling()
		a.pollingService = nil
	}
	a.syncService = nil
	return a.authService.Logout()
}

// SyncNow は即時に同期を1回実行します
func (a *App) SyncNow() (*SyncResult, error) {
	if a.syncService == nil {
		return &SyncResult{}, nil
	}
	return a.syncService.SyncNotes()
}

// IsDriveConnected はリモート接続状態を返します
func (a *App) IsDriveConnected() bool {
	return a.authService != nil && a.authService.IsConnected()
}
