package backend

import (
	"context"
	"fmt"
	"time"
)

// アプリケーションのメインの構造体
type App struct {
	ctx             *Context            // アプリケーションのコンテキスト
	appDataDir      string              // アプリケーションデータディレクトリのパス
	notesDir        string              // ノートファイル保存ディレクトリのパス
	logger          AppLogger           // アプリケーションのロガー
	noteService     *noteService        // ノート操作サービス
	settingsService *settingsService    // 設定操作サービス
	transferService *transferService    // エクスポート・インポートサービス
	authService     *driveAuthService   // Google Drive認証サービス
	syncService     *syncService        // リモート同期サービス
	pollingService  *syncPollingService // 同期ポーリングサービス
	session         *editSession        // 編集中ノートのセッション状態
	frontendReady   chan struct{}       // フロントエンドの準備完了を通知するチャネル
}

// アプリケーションのコンテキストを管理
type Context struct {
	ctx             context.Context
	skipBeforeClose bool // アプリケーション終了前の保存処理をスキップするかどうか
}

const (
	// ノートのデフォルト値
	DefaultFolder    = "General"
	DefaultNoteTitle = "Untitled Note"

	// サイドパネル幅の許容範囲（ピクセル）
	MinPanelWidth = 320
	MaxPanelWidth = 1200
)

// 表示ビューの識別子（フォルダ設定はビューごとに保持される）
const (
	ViewMyNotes   = "myNotes"
	ViewTeamNotes = "teamNotes"
)

// ノートの基本情報
type Note struct {
	ID        string `json:"id"`        // ノートの一意識別子
	Title     string `json:"title"`     // ノートのタイトル
	Content   string `json:"content"`   // マークダウン方言で表現された本文
	Folder    string `json:"folder"`    // 所属フォルダ名（実体のない整理用ラベル）
	IsPinned  bool   `json:"isPinned"`  // ピン留め状態（表示順のみに影響）
	CreatedAt int64  `json:"createdAt"` // 作成日時（エポックミリ秒）
	UpdatedAt int64  `json:"updatedAt"` // 最終更新日時（エポックミリ秒）
}

// ノートのメタデータのみを保持
type NoteMetadata struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Folder      string `json:"folder"`
	IsPinned    bool   `json:"isPinned"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
	ContentHash string `json:"contentHash"`
}

// ノートのリストを管理
type NoteList struct {
	Version  string         `json:"version"`
	Notes    []NoteMetadata `json:"notes"`
	LastSync time.Time      `json:"lastSync"`
}

// フォルダ表示の設定（ビューごとに保持）
type FolderPrefs struct {
	CollapsedFolders []string            `json:"collapsedFolders,omitempty"` // 折りたたみ中のフォルダ名
	FolderColors     map[string]string   `json:"folderColors,omitempty"`     // フォルダ名→表示色
	FolderOrder      []string            `json:"folderOrder,omitempty"`      // フォルダの表示順
	NoteOrder        map[string][]string `json:"noteOrder,omitempty"`        // フォルダ名→ノートIDの並び順
}

// アプリケーションの設定を管理
type Settings struct {
	PanelWidth       int                     `json:"panelWidth"`       // サイドパネル幅（許容範囲に丸められる）
	SidebarCollapsed bool                    `json:"sidebarCollapsed"` // サイドバーの折りたたみ状態
	IsDarkMode       bool                    `json:"isDarkMode"`
	FontSize         int                     `json:"fontSize"`
	FolderPrefs      map[string]*FolderPrefs `json:"folderPrefs,omitempty"` // ビュー識別子→フォルダ設定
}

// インポートのモード
type ImportMode string

const (
	ImportModeMerge   ImportMode = "merge"   // 既存にないIDのノートのみ追加
	ImportModeReplace ImportMode = "replace" // 既存を破棄してインポート内容で置き換え
)

// インポート結果の集計
type ImportResult struct {
	Added    int `json:"added"`    // 追加されたノート数
	Replaced int `json:"replaced"` // 置き換えで採用されたノート数
}

// リモート同期の結果
// 削除はSyncNotesを経由せずDeleteNoteEverywhereで即時に往復するため、
// ここに削除数のカウンタはない
type SyncResult struct {
	Uploaded   int
	Downloaded int
	Errors     int
}

func (r *SyncResult) HasChanges() bool {
	return r.Uploaded > 0 || r.Downloaded > 0 || r.Errors > 0
}

func (r *SyncResult) Summary() string {
	if !r.HasChanges() {
		return ""
	}
	s := "Sync complete:"
	if r.Uploaded > 0 {
		s += fmt.Sprintf(" ↑%d uploaded", r.Uploaded)
	}
	if r.Downloaded > 0 {
		s += fmt.Sprintf(" ↓%d downloaded", r.Downloaded)
	}
	if r.Errors > 0 {
		s += fmt.Sprintf(" ⚠%d errors", r.Errors)
	}
	return s
}

// nowUnixMilli は現在時刻をエポックミリ秒で返す
// テストから差し替えられるよう変数にしている
var nowUnixMilli = func() int64 {
	return time.Now().UnixMilli()
}
