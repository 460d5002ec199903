/*
NoteServiceのテストスイート

このテストファイルは、ノートのCRUD操作・検索・
フォルダグルーピングを提供するNoteServiceの機能を検証するためのテストケースを含んでいます。

テストケース:
1. TestNewNoteService
   - NoteServiceの初期化が正しく行われることを確認
   - 初期状態でのnoteListの状態を検証

2. TestCreateNote
   - 新規ノートのデフォルト値（タイトル・フォルダ）を確認
   - 新規ノートがリスト先頭に追加されることを検証

3. TestUpdateNote
   - 部分更新がマージされ、未指定フィールドが保持されることを確認
   - UpdatedAtが必ず前回より大きくなることを検証
   - 存在しないIDの更新が何もしないことを検証

4. TestDeleteNote
   - ノートの削除とメタデータの除去を確認
   - 存在しないIDの削除が成功扱いになることを検証

5. TestSearchNotes
   - タイトル・本文に対する大文字小文字を区別しない部分一致検索を確認
   - 空の検索語が全ノートにマッチすることを検証

6. TestGroupByFolder
   - フォルダごとのグルーピングとピン留め優先の並び順を確認
   - カスタム順序リストとUpdatedAt降順のフォールバックを検証

7. TestNoteListReconcile
   - 物理ファイルとnoteListの整合が取られることを確認
*/

package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

// テストヘルパー構造体
type noteServiceTestHelper struct {
	tempDir     string
	notesDir    string
	noteService *noteService
}

// テストのセットアップ
func setupNoteTest(t *testing.T) *noteServiceTestHelper {
	// テスト用の一時ディレクトリを作成
	tempDir, err := os.MkdirTemp("", "note_service_test")
	if err != nil {
		t.Fatalf("一時ディレクトリの作成に失敗: %v", err)
	}

	// ノート保存用のディレクトリを作成
	notesDir := filepath.Join(tempDir, "notes")
	if err := os.MkdirAll(notesDir, 0755); err != nil {
		t.Fatalf("ノートディレクトリの作成に失敗: %v", err)
	}

	// NoteServiceの初期化
	logger := NewAppLogger(context.Background(), true, tempDir)
	noteService, err := NewNoteService(notesDir, logger)
	if err != nil {
		t.Fatalf("NoteServiceの作成に失敗: %v", err)
	}

	return &noteServiceTestHelper{
		tempDir:     tempDir,
		notesDir:    notesDir,
		noteService: noteService,
	}
}

// テストのクリーンアップ
func (h *noteServiceTestHelper) cleanup() {
	os.RemoveAll(h.tempDir)
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

// TestNewNoteService はNoteServiceの初期化をテストします
func TestNewNoteService(t *testing.T) {
	helper := setupNoteTest(t)
	defer helper.cleanup()

	assert.NotNil(t, helper.noteService)
	assert.NotNil(t, helper.noteService.noteList)
	assert.Equal(t, CurrentVersion, helper.noteService.noteList.Version)
	assert.Empty(t, helper.noteService.noteList.Notes)
}

// TestCreateNote は新規ノートの作成をテストします
func TestCreateNote(t *testing.T) {
	helper := setupNoteTest(t)
	defer helper.cleanup()

	// フォルダ未指定の場合はデフォルト値が使われる
	first, err := helper.noteService.CreateNote("")
	assert.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, DefaultNoteTitle, first.Title)
	assert.Equal(t, DefaultFolder, first.Folder)
	assert.Equal(t, first.CreatedAt, first.UpdatedAt)
	assert.False(t, first.IsPinned)

	second, err := helper.noteService.CreateNote("Work")
	assert.NoError(t, err)
	assert.Equal(t, "Work", second.Folder)

	// 新しいノートがリスト先頭に来る
	notes, err := helper.noteService.ListNotes()
	assert.NoError(t, err)
	assert.Len(t, notes, 2)
	assert.Equal(t, second.ID, notes[0].ID)
	assert.Equal(t, first.ID, notes[1].ID)
}

// TestUpdateNote はノートの部分更新をテストします
func TestUpdateNote(t *testing.T) {
	helper := setupNoteTest(t)
	defer helper.cleanup()

	note, err := helper.noteService.CreateNote("")
	assert.NoError(t, err)

	// タイトルのみ更新、他のフィールドは保持される
	updated, err := helper.noteService.UpdateNote(note.ID, NoteFields{Title: strPtr("買い物リスト")})
	assert.NoError(t, err)
	assert.Equal(t, "買い物リスト", updated.Title)
	assert.Equal(t, note.Content, updated.Content)
	assert.Equal(t, note.Folder, updated.Folder)
	assert.Equal(t, note.CreatedAt, updated.CreatedAt)
	assert.Greater(t, updated.UpdatedAt, note.UpdatedAt)

	// 連続更新でもUpdatedAtは必ず増加する
	again, err := helper.noteService.UpdateNote(note.ID, NoteFields{Content: strPtr("- 牛乳")})
	assert.NoError(t, err)
	assert.Greater(t, again.UpdatedAt, updated.UpdatedAt)
	assert.Equal(t, "買い物リスト", again.Title)

	// 空のタイトル・フォルダはデフォルト値に戻る
	blanked, err := helper.noteService.UpdateNote(note.ID, NoteFields{Title: strPtr(""), Folder: strPtr("")})
	assert.NoError(t, err)
	assert.Equal(t, DefaultNoteTitle, blanked.Title)
	assert.Equal(t, DefaultFolder, blanked.Folder)

	// 存在しないIDの更新は何もしない
	missing, err := helper.noteService.UpdateNote("no-such-id", NoteFields{Title: strPtr("x")})
	assert.NoError(t, err)
	assert.Nil(t, missing)
	notes, _ := helper.noteService.ListNotes()
	assert.Len(t, notes, 1)
}

// TestDeleteNote はノートの削除をテストします
func TestDeleteNote(t *testing.T) {
	helper := setupNoteTest(t)
	defer helper.cleanup()

	note, err := helper.noteService.CreateNote("")
	assert.NoError(t, err)

	err = helper.noteService.DeleteNote(note.ID)
	assert.NoError(t, err)

	_, err = helper.noteService.LoadNote(note.ID)
	assert.Error(t, err)
	assert.Empty(t, helper.noteService.noteList.Notes)

	// 存在しないIDの削除は成功扱い
	err = helper.noteService.DeleteNote("no-such-id")
	assert.NoError(t, err)
}

// TestSearchNotes はノート検索をテストします
func TestSearchNotes(t *testing.T) {
	notes := []Note{
		{ID: "1", Title: "Meeting Notes", Content: "agenda for monday"},
		{ID: "2", Title: "買い物リスト", Content: "牛乳とパン"},
		{ID: "3", Title: "Ideas", Content: "Monorepo migration plan"},
	}

	// タイトルに対する大文字小文字を区別しない一致
	matched := SearchNotes(notes, "meeting")
	assert.Len(t, matched, 1)
	assert.Equal(t, "1", matched[0].ID)

	// 本文に対する一致（複数件）
	matched = SearchNotes(notes, "MON")
	assert.Len(t, matched, 2)
	assert.Equal(t, "1", matched[0].ID)
	assert.Equal(t, "3", matched[1].ID)

	// 日本語の部分一致
	matched = SearchNotes(notes, "牛乳")
	assert.Len(t, matched, 1)
	assert.Equal(t, "2", matched[0].ID)

	// 空の検索語は全ノートにマッチ
	assert.Len(t, SearchNotes(notes, ""), 3)

	// マッチなし
	assert.Empty(t, SearchNotes(notes, "zzz"))
}

// TestGroupByFolder はフォルダグルーピングと並び順をテストします
func TestGroupByFolder(t *testing.T) {
	notes := []Note{
		{ID: "a", Folder: "Work", UpdatedAt: 100},
		{ID: "b", Folder: "Work", UpdatedAt: 300},
		{ID: "c", Folder: "Work", UpdatedAt: 200, IsPinned: true},
		{ID: "d", Folder: "", UpdatedAt: 400},
	}

	// カスタム順序なし：ピン留めが先頭、残りはUpdatedAt降順
	groups := GroupByFolder(notes, nil)
	assert.Len(t, groups, 2)
	work := groups["Work"]
	assert.Equal(t, []string{"c", "b", "a"}, noteIDs(work))

	// フォルダ未設定のノートはデフォルトフォルダに入る
	assert.Equal(t, []string{"d"}, noteIDs(groups[DefaultFolder]))

	// カスタム順序あり：順序リストのノートがその順で並び、ピン留めはなお先頭
	prefs := &FolderPrefs{
		NoteOrder: map[string][]string{
			"Work": {"a", "b"},
		},
	}
	groups = GroupByFolder(notes, prefs)
	assert.Equal(t, []string{"c", "a", "b"}, noteIDs(groups["Work"]))

	// 順序リストにないノートは後ろに回る
	notes = append(notes, Note{ID: "e", Folder: "Work", UpdatedAt: 500})
	groups = GroupByFolder(notes, prefs)
	assert.Equal(t, []string{"c", "a", "b", "e"}, noteIDs(groups["Work"]))
}

func noteIDs(notes []Note) []string {
	ids := make([]string, len(notes))
	for i, n := range notes {
		ids[i] = n.ID
	}
	return ids
}

// TestNoteListReconcile は物理ファイルとnoteListの整合をテストします
func TestNoteListReconcile(t *testing.T) {
	helper := setupNoteTest(t)
	defer helper.cleanup()

	note, err := helper.noteService.CreateNote("")
	assert.NoError(t, err)

	// リストに載らないままノートファイルだけ置かれたケース
	orphan := &Note{ID: "orphan-1", Title: "迷子", Content: "x", Folder: DefaultFolder}
	data := []byte(`{"id":"orphan-1","title":"迷子","content":"x","folder":"General"}`)
	assert.NoError(t, os.WriteFile(filepath.Join(helper.notesDir, orphan.ID+".json"), data, 0644))

	// ファイルが消えたのにリストに残っているケース
	assert.NoError(t, os.Remove(filepath.Join(helper.notesDir, note.ID+".json")))

	// サービスを再作成すると整合が取られる
	logger := NewAppLogger(context.Background(), true, helper.tempDir)
	reloaded, err := NewNoteService(helper.notesDir, logger)
	assert.NoError(t, err)

	assert.Len(t, reloaded.noteList.Notes, 1)
	assert.Equal(t, "orphan-1", reloaded.noteList.Notes[0].ID)
}
