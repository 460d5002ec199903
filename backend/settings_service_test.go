/*
SettingsServiceのテストスイート

このテストファイルは、アプリケーション設定の永続化と
フォルダ表示設定の管理を検証するためのテストケースを含んでいます。

テストケース:
1. TestLoadSettingsDefaults
   - 設定ファイルがない場合にデフォルト設定が返されることを確認
   - 壊れた設定ファイルでもデフォルト設定に縮退することを検証

2. TestPanelWidthClamp
   - サイドパネル幅が許容範囲に丸められることを確認
   - 手書きされた範囲外の値も読み込み時に丸められることを検証

3. TestFolderPrefs
   - フォルダの折りたたみトグル・色・並び順の設定を確認
   - ビューごとに設定が独立して保持されることを検証
*/

package backend

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

// テストのセットアップ
func setupSettingsTest(t *testing.T) (*settingsService, func()) {
	tempDir, err := os.MkdirTemp("", "settings_service_test")
	if err != nil {
		t.Fatalf("一時ディレクトリの作成に失敗: %v", err)
	}
	return NewSettingsService(tempDir), func() { os.RemoveAll(tempDir) }
}

// TestLoadSettingsDefaults は設定ファイルがない場合の挙動をテストします
func TestLoadSettingsDefaults(t *testing.T) {
	service, cleanup := setupSettingsTest(t)
	defer cleanup()

	settings, err := service.LoadSettings()
	assert.NoError(t, err)
	assert.Equal(t, 480, settings.PanelWidth)
	assert.False(t, settings.SidebarCollapsed)
	assert.Equal(t, 14, settings.FontSize)
	assert.NotNil(t, settings.FolderPrefs)

	// 壊れた設定ファイルはデフォルト設定に縮退する
	settingsPath := filepath.Join(service.appDataDir, "settings.json")
	assert.NoError(t, os.WriteFile(settingsPath, []byte("{broken"), 0644))

	settings, err = service.LoadSettings()
	assert.NoError(t, err)
	assert.Equal(t, 480, settings.PanelWidth)
}

// TestPanelWidthClamp はサイドパネル幅の丸めをテストします
func TestPanelWidthClamp(t *testing.T) {
	service, cleanup := setupSettingsTest(t)
	defer cleanup()

	// 範囲内の値はそのまま
	settings, err := service.SetPanelWidth(600)
	assert.NoError(t, err)
	assert.Equal(t, 600, settings.PanelWidth)

	// 下限未満は下限に丸められる
	settings, err = service.SetPanelWidth(10)
	assert.NoError(t, err)
	assert.Equal(t, MinPanelWidth, settings.PanelWidth)

	// 上限超過は上限に丸められる
	settings, err = service.SetPanelWidth(99999)
	assert.NoError(t, err)
	assert.Equal(t, MaxPanelWidth, settings.PanelWidth)

	// 手書きされた範囲外の値も読み込み時に丸められる
	settingsPath := filepath.Join(service.appDataDir, "settings.json")
	assert.NoError(t, os.WriteFile(settingsPath, []byte(`{"panelWidth": 50}`), 0644))
	settings, err = service.LoadSettings()
	assert.NoError(t, err)
	assert.Equal(t, MinPanelWidth, settings.PanelWidth)
}

// TestFolderPrefs はフォルダ表示設定をテストします
func TestFolderPrefs(t *testing.T) {
	service, cleanup := setupSettingsTest(t)
	defer cleanup()

	// 折りたたみトグル：1回目で折りたたみ、2回目で展開
	settings, err := service.ToggleFolderCollapsed(ViewMyNotes, "Work")
	assert.NoError(t, err)
	assert.Equal(t, []string{"Work"}, settings.FolderPrefs[ViewMyNotes].CollapsedFolders)

	settings, err = service.ToggleFolderCollapsed(ViewMyNotes, "Work")
	assert.NoError(t, err)
	assert.Empty(t, settings.FolderPrefs[ViewMyNotes].CollapsedFolders)

	// フォルダの色設定と解除
	settings, err = service.SetFolderColor(ViewMyNotes, "Work", "#ff9800")
	assert.NoError(t, err)
	assert.Equal(t, "#ff9800", settings.FolderPrefs[ViewMyNotes].FolderColors["Work"])

	settings, err = service.SetFolderColor(ViewMyNotes, "Work", "")
	assert.NoError(t, err)
	assert.NotContains(t, settings.FolderPrefs[ViewMyNotes].FolderColors, "Work")

	// フォルダとノートの並び順
	settings, err = service.SetFolderOrder(ViewMyNotes, []string{"Work", "General"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"Work", "General"}, settings.FolderPrefs[ViewMyNotes].FolderOrder)

	settings, err = service.SetNoteOrder(ViewMyNotes, "Work", []string{"n1", "n2"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"n1", "n2"}, settings.FolderPrefs[ViewMyNotes].NoteOrder["Work"])

	// ビューごとに設定は独立している
	settings, err = service.ToggleFolderCollapsed(ViewTeamNotes, "Shared")
	assert.NoError(t, err)
	assert.Equal(t, []string{"Shared"}, settings.FolderPrefs[ViewTeamNotes].CollapsedFolders)
	assert.Empty(t, settings.FolderPrefs[ViewMyNotes].CollapsedFolders)

	// 設定は再読み込み後も保持される
	reloaded, err := service.LoadSettings()
	assert.NoError(t, err)
	assert.Equal(t, []string{"Work", "General"}, reloaded.FolderPrefs[ViewMyNotes].FolderOrder)
}
