package backend

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// SettingsService は設定関連の操作を提供するインターフェースです
type SettingsService interface {
	LoadSettings() (*Settings, error)
	SaveSettings(settings *Settings) error
	SetPanelWidth(width int) (*Settings, error)
	SetSidebarCollapsed(collapsed bool) (*Settings, error)
	ToggleFolderCollapsed(view, folder string) (*Settings, error)
	SetFolderColor(view, folder, color string) (*Settings, error)
	SetFolderOrder(view string, folders []string) (*Settings, error)
	SetNoteOrder(view, folder string, noteIDs []string) (*Settings, error)
}

// settingsService はSettingsServiceの実装です
type settingsService struct {
	appDataDir string
}

// NewSettingsService は新しいsettingsServiceインスタンスを作成します
func NewSettingsService(appDataDir string) *settingsService {
	return &settingsService{
		appDataDir: appDataDir,
	}
}

// defaultSettings は初期状態の設定を返します
func defaultSettings() *Settings {
	return &Settings{
		PanelWidth:       480,
		SidebarCollapsed: false,
		IsDarkMode:       false,
		FontSize:         14,
		FolderPrefs:      map[string]*FolderPrefs{},
	}
}

// LoadSettings はsettings.jsonから設定を読み込みます
// ファイルが存在しない場合や壊れている場合はデフォルト設定を返します
func (s *settingsService) LoadSettings() (*Settings, error) {
	settingsPath := filepath.Join(s.appDataDir, "settings.json")

	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		return defaultSettings(), nil
	}

	data, err := os.ReadFile(settingsPath)
	if err != nil {
		return defaultSettings(), nil
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return defaultSettings(), nil
	}

	// 保存時に丸め損ねた値や手書きの値もここで許容範囲に寄せる
	settings.PanelWidth = clampPanelWidth(settings.PanelWidth)
	if settings.FolderPrefs == nil {
		settings.FolderPrefs = map[string]*FolderPrefs{}
	}

	return &settings, nil
}

// SaveSettings は設定をsettings.jsonに保存します
func (s *settingsService) SaveSettings(settings *Settings) error {
	settings.PanelWidth = clampPanelWidth(settings.PanelWidth)

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}

	settingsPath := filepath.Join(s.appDataDir, "settings.json")
	return os.WriteFile(settingsPath, data, 0644)
}

// SetPanelWidth はサイドパネル幅を更新します（許容範囲に丸められる）
func (s *settingsService) SetPanelWidth(width int) (*Settings, error) {
	return s.mutate(func(settings *Settings) {
		settings.PanelWidth = clampPanelWidth(width)
	})
}

// SetSidebarCollapsed はサイドバーの折りたたみ状態を更新します
func (s *settingsService) SetSidebarCollapsed(collapsed bool) (*Settings, error) {
	return s.mutate(func(settings *Settings) {
		settings.SidebarCollapsed = collapsed
	})
}

// ToggleFolderCollapsed は指定ビューのフォルダ折りたたみ状態を切り替えます
func (s *settingsService) ToggleFolderCollapsed(view, folder string) (*Settings, error) {
	return s.mutate(func(settings *Settings) {
		prefs := ensurePrefs(settings, view)
		for i, f := range prefs.CollapsedFolders {
			if f == folder {
				prefs.CollapsedFolders = append(prefs.CollapsedFolders[:i], prefs.CollapsedFolders[i+1:]...)
				return
			}
		}
		prefs.CollapsedFolders = append(prefs.CollapsedFolders, folder)
	})
}

// SetFolderColor は指定ビューのフォルダ表示色を設定します
func (s *settingsService) SetFolderColor(view, folder, color string) (*Settings, error) {
	return s.mutate(func(settings *Settings) {
		prefs := ensurePrefs(settings, view)
		if prefs.FolderColors == nil {
			prefs.FolderColors = map[string]string{}
		}
		if color == "" {
			delete(prefs.FolderColors, folder)
			return
		}
		prefs.FolderColors[folder] = color
	})
}

// SetFolderOrder は指定ビューのフォルダ表示順を設定します
func (s *settingsService) SetFolderOrder(view string, folders []string) (*Settings, error) {
	return s.mutate(func(settings *Settings) {
		ensurePrefs(settings, view).FolderOrder = folders
	})
}

// SetNoteOrder は指定ビュー・フォルダ内のノートの並び順を設定します
func (s *settingsService) SetNoteOrder(view, folder string, noteIDs []string) (*Settings, error) {
	return s.mutate(func(settings *Settings) {
		prefs := ensurePrefs(settings, view)
		if prefs.NoteOrder == nil {
			prefs.NoteOrder = map[string][]string{}
		}
		prefs.NoteOrder[folder] = noteIDs
	})
}

// mutate は読み込み→変更→保存の定型処理です
func (s *settingsService) mutate(fn func(*Settings)) (*Settings, error) {
	settings, err := s.LoadSettings()
	if err != nil {
		return nil, err
	}
	fn(settings)
	if err := s.SaveSettings(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// ensurePrefs はビューのFolderPrefsを取得（なければ作成）します
func ensurePrefs(settings *Settings, view string) *FolderPrefs {
	if settings.FolderPrefs == nil {
		settings.FolderPrefs = map[string]*FolderPrefs{}
	}
	prefs, ok := settings.FolderPrefs[view]
	if !ok {
		prefs = &FolderPrefs{}
		settings.FolderPrefs[view] = prefs
	}
	return prefs
}

func clampPanelWidth(width int) int {
	if width < MinPanelWidth {
		return MinPanelWidth
	}
	if width > MaxPanelWidth {
		return MaxPanelWidth
	}
	return width
}
