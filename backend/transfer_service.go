package backend

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// エクスポートファイルの形式
type exportEnvelope struct {
	Version    string `json:"version"`
	ExportedAt int64  `json:"exportedAt"`
	Notes      []Note `json:"notes"`
}

// TransferService はノートのエクスポート・インポートを提供するインターフェースです
type TransferService interface {
	ExportNotes(filePath string) (int, error)
	ImportNotes(filePath string, mode ImportMode) (*ImportResult, error)
	SelectExportPath() (string, error)
	SelectImportPath() (string, error)
}

// transferService はTransferServiceの実装です
type transferService struct {
	ctx         *Context
	noteService *noteService
	logger      AppLogger
}

// NewTransferService は新しいtransferServiceインスタンスを作成します
func NewTransferService(ctx *Context, noteService *noteService, logger AppLogger) *transferService {
	return &transferService{
		ctx:         ctx,
		noteService: noteService,
		logger:      logger,
	}
}

// ExportNotes は全てのノートをJSONファイルに書き出し、件数を返します
func (s *transferService) ExportNotes(filePath string) (int, error) {
	notes, err := s.noteService.ListNotes()
	if err != nil {
		return 0, err
	}
	if notes == nil {
		notes = []Note{}
	}

	envelope := exportEnvelope{
		Version:    CurrentVersion,
		ExportedAt: nowUnixMilli(),
		Notes:      notes,
	}

	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return 0, err
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return 0, err
	}
	return len(notes), nil
}

// ImportNotes はJSONファイルからノートを読み込みます
// mergeモードでは既存にないIDのノートだけを追加し、
// replaceモードでは既存のノートを破棄してインポート内容で置き換えます
func (s *transferService) ImportNotes(filePath string, mode ImportMode) (*ImportResult, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	imported, err := decodeImportPayload(data)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	switch mode {
	case ImportModeReplace:
		if err := s.noteService.ReplaceAllNotes(imported); err != nil {
			return nil, err
		}
		result.Replaced = len(imported)

	default: // merge
		existing := make(map[string]bool, len(s.noteService.noteList.Notes))
		for _, metadata := range s.noteService.noteList.Notes {
			existing[metadata.ID] = true
		}
		for i := range imported {
			if existing[imported[i].ID] {
				continue
			}
			if err := s.noteService.SaveNote(&imported[i]); err != nil {
				return nil, err
			}
			result.Added++
		}
	}

	return result, nil
}

// decodeImportPayload はエンベロープ形式と素のノート配列の両方を受け付けます
func decodeImportPayload(data []byte) ([]Note, error) {
	var envelope exportEnvelope
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Notes != nil {
		return envelope.Notes, nil
	}

	var notes []Note
	if err := json.Unmarshal(data, &notes); err != nil {
		return nil, fmt.Errorf("unrecognized import file format: %v", err)
	}
	return notes, nil
}

// SelectExportPath は保存ダイアログを表示し、選択された保存先のパスを返します
func (s *transferService) SelectExportPath() (string, error) {
	defaultName := fmt.Sprintf("notes_export_%s.json", time.Now().Format("2006-01-02"))
	return wailsRuntime.SaveFileDialog(s.ctx.ctx, wailsRuntime.SaveDialogOptions{
		Title:           "Please select export file path.",
		DefaultFilename: defaultName,
		Filters: []wailsRuntime.FileFilter{
			{
				DisplayName: "JSON Files (*.json)",
				Pattern:     "*.json",
			},
		},
	})
}

// SelectImportPath はファイル選択ダイアログを表示し、選択されたファイルのパスを返します
func (s *transferService) SelectImportPath() (string, error) {
	return wailsRuntime.OpenFileDialog(s.ctx.ctx, wailsRuntime.OpenDialogOptions{
		Title: "Please select a file to import.",
		Filters: []wailsRuntime.FileFilter{
			{
				DisplayName: "JSON Files (*.json)",
				Pattern:     "*.json",
			},
		},
	})
}
