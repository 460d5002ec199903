package backend

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const CurrentVersion = "1.0"

// NoteService はノート関連の操作を提供するインターフェースです
type NoteService interface {
	ListNotes() ([]Note, error)                             // 全てのノートのリストを返す
	LoadNote(id string) (*Note, error)                      // 指定されたIDのノートを読み込む
	CreateNote(folder string) (*Note, error)                // 新しいノートを作成してリスト先頭に追加する
	UpdateNote(id string, fields NoteFields) (*Note, error) // 指定されたフィールドのみを更新する
	SaveNote(note *Note) error                              // ノートを保存する
	DeleteNote(id string) error                             // 指定されたIDのノートを削除する
}

// NoteFields は部分更新の対象フィールド（nilのフィールドは変更しない）
type NoteFields struct {
	Title    *string `json:"title,omitempty"`
	Content  *string `json:"content,omitempty"`
	Folder   *string `json:"folder,omitempty"`
	IsPinned *bool   `json:"isPinned,omitempty"`
}

// noteService はNoteServiceの実装です
type noteService struct {
	notesDir string
	noteList *NoteList
	logger   AppLogger
}

// NewNoteService は新しいnoteServiceインスタンスを作成します
func NewNoteService(notesDir string, logger AppLogger) (*noteService, error) {
	service := &noteService{
		notesDir: notesDir,
		noteList: &NoteList{
			Version: CurrentVersion,
			Notes:   []NoteMetadata{},
		},
		logger: logger,
	}

	// ノートリストの読み込み
	if err := service.loadNoteList(); err != nil {
		return nil, fmt.Errorf("failed to load note list: %v", err)
	}

	return service, nil
}

// ListNotes は全てのノートをリスト順（新しいものが先頭）で返します
func (s *noteService) ListNotes() ([]Note, error) {
	var notes []Note

	for _, metadata := range s.noteList.Notes {
		note, err := s.LoadNote(metadata.ID)
		if err != nil {
			// 読み込めないノートはスキップする（リスト全体は壊さない）
			s.logger.Console("Skipping unreadable note: %s", metadata.ID)
			continue
		}
		notes = append(notes, *note)
	}

	return notes, nil
}

// LoadNote は指定されたIDのノートを読み込みます
func (s *noteService) LoadNote(id string) (*Note, error) {
	notePath := filepath.Join(s.notesDir, id+".json")
	data, err := os.ReadFile(notePath)
	if err != nil {
		return nil, err
	}

	var note Note
	if err := json.Unmarshal(data, &note); err != nil {
		return nil, err
	}

	return &note, nil
}

// CreateNote は新しいノートを作成してコレクションの先頭に追加します
// フォルダが空の場合はデフォルトフォルダに置かれます
func (s *noteService) CreateNote(folder string) (*Note, error) {
	if folder == "" {
		folder = DefaultFolder
	}

	now := nowUnixMilli()
	note := &Note{
		ID:        uuid.NewString(),
		Title:     DefaultNoteTitle,
		Content:   "",
		Folder:    folder,
		IsPinned:  false,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.writeNoteFile(note); err != nil {
		return nil, err
	}

	// 新しいノートはリストの先頭に追加（新しいものが先頭の既定順）
	s.noteList.Notes = append([]NoteMetadata{metadataOf(note)}, s.noteList.Notes...)
	if err := s.saveNoteList(); err != nil {
		return nil, err
	}

	return note, nil
}

// UpdateNote は指定されたフィールドのみをマージしてUpdatedAtを更新します
// IDが存在しない場合は何もしません
func (s *noteService) UpdateNote(id string, fields NoteFields) (*Note, error) {
	note, err := s.LoadNote(id)
	if err != nil {
		// 存在しないIDの更新は何もしない
		return nil, nil
	}

	if fields.Title != nil {
		note.Title = *fields.Title
		if note.Title == "" {
			note.Title = DefaultNoteTitle
		}
	}
	if fields.Content != nil {
		note.Content = *fields.Content
	}
	if fields.Folder != nil {
		note.Folder = *fields.Folder
		if note.Folder == "" {
			note.Folder = DefaultFolder
		}
	}
	if fields.IsPinned != nil {
		note.IsPinned = *fields.IsPinned
	}

	// UpdatedAtは必ず前回より後の値にする
	now := nowUnixMilli()
	if now <= note.UpdatedAt {
		now = note.UpdatedAt + 1
	}
	note.UpdatedAt = now

	if err := s.SaveNote(note); err != nil {
		return nil, err
	}
	return note, nil
}

// SaveNote はノートを保存しメタデータを更新します
// 既存のノートはリスト内の位置を維持し、新規ノートは先頭に追加されます
func (s *noteService) SaveNote(note *Note) error {
	if err := s.writeNoteFile(note); err != nil {
		return err
	}

	found := false
	for i, metadata := range s.noteList.Notes {
		if metadata.ID == note.ID {
			s.noteList.Notes[i] = metadataOf(note)
			found = true
			break
		}
	}
	if !found {
		s.noteList.Notes = append([]NoteMetadata{metadataOf(note)}, s.noteList.Notes...)
	}

	return s.saveNoteList()
}

// DeleteNote は指定されたIDのノートを削除します
// 存在しないIDの削除は黙って成功します（冪等）
func (s *noteService) DeleteNote(id string) error {
	notePath := filepath.Join(s.notesDir, id+".json")
	if err := os.Remove(notePath); err != nil && !os.IsNotExist(err) {
		return err
	}

	// ノートリストから削除
	updatedNotes := make([]NoteMetadata, 0, len(s.noteList.Notes))
	for _, metadata := range s.noteList.Notes {
		if metadata.ID != id {
			updatedNotes = append(updatedNotes, metadata)
		}
	}
	s.noteList.Notes = updatedNotes

	return s.saveNoteList()
}

// ReplaceAllNotes はコレクション全体を指定されたノート群で置き換えます
// インポートのreplaceモードで使用されます
func (s *noteService) ReplaceAllNotes(notes []Note) error {
	// 既存のノートファイルを削除
	for _, metadata := range s.noteList.Notes {
		os.Remove(filepath.Join(s.notesDir, metadata.ID+".json"))
	}

	s.noteList.Notes = make([]NoteMetadata, 0, len(notes))
	for i := range notes {
		if err := s.writeNoteFile(&notes[i]); err != nil {
			return err
		}
		s.noteList.Notes = append(s.noteList.Notes, metadataOf(&notes[i]))
	}

	return s.saveNoteList()
}

// ------------------------------------------------------------
// 検索とフォルダグルーピング
// ------------------------------------------------------------

// SearchNotes はタイトルまたは本文に対する大文字小文字を区別しない部分一致検索です
// 空の検索語は全てのノートにマッチします
func SearchNotes(notes []Note, term string) []Note {
	if term == "" {
		return notes
	}
	lower := strings.ToLower(term)
	var matched []Note
	for _, note := range notes {
		if strings.Contains(strings.ToLower(note.Title), lower) ||
			strings.Contains(strings.ToLower(note.Content), lower) {
			matched = append(matched, note)
		}
	}
	return matched
}

// GroupByFolder はノートをフォルダごとにグルーピングします
// 各フォルダ内の並び順:
//  1. ピン留めされたノートが先頭
//  2. フォルダごとのカスタム順序リストにあるノート（リスト順）
//  3. リストにないノートはUpdatedAtの降順
func GroupByFolder(notes []Note, prefs *FolderPrefs) map[string][]Note {
	groups := make(map[string][]Note)
	for _, note := range notes {
		folder := note.Folder
		if folder == "" {
			folder = DefaultFolder
		}
		groups[folder] = append(groups[folder], note)
	}

	for folder, group := range groups {
		var order []string
		if prefs != nil && prefs.NoteOrder != nil {
			order = prefs.NoteOrder[folder]
		}
		sortFolderGroup(group, order)
		groups[folder] = group
	}

	return groups
}

func sortFolderGroup(group []Note, order []string) {
	orderIndex := make(map[string]int, len(order))
	for i, id := range order {
		orderIndex[id] = i
	}

	sort.SliceStable(group, func(i, j int) bool {
		a, b := group[i], group[j]
		if a.IsPinned != b.IsPinned {
			return a.IsPinned
		}
		ia, oka := orderIndex[a.ID]
		ib, okb := orderIndex[b.ID]
		if oka && okb {
			if ia != ib {
				return ia < ib
			}
			return a.UpdatedAt > b.UpdatedAt
		}
		if oka != okb {
			// カスタム順序にあるノートが先
			return oka
		}
		return a.UpdatedAt > b.UpdatedAt
	})
}

// ------------------------------------------------------------
// 永続化
// ------------------------------------------------------------

// writeNoteFile はノートをJSONファイルとして保存します
func (s *noteService) writeNoteFile(note *Note) error {
	data, err := json.MarshalIndent(note, "", "  ")
	if err != nil {
		return err
	}
	notePath := filepath.Join(s.notesDir, note.ID+".json")
	return os.WriteFile(notePath, data, 0644)
}

// metadataOf はノートからメタデータを作成します
func metadataOf(note *Note) NoteMetadata {
	h := sha256.Sum256([]byte(note.Content))
	return NoteMetadata{
		ID:          note.ID,
		Title:       note.Title,
		Folder:      note.Folder,
		IsPinned:    note.IsPinned,
		CreatedAt:   note.CreatedAt,
		UpdatedAt:   note.UpdatedAt,
		ContentHash: fmt.Sprintf("%x", h),
	}
}

// loadNoteList はノートリストをJSONファイルから読み込みます
// 読み込みに失敗した場合は空のリストから開始します（呼び出し元を壊さない）
func (s *noteService) loadNoteList() error {
	noteListPath := filepath.Join(filepath.Dir(s.notesDir), "noteList.json")

	// ノートリストファイルが存在しない場合は新規作成
	if _, err := os.Stat(noteListPath); os.IsNotExist(err) {
		s.noteList = &NoteList{
			Version:  CurrentVersion,
			Notes:    []NoteMetadata{},
			LastSync: time.Now(),
		}
		return s.saveNoteList()
	}

	data, err := os.ReadFile(noteListPath)
	if err != nil {
		s.logger.Console("Failed to read note list, starting empty: %v", err)
		return s.saveNoteList()
	}

	if err := json.Unmarshal(data, &s.noteList); err != nil {
		s.logger.Console("Corrupt note list, starting empty: %v", err)
		s.noteList = &NoteList{Version: CurrentVersion, Notes: []NoteMetadata{}}
		return s.saveNoteList()
	}

	return s.reconcileNoteList()
}

// saveNoteList はノートリストをJSONファイルとして保存します
func (s *noteService) saveNoteList() error {
	data, err := json.MarshalIndent(s.noteList, "", "  ")
	if err != nil {
		return err
	}

	noteListPath := filepath.Join(filepath.Dir(s.notesDir), "noteList.json")
	return os.WriteFile(noteListPath, data, 0644)
}

// reconcileNoteList は物理ファイルとノートリストの整合を取ります
// ファイルだけあるノートはリストに追加し、ファイルのないエントリは除去します
func (s *noteService) reconcileNoteList() error {
	files, err := os.ReadDir(s.notesDir)
	if err != nil {
		return err
	}

	physicalNotes := make(map[string]bool)
	for _, file := range files {
		if filepath.Ext(file.Name()) != ".json" {
			continue
		}
		noteID := strings.TrimSuffix(file.Name(), ".json")
		physicalNotes[noteID] = true

		found := false
		for _, metadata := range s.noteList.Notes {
			if metadata.ID == noteID {
				found = true
				break
			}
		}

		if !found {
			note, err := s.LoadNote(noteID)
			if err != nil {
				continue
			}
			s.noteList.Notes = append(s.noteList.Notes, metadataOf(note))
		}
	}

	validNotes := make([]NoteMetadata, 0, len(s.noteList.Notes))
	for _, metadata := range s.noteList.Notes {
		if physicalNotes[metadata.ID] {
			validNotes = append(validNotes, metadata)
		}
	}
	s.noteList.Notes = validNotes

	return s.saveNoteList()
}
