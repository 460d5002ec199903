package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"google.golang.org/api/drive/v3"
)

// Google Drive上のフォルダ構成
const (
	driveRootFolderName  = "QuickNotepad"
	driveNotesFolderName = "notes"
)

// driveNoteStore はRemoteNoteStoreのGoogle Drive実装
// アプリ専用フォルダの下にノートごとの <id>.json を保存する
type driveNoteStore struct {
	service       *drive.Service
	logger        AppLogger
	rootFolderID  string
	notesFolderID string
}

// NewDriveNoteStore は新しいdriveNoteStoreインスタンスを作成します
func NewDriveNoteStore(service *drive.Service, logger AppLogger) *driveNoteStore {
	return &driveNoteStore{
		service: service,
		logger:  logger,
	}
}

// EnsureFolders はアプリ用フォルダの存在を確認し、なければ作成します
func (d *driveNoteStore) EnsureFolders(ctx context.Context) error {
	rootID, err := d.ensureFolder(driveRootFolderName, "root")
	if err != nil {
		return fmt.Errorf("failed to ensure root folder: %w", err)
	}
	notesID, err := d.ensureFolder(driveNotesFolderName, rootID)
	if err != nil {
		return fmt.Errorf("failed to ensure notes folder: %w", err)
	}
	d.rootFolderID = rootID
	d.notesFolderID = notesID
	return nil
}

// GetNotes はリモートの全ノートをダウンロードします
// 壊れたファイルはスキップし、処理全体は失敗させません
func (d *driveNoteStore) GetNotes(ctx context.Context) ([]Note, error) {
	query := fmt.Sprintf("'%s' in parents and trashed=false and mimeType='application/json'", d.notesFolderID)
	files, err := d.listFiles(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list remote notes: %w", err)
	}

	var notes []Note
	for _, file := range files {
		data, err := d.downloadFile(file.Id)
		if err != nil {
			d.logger.Console("Failed to download remote note %s: %v", file.Name, err)
			continue
		}
		var note Note
		if err := json.Unmarshal(data, &note); err != nil {
			d.logger.Console("Skipping corrupt remote note %s: %v", file.Name, err)
			continue
		}
		notes = append(notes, note)
	}
	return notes, nil
}

// SaveNote はノートをリモートに保存します（既存なら更新、なければ作成）
func (d *driveNoteStore) SaveNote(ctx context.Context, note *Note) error {
	data, err := json.MarshalIndent(note, "", "  ")
	if err != nil {
		return err
	}
	return d.ensureFile(note.ID+".json", d.notesFolderID, data)
}

// DeleteNote はリモートのノートを削除します
// 存在しない場合は成功扱いにします（冪等）
func (d *driveNoteStore) DeleteNote(ctx context.Context, id string) error {
	files, err := d.findByName(id+".json", d.notesFolderID)
	if err != nil {
		return err
	}
	for _, file := range files {
		if err := d.service.Files.Delete(file.Id).Do(); err != nil {
			return fmt.Errorf("failed to delete remote note: %w", err)
		}
	}
	return nil
}

// ------------------------------------------------------------
// Google Driveファイル操作
// ------------------------------------------------------------

// ensureFolder は指定された名前のフォルダを検索し、なければ作成してIDを返します
func (d *driveNoteStore) ensureFolder(name string, parentID string) (string, error) {
	query := fmt.Sprintf("name='%s' and '%s' in parents and mimeType='application/vnd.google-apps.folder' and trashed=false",
		name, parentID)
	files, err := d.listFiles(query)
	if err != nil {
		return "", err
	}
	if len(files) > 0 {
		return files[0].Id, nil
	}

	folder := &drive.File{
		Name:     name,
		Parents:  []string{parentID},
		MimeType: "application/vnd.google-apps.folder",
	}
	created, err := d.service.Files.Create(folder).Fields("id").Do()
	if err != nil {
		return "", err
	}
	return created.Id, nil
}

// ensureFile はファイルの存在確認と作成/更新を行います
// 同名の重複ファイルがある場合は最新のものを残して整理します
func (d *driveNoteStore) ensureFile(name string, parentID string, content []byte) error {
	files, err := d.findByName(name, parentID)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		f := &drive.File{
			Name:     name,
			Parents:  []string{parentID},
			MimeType: "application/json",
		}
		_, err := d.service.Files.Create(f).
			Media(bytes.NewReader(content)).
			Do()
		if err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}
		return nil
	}

	latest := findLatestFile(files)
	for _, file := range files {
		if file.Id != latest.Id {
			d.service.Files.Delete(file.Id).Do()
		}
	}

	_, err = d.service.Files.Update(latest.Id, &drive.File{}).
		Media(bytes.NewReader(content)).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update file: %w", err)
	}
	return nil
}

func (d *driveNoteStore) findByName(name string, parentID string) ([]*drive.File, error) {
	query := fmt.Sprintf("name='%s' and '%s' in parents and trashed=false", name, parentID)
	return d.listFiles(query)
}

func (d *driveNoteStore) listFiles(query string) ([]*drive.File, error) {
	var files []*drive.File
	pageToken := ""
	for {
		call := d.service.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, modifiedTime)").
			PageSize(100)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return nil, err
		}
		files = append(files, list.Files...)
		if list.NextPageToken == "" {
			return files, nil
		}
		pageToken = list.NextPageToken
	}
}

func (d *driveNoteStore) downloadFile(fileID string) ([]byte, error) {
	resp, err := d.service.Files.Get(fileID).Download()
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// findLatestFile は複数のファイルから更新日時が最新のものを返します
func findLatestFile(files []*drive.File) *drive.File {
	latest := files[0]
	for _, file := range files[1:] {
		if file.ModifiedTime > latest.ModifiedTime {
			latest = file
		}
	}
	return latest
}
