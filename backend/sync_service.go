package backend

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bep/debounce"
)

// RemoteNoteStore はリモートのノートCRUD APIを抽象化するインターフェース
// 同期エンジンは具体的なトランスポートを知らない（Google Drive実装はdrive_store.go）
type RemoteNoteStore interface {
	GetNotes(ctx context.Context) ([]Note, error)
	SaveNote(ctx context.Context, note *Note) error
	DeleteNote(ctx context.Context, id string) error
}

// ノート保存からリモートアップロードまでの静止期間
// 連続した編集によるアップロードの連打を防ぐ
const uploadDebounceInterval = 2 * time.Second

// syncService はローカルとリモートの双方向同期を管理するサービス
type syncService struct {
	ctx         context.Context
	noteService *noteService
	remote      RemoteNoteStore
	logger      AppLogger

	syncMu sync.Mutex  // 同期処理の直列化
	active atomic.Bool // 同期機能が有効かどうか（無効化後に完了したポーリング結果は破棄する）

	pendingMu     sync.Mutex
	pendingPushes map[string]bool // アップロード待ちのノートID
	pushDebounced func(func())
}

// NewSyncService は新しいsyncServiceインスタンスを作成します
func NewSyncService(ctx context.Context, noteService *noteService, remote RemoteNoteStore, logger AppLogger) *syncService {
	return &syncService{
		ctx:           ctx,
		noteService:   noteService,
		remote:        remote,
		logger:        logger,
		pendingPushes: make(map[string]bool),
		pushDebounced: debounce.New(uploadDebounceInterval),
	}
}

// Activate は同期機能を有効にします
func (s *syncService) Activate() {
	s.active.Store(true)
}

// Deactivate は同期機能を無効にします
// 実行中の同期は完了まで走るが、その結果は適用されない
func (s *syncService) Deactivate() {
	s.active.Store(false)
}

// IsActive は同期機能が有効かどうかを返します
func (s *syncService) IsActive() bool {
	return s.active.Load()
}

// SyncNotes はリモートとの双方向同期を1回実行します
// 競合はUpdatedAtの新しい方を採用します（last-write-wins）
// リモート障害時はローカルのキャッシュが正となり、呼び出し元は停止しません
func (s *syncService) SyncNotes() (*SyncResult, error) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	result := &SyncResult{}
	if !s.active.Load() {
		return result, nil
	}

	s.logger.NotifySyncStatus(s.ctx, "syncing")

	remoteNotes, err := s.remote.GetNotes(s.ctx)
	if err != nil {
		result.Errors++
		s.logger.NotifySyncStatus(s.ctx, "offline")
		return result, s.logger.Error(err, "Failed to fetch remote notes")
	}

	// フェッチ中に機能が無効化された場合は結果を破棄する
	if !s.active.Load() {
		s.logger.Console("Sync result discarded: service deactivated during fetch")
		return result, nil
	}

	remoteByID := make(map[string]*Note, len(remoteNotes))
	for i := range remoteNotes {
		remoteByID[remoteNotes[i].ID] = &remoteNotes[i]
	}

	localByID := make(map[string]NoteMetadata, len(s.noteService.noteList.Notes))
	for _, metadata := range s.noteService.noteList.Notes {
		localByID[metadata.ID] = metadata
	}

	// リモートの変更を取り込む
	for id, remoteNote := range remoteByID {
		local, exists := localByID[id]
		if !exists {
			if err := s.noteService.SaveNote(remoteNote); err != nil {
				result.Errors++
				s.logger.Error(err, "Failed to store downloaded note: %s", id)
				continue
			}
			result.Downloaded++
			continue
		}
		if remoteNote.UpdatedAt > local.UpdatedAt {
			if err := s.noteService.SaveNote(remoteNote); err != nil {
				result.Errors++
				s.logger.Error(err, "Failed to update downloaded note: %s", id)
				continue
			}
			result.Downloaded++
		}
	}

	// ローカルの変更を送り出す
	for _, metadata := range localByID {
		remoteNote, exists := remoteByID[metadata.ID]
		if exists && remoteNote.UpdatedAt >= metadata.UpdatedAt {
			continue
		}
		note, err := s.noteService.LoadNote(metadata.ID)
		if err != nil {
			result.Errors++
			continue
		}
		if err := s.remote.SaveNote(s.ctx, note); err != nil {
			result.Errors++
			s.logger.Error(err, "Failed to upload note: %s", metadata.ID)
			continue
		}
		result.Uploaded++
	}

	s.noteService.noteList.LastSync = time.Now()
	if err := s.noteService.saveNoteList(); err != nil {
		s.logger.Error(err, "Failed to persist note list after sync")
	}

	if result.HasChanges() {
		s.logger.Info("%s", result.Summary())
		s.logger.NotifyFrontendSyncedAndReload(s.ctx)
	} else {
		s.logger.NotifySyncStatus(s.ctx, "synced")
	}

	return result, nil
}

// QueueNoteUpload はノートをアップロード待ちに登録します
// 静止期間内の連続した保存は1回のアップロードにまとめられる
// （キャンセル＆再スケジュール方式）
func (s *syncService) QueueNoteUpload(noteID string) {
	if !s.active.Load() {
		return
	}
	s.pendingMu.Lock()
	s.pendingPushes[noteID] = true
	s.pendingMu.Unlock()
	s.pushDebounced(s.flushPendingPushes)
}

// flushPendingPushes はアップロード待ちのノートをリモートに送信します
func (s *syncService) flushPendingPushes() {
	if !s.active.Load() {
		return
	}

	s.pendingMu.Lock()
	ids := make([]string, 0, len(s.pendingPushes))
	for id := range s.pendingPushes {
		ids = append(ids, id)
	}
	s.pendingPushes = make(map[string]bool)
	s.pendingMu.Unlock()

	for _, id := range ids {
		note, err := s.noteService.LoadNote(id)
		if err != nil {
			// すでにローカルで削除されたノートは送らない
			continue
		}
		if err := s.remote.SaveNote(s.ctx, note); err != nil {
			s.logger.Error(err, "Failed to upload note: %s", id)
		}
	}
}

// FlushPendingUploads は保留中のアップロードを即座に実行します（終了時用）
func (s *syncService) FlushPendingUploads() {
	s.flushPendingPushes()
}

// DeleteNoteEverywhere はノートをリモートとローカルの両方から削除します
// リモート側の削除が確認できるまでローカルからは削除しません
// activeフラグはポーリング結果の適用のみを制御するため、
// ユーザー操作による削除は無効中でもリモートへ届けます
func (s *syncService) DeleteNoteEverywhere(id string) error {
	if err := s.remote.DeleteNote(s.ctx, id); err != nil {
		return s.logger.Error(err, "Failed to delete note on remote: %s", id)
	}
	return s.noteService.DeleteNote(id)
}
