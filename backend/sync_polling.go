package backend

import (
	"context"
	"sync"
	"time"
)

// リモート同期ポーリングの固定間隔
const pollInterval = 15 * time.Second

// syncPollingService はリモート同期の定期ポーリングを管理するサービス
// ポーリングはUIの表示状態に合わせてStart/Stopされる
type syncPollingService struct {
	ctx         context.Context
	syncService *syncService
	logger      AppLogger

	mu       sync.Mutex
	stopChan chan struct{}
	running  bool
}

// NewSyncPollingService は新しいsyncPollingServiceインスタンスを作成します
func NewSyncPollingService(ctx context.Context, syncService *syncService, logger AppLogger) *syncPollingService {
	return &syncPollingService{
		ctx:         ctx,
		syncService: syncService,
		logger:      logger,
	}
}

// StartPolling はポーリングを開始します
// すでに実行中の場合は何もしません
func (p *syncPollingService) StartPolling() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopChan = make(chan struct{})
	stopChan := p.stopChan
	p.mu.Unlock()

	p.syncService.Activate()
	p.logger.Console("Polling started (interval: %s)", pollInterval)

	go p.pollLoop(stopChan)
}

// pollLoop は固定間隔でSyncNotesを呼び出します
// 停止時に実行中の同期は完了まで走るが、結果はactiveフラグにより破棄される
func (p *syncPollingService) pollLoop(stopChan chan struct{}) {
	// 開始直後に初回同期を行う
	if _, err := p.syncService.SyncNotes(); err != nil {
		p.logger.Error(err, "Initial sync failed")
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-stopChan:
			return
		case <-ticker.C:
			if _, err := p.syncService.SyncNotes(); err != nil {
				p.logger.Error(err, "Periodic sync failed")
			}
		}
	}
}

// StopPolling はポーリングを停止します
// 停止は協調的：タイマーは即座に解除され、実行中の同期の結果は無視される
func (p *syncPollingService) StopPolling() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	close(p.stopChan)
	p.stopChan = nil

	p.syncService.Deactivate()
	p.logger.Console("Polling stopped")
}

// IsRunning はポーリングが実行中かどうかを返します
func (p *syncPollingService) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
