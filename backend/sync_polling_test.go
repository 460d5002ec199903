/*
SyncPollingServiceのテストスイート

テストケース:
1. TestStartStopPolling
   - 開始・停止が同期機能の有効状態と連動することを確認
   - 二重開始・二重停止が安全であることを検証

2. TestPollingRunsInitialSync
   - ポーリング開始直後に初回同期が実行されることを確認
*/

package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// テストのセットアップ
func setupPollingTest(t *testing.T) (*syncTestHelper, *syncPollingService) {
	helper := setupSyncTest(t)
	helper.syncService.Deactivate()

	logger := NewAppLogger(context.Background(), true, helper.tempDir)
	polling := NewSyncPollingService(context.Background(), helper.syncService, logger)
	return helper, polling
}

// TestStartStopPolling はポーリングの開始と停止をテストします
func TestStartStopPolling(t *testing.T) {
	helper, polling := setupPollingTest(t)
	defer helper.cleanup()

	assert.False(t, polling.IsRunning())

	polling.StartPolling()
	assert.True(t, polling.IsRunning())
	assert.True(t, helper.syncService.IsActive())

	// 二重開始は無害
	polling.StartPolling()
	assert.True(t, polling.IsRunning())

	polling.StopPolling()
	assert.False(t, polling.IsRunning())
	assert.False(t, helper.syncService.IsActive())

	// 二重停止も無害
	polling.StopPolling()
	assert.False(t, polling.IsRunning())
}

// TestPollingRunsInitialSync はポーリング開始直後の初回同期をテストします
func TestPollingRunsInitialSync(t *testing.T) {
	helper, polling := setupPollingTest(t)
	defer helper.cleanup()

	helper.remote.notes["remote-1"] = Note{ID: "remote-1", Title: "リモートのノート", UpdatedAt: 100}

	polling.StartPolling()
	defer polling.StopPolling()

	// 初回同期が完了するのを待つ
	assert.Eventually(t, func() bool {
		_, err := helper.noteService.LoadNote("remote-1")
		return err == nil
	}, 3*time.Second, 10*time.Millisecond)
}
