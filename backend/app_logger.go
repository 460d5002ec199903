package backend

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// AppLogger はログ出力とフロントエンド通知を担当するインターフェース
type AppLogger interface {
	NotifySyncStatus(ctx context.Context, status string)                 // 同期ステータスの通知
	NotifyFrontendSyncedAndReload(ctx context.Context)                   // フロントエンドの変更通知
	Console(format string, args ...interface{})                          // コンソール出力
	Info(format string, args ...interface{})                             // 情報メッセージ出力
	Error(err error, format string, args ...interface{}) error           // エラーメッセージ出力
	ErrorWithNotify(err error, format string, args ...interface{}) error // エラーメッセージ出力とフロントエンド通知
	IsTestMode() bool
}

// appLoggerImpl はAppLoggerの実装
type appLoggerImpl struct {
	ctx        context.Context
	isTestMode bool
	log        zerolog.Logger
	logFile    *os.File
}

// NewAppLogger は新しいAppLoggerインスタンスを作成
// ログはアプリデータディレクトリ内のタイムスタンプ付きファイルとコンソールに出力される
func NewAppLogger(ctx context.Context, isTestMode bool, appDataDir string) AppLogger {
	logDir := filepath.Join(appDataDir, "logs")
	os.MkdirAll(logDir, 0755)

	writers := []io.Writer{zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02 15:04:05"}}

	logPath := filepath.Join(logDir, fmt.Sprintf("app_%s.log", time.Now().Format("2006-01-02_15-04-05")))
	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Printf("Error opening log file: %v\n", err)
	} else {
		writers = append(writers, logFile)
	}

	log := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	if isTestMode {
		log = zerolog.Nop()
	}

	return &appLoggerImpl{
		ctx:        ctx,
		isTestMode: isTestMode,
		log:        log,
		logFile:    logFile,
	}
}

// ----------------------------------------------------------------
// 同期ステータスの通知
// ----------------------------------------------------------------

// 同期の状態をフロントエンドに通知
func (l *appLoggerImpl) NotifySyncStatus(ctx context.Context, status string) {
	if !l.isTestMode {
		wailsRuntime.EventsEmit(l.ctx, "sync:status", status)
	}
}

// フロントエンドに同期完了を通知してリロード
func (l *appLoggerImpl) NotifyFrontendSyncedAndReload(ctx context.Context) {
	if !l.isTestMode {
		wailsRuntime.EventsEmit(l.ctx, "notes:updated")
		wailsRuntime.EventsEmit(l.ctx, "sync:status", "synced")
		wailsRuntime.EventsEmit(l.ctx, "notes:reload")
	}
}

// ----------------------------------------------------------------
// ログメッセージの通知
// ----------------------------------------------------------------

// ログメッセージをコンソールとログファイルのみに出力
func (l *appLoggerImpl) Console(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}

// 情報メッセージをコンソールとフロントエンドに出力
func (l *appLoggerImpl) Info(format string, args ...interface{}) {
	l.log.Info().Msgf(format, args...)
	l.sendLogMessage(fmt.Sprintf(format, args...))
}

// エラーメッセージをコンソールとフロントエンドに出力し、エラーを返す
func (l *appLoggerImpl) Error(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	l.log.Error().Err(err).Msgf(format, args...)
	l.sendLogMessage(fmt.Sprintf(format, args...) + ": " + err.Error())
	return err
}

// ErrorWithNotify はエラーメッセージを出力し、さらにフロントエンドにエラー通知を送信
func (l *appLoggerImpl) ErrorWithNotify(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	l.Error(err, format, args...)
	if !l.isTestMode {
		wailsRuntime.EventsEmit(l.ctx, "app:error", fmt.Sprintf(format, args...))
	}
	return err
}

// ログメッセージをフロントエンドに送信
func (l *appLoggerImpl) sendLogMessage(message string) {
	if !l.isTestMode {
		wailsRuntime.EventsEmit(l.ctx, "app:log", message)
	}
}

func (l *appLoggerImpl) IsTestMode() bool {
	return l.isTestMode
}
