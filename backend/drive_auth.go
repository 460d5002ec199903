package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// 認証コールバックサーバーのポート
const authCallbackAddr = ":34115"

// driveAuthService はGoogle Driveの認証とトークン管理を担当するサービス
type driveAuthService struct {
	ctx        context.Context
	appDataDir string
	logger     AppLogger
	isTestMode bool

	config      *oauth2.Config
	server      *http.Server
	listener    net.Listener
	store       *driveNoteStore
	isConnected bool
}

// NewDriveAuthService は新しいdriveAuthServiceインスタンスを作成します
func NewDriveAuthService(ctx context.Context, appDataDir string, logger AppLogger, isTestMode bool) *driveAuthService {
	return &driveAuthService{
		ctx:        ctx,
		appDataDir: appDataDir,
		logger:     logger,
		isTestMode: isTestMode,
	}
}

// IsConnected は現在の接続状態を返します
func (a *driveAuthService) IsConnected() bool {
	return a.isConnected
}

// RemoteStore は接続済みのリモートストアを返します（未接続ならnil）
func (a *driveAuthService) RemoteStore() RemoteNoteStore {
	if !a.isConnected || a.store == nil {
		return nil
	}
	return a.store
}

// InitializeWithSavedToken は保存済みトークンがあれば自動的に接続を試みます
// 認証情報ファイルやトークンがない場合はエラーではなくfalseを返します
func (a *driveAuthService) InitializeWithSavedToken() (bool, error) {
	config, err := a.loadConfig()
	if err != nil {
		a.logger.Console("Drive credentials not available: %v", err)
		return false, nil
	}
	a.config = config

	token, err := a.loadToken()
	if err != nil {
		a.logger.Console("No saved token found or failed to load token")
		return false, nil
	}

	// トークンソースを作成（期限切れの場合はリフレッシュトークンで自動更新）
	tokenSource := config.TokenSource(a.ctx, token)
	client := oauth2.NewClient(a.ctx, tokenSource)

	// 接続テストのタイムアウトを設定
	ctx, cancel := context.WithTimeout(a.ctx, 10*time.Second)
	defer cancel()

	srv, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		a.logger.Console("Failed to create Drive service: %v", err)
		return false, nil
	}

	// 実際にDriveへの接続をテスト（トークンのリフレッシュもここで自動的に行われる）
	if _, err := srv.Files.List().Fields("files(id)").PageSize(1).Do(); err != nil {
		a.logger.Console("Failed to connect to Drive: %v", err)
		// 認証エラーの場合のみトークンファイルを削除
		if strings.Contains(err.Error(), "oauth2") || strings.Contains(err.Error(), "401") {
			os.Remove(filepath.Join(a.appDataDir, "token.json"))
		}
		return false, nil
	}

	return true, a.finishConnect(srv, token)
}

// StartManualAuth は手動認証フローを開始し、認証完了まで待機します
func (a *driveAuthService) StartManualAuth() error {
	if a.config == nil {
		config, err := a.loadConfig()
		if err != nil {
			return fmt.Errorf("unable to load drive credentials: %v", err)
		}
		a.config = config
	}

	codeChan, err := a.startAuthServer()
	if err != nil {
		return fmt.Errorf("failed to start auth server: %v", err)
	}

	authURL := a.config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	wailsRuntime.BrowserOpenURL(a.ctx, authURL)

	select {
	case code := <-codeChan:
		token, err := a.config.Exchange(a.ctx, code)
		if err != nil {
			return fmt.Errorf("failed to exchange token: %v", err)
		}

		srv, err := drive.NewService(a.ctx,
			option.WithHTTPClient(oauth2.NewClient(a.ctx, a.config.TokenSource(a.ctx, token))))
		if err != nil {
			return fmt.Errorf("failed to create drive service: %v", err)
		}
		return a.finishConnect(srv, token)

	case <-time.After(3 * time.Minute):
		a.shutdownAuthServer()
		return fmt.Errorf("authentication timed out")
	}
}

// Logout はGoogle Driveからログアウトします
func (a *driveAuthService) Logout() error {
	a.shutdownAuthServer()

	tokenFile := filepath.Join(a.appDataDir, "token.json")
	if err := os.Remove(tokenFile); err != nil && !os.IsNotExist(err) {
		a.logger.Console("Failed to remove token file: %v", err)
	}

	a.isConnected = false
	a.store = nil
	a.logger.NotifySyncStatus(a.ctx, "offline")
	return nil
}

// finishConnect はDriveサービスの初期化・トークンの保存・フォルダ準備を行います
func (a *driveAuthService) finishConnect(srv *drive.Service, token *oauth2.Token) error {
	if err := a.saveToken(token); err != nil {
		return fmt.Errorf("failed to save token: %v", err)
	}

	store := NewDriveNoteStore(srv, a.logger)
	if err := store.EnsureFolders(a.ctx); err != nil {
		return err
	}

	a.store = store
	a.isConnected = true
	a.logger.NotifySyncStatus(a.ctx, "connected")
	return nil
}

// startAuthServer は認証コールバック用のローカルサーバーを起動します
func (a *driveAuthService) startAuthServer() (chan string, error) {
	codeChan := make(chan string, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "authorization code missing", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, "Authentication complete. You can close this window.")
		codeChan <- code
	})

	listener, err := net.Listen("tcp", authCallbackAddr)
	if err != nil {
		return nil, err
	}

	server := &http.Server{Handler: mux}
	a.server = server
	a.listener = listener

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			a.logger.Console("Auth server error: %v", err)
		}
	}()

	return codeChan, nil
}

// shutdownAuthServer は認証サーバーを安全に停止します
func (a *driveAuthService) shutdownAuthServer() {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			// 既に閉じられているコネクションのエラーは無視
			if !strings.Contains(err.Error(), "use of closed network connection") {
				a.logger.Console("Error shutting down auth server: %v", err)
			}
		}
		a.server = nil
	}
	if a.listener != nil {
		a.listener.Close()
		a.listener = nil
	}
}

// loadConfig はcredentials.jsonからOAuth2設定を読み込みます
func (a *driveAuthService) loadConfig() (*oauth2.Config, error) {
	credentialsPath := filepath.Join(a.appDataDir, "credentials.json")
	credentials, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, err
	}
	config, err := google.ConfigFromJSON(credentials, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %v", err)
	}
	return config, nil
}

// saveToken はトークンをファイルに保存します
func (a *driveAuthService) saveToken(token *oauth2.Token) error {
	tokenFile := filepath.Join(a.appDataDir, "token.json")
	f, err := os.OpenFile(tokenFile, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// loadToken は保存済みトークンを読み込みます
func (a *driveAuthService) loadToken() (*oauth2.Token, error) {
	tokenFile := filepath.Join(a.appDataDir, "token.json")
	f, err := os.Open(tokenFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, err
	}
	return token, nil
}
