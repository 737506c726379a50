//go:build windows

// Command server hosts the clipmirror server in the Windows system tray.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/getlantern/systray"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sys/windows"

	"github.com/trypsynth/clipmirror/clipboard"
	"github.com/trypsynth/clipmirror/clipmirror"
)

var (
	user32       = windows.NewLazySystemDLL("user32.dll")
	messageBoxW  = user32.NewProc("MessageBoxW")
	mbIconError  = uintptr(0x00000010)
	serverCancel context.CancelFunc
)

func showErrorBox(title, message string) {
	titlePtr, _ := windows.UTF16PtrFromString(title)
	messagePtr, _ := windows.UTF16PtrFromString(message)
	messageBoxW.Call(0, uintptr(unsafe.Pointer(messagePtr)), uintptr(unsafe.Pointer(titlePtr)), mbIconError)
}

func main() {
	config, err := clipmirror.LoadConfig("")
	if err != nil {
		showErrorBox("Error", fmt.Sprintf("Failed to load config: %v", err))
		os.Exit(1)
	}
	board, err := clipboard.Open(config.Backend)
	if err != nil {
		showErrorBox("Error", fmt.Sprintf("Failed to open clipboard: %v", err))
		os.Exit(1)
	}
	var ctx context.Context
	ctx, serverCancel = context.WithCancel(context.Background())
	go startServer(ctx, config, board)
	systray.Run(onReady, onExit)
}

func startServer(ctx context.Context, config *clipmirror.Config, board clipboard.Capability) {
	level, _ := clipmirror.ParseLogLevel(config.LogLevel)
	logFile, err := openLogFile()
	if err != nil {
		showErrorBox("Error", fmt.Sprintf("Failed to open log file: %v", err))
		os.Exit(1)
	}
	defer logFile.Close()
	logger := clipmirror.NewLogger(level, logFile)
	readTimeout, _ := config.ReadTimeoutDuration()
	opts := []clipmirror.ServerOption{
		clipmirror.WithLogger(logger),
		clipmirror.WithMaxRequestBytes(config.MaxRequestBytes),
		clipmirror.WithReadTimeout(readTimeout),
	}
	if config.MetricsAddress != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, clipmirror.WithMetrics(clipmirror.NewMetrics(reg)))
		go func() {
			if err := clipmirror.ServeMetrics(ctx, config.MetricsAddress, reg, logger); err != nil {
				logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}
	srv := clipmirror.NewServer(board, opts...)
	if err := srv.ListenAndServe(ctx, config.ServerAddress()); err != nil {
		showErrorBox("Error", fmt.Sprintf("Failed to start server on %s: %v", config.ServerAddress(), err))
		os.Exit(1)
	}
}

// openLogFile appends to clipmirror.log beside the executable; a tray process
// has no console to write to.
func openLogFile() (*os.File, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(filepath.Dir(exe), "clipmirror.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

func onReady() {
	systray.SetTitle("Clipmirror")
	systray.SetTooltip("Clipmirror Server")
	mQuit := systray.AddMenuItem("Quit", "Quit the server")
	go func() {
		<-mQuit.ClickedCh
		systray.Quit()
	}()
}

func onExit() {
	if serverCancel != nil {
		serverCancel()
	}
	os.Exit(0)
}
