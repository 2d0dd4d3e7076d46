// Package proxy manages the external reverse-proxy subprocess: its spawn
// environment, log sink, liveness, and the local PUID refresh endpoint it
// exposes.
package proxy

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/yicone/chatgpt-web-share/internal/db/models"
)

var (
	// ErrNotPaid means the reverse proxy was requested without a Plus
	// entitlement. Fatal to the feature; do not retry.
	ErrNotPaid = errors.New("reverse proxy requires a ChatGPT Plus account (set chatgpt_paid: true)")

	// ErrNoBinary means reverse_proxy_binary_path is not configured.
	ErrNoBinary = errors.New("reverse proxy binary path not configured")
)

// Config carries the subprocess settings from the daemon configuration.
type Config struct {
	BinaryPath      string
	Port            int
	Paid            bool
	AutoRefreshPUID bool
	LogDir          string
}

// Handle owns the running subprocess and its log sink. At most one live
// handle exists per daemon; the proxy binary binds a single port.
type Handle struct {
	mu      sync.Mutex
	cmd     *exec.Cmd
	logFile *os.File
}

// Alive reports whether the handle still references a spawned process.
// The PUID refresh client consults this before issuing requests.
func (h *Handle) Alive() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cmd != nil
}

// Stop kills the subprocess and closes the log sink. Idempotent: calling it
// on an already-stopped handle is a no-op. The proxy is disposable, so this
// is a forceful kill with no shutdown handshake.
func (h *Handle) Stop() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cmd == nil {
		return
	}
	if h.cmd.Process != nil {
		if err := h.cmd.Process.Kill(); err != nil {
			log.Printf("⚠️ Failed to kill reverse proxy: %v", err)
		}
		h.cmd.Wait() // reap; exit status of a killed process is not interesting
	}
	h.cmd = nil
	if h.logFile != nil {
		h.logFile.Close()
		h.logFile = nil
	}
	log.Println("🛑 Reverse proxy stopped")
}

// Supervisor spawns and tears down the reverse-proxy subprocess.
type Supervisor struct {
	cfg Config
}

// NewSupervisor creates a supervisor for the given subprocess settings.
func NewSupervisor(cfg Config) *Supervisor {
	return &Supervisor{cfg: cfg}
}

// Start validates the configuration, builds the subprocess environment from
// the account set, and spawns the binary with stdout and stderr redirected
// to reverse_proxy.log under the log directory.
func (s *Supervisor) Start(accounts []models.Account) (*Handle, error) {
	if !s.cfg.Paid {
		return nil, ErrNotPaid
	}
	if s.cfg.BinaryPath == "" {
		return nil, ErrNoBinary
	}

	if err := os.MkdirAll(s.cfg.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	logPath := filepath.Join(s.cfg.LogDir, "reverse_proxy.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open reverse proxy log: %w", err)
	}

	cmd := exec.Command(s.cfg.BinaryPath)
	cmd.Env = s.buildEnv(accounts)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return nil, fmt.Errorf("spawn reverse proxy %s: %w", s.cfg.BinaryPath, err)
	}

	log.Printf("🚀 Reverse proxy started (pid %d, port %d)", cmd.Process.Pid, s.cfg.Port)
	return &Handle{cmd: cmd, logFile: logFile}, nil
}

// buildEnv assembles the subprocess environment. PUIDS and ACCESS_TOKENS
// carry the active Plus accounts in input order and are omitted entirely
// when no such account exists.
func (s *Supervisor) buildEnv(accounts []models.Account) []string {
	var puids, accessTokens []string
	for _, acc := range accounts {
		if acc.IsActive && acc.IsPlus {
			puids = append(puids, acc.PUID)
			accessTokens = append(accessTokens, acc.AccessToken)
		}
	}

	env := []string{
		"PORT=" + strconv.Itoa(s.cfg.Port),
		"ENABLE_PUID_AUTO_REFRESH=" + strconv.FormatBool(s.cfg.AutoRefreshPUID),
	}
	if len(puids) > 0 {
		env = append(env, "PUIDS="+strings.Join(puids, ","))
	}
	if len(accessTokens) > 0 {
		env = append(env, "ACCESS_TOKENS="+strings.Join(accessTokens, ","))
	}
	return env
}
