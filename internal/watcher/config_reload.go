// config_reload.go implements debounced configuration hot reload.
package watcher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/steamlink/steamlink/internal/config"
	"github.com/steamlink/steamlink/internal/util"
	"gopkg.in/yaml.v3"

	log "github.com/sirupsen/logrus"
)

func (w *Watcher) stopConfigReloadTimer() {
	w.configReloadMu.Lock()
	if w.configReloadTimer != nil {
		w.configReloadTimer.Stop()
		w.configReloadTimer = nil
	}
	w.configReloadMu.Unlock()
}

func (w *Watcher) scheduleConfigReload() {
	w.configReloadMu.Lock()
	defer w.configReloadMu.Unlock()
	if w.configReloadTimer != nil {
		w.configReloadTimer.Stop()
	}
	w.configReloadTimer = time.AfterFunc(configReloadDebounce, func() {
		w.configReloadMu.Lock()
		w.configReloadTimer = nil
		w.configReloadMu.Unlock()
		w.reloadConfigIfChanged()
	})
}

func (w *Watcher) reloadConfigIfChanged() {
	data, err := os.ReadFile(w.configPath)
	if err != nil {
		log.Errorf("failed to read config file for hash check: %v", err)
		return
	}
	if len(data) == 0 {
		log.Debugf("ignoring empty config file write event")
		return
	}
	sum := sha256.Sum256(data)
	newHash := hex.EncodeToString(sum[:])

	w.configMu.RLock()
	currentHash := w.lastConfigHash
	w.configMu.RUnlock()

	if currentHash != "" && currentHash == newHash {
		log.Debugf("config file content unchanged (hash match), skipping reload")
		return
	}
	log.Infof("config file changed, reloading: %s", w.configPath)
	if w.reloadConfig() {
		w.configMu.Lock()
		w.lastConfigHash = newHash
		w.configMu.Unlock()
	}
}

func (w *Watcher) reloadConfig() bool {
	newConfig, errLoadConfig := config.LoadConfig(w.configPath)
	if errLoadConfig != nil {
		log.Errorf("failed to reload config: %v", errLoadConfig)
		return false
	}

	w.configMu.Lock()
	var oldConfig *config.Config
	if len(w.oldConfigYaml) > 0 {
		_ = yaml.Unmarshal(w.oldConfigYaml, &oldConfig)
	}
	w.oldConfigYaml, _ = yaml.Marshal(newConfig)
	w.config = newConfig
	w.configMu.Unlock()

	util.SetLogLevel(newConfig)
	if oldConfig != nil {
		details := BuildConfigChangeDetails(oldConfig, newConfig)
		if len(details) > 0 {
			log.Debugf("config changes detected:")
			for _, d := range details {
				log.Debugf("  %s", d)
			}
		} else {
			log.Debugf("no material config field changes detected")
		}
	}

	if w.reloadCallback != nil {
		w.reloadCallback(newConfig)
	}
	log.Info("config successfully reloaded; changes apply to the next login")
	return true
}

// BuildConfigChangeDetails lists the keys that differ between oldCfg and newCfg
// as "key: old -> new" lines.
func BuildConfigChangeDetails(oldCfg, newCfg *config.Config) []string {
	if oldCfg == nil || newCfg == nil {
		return nil
	}
	var details []string
	add := func(key string, oldValue, newValue any) {
		if fmt.Sprint(oldValue) != fmt.Sprint(newValue) {
			details = append(details, fmt.Sprintf("%s: %v -> %v", key, oldValue, newValue))
		}
	}
	add("data-dir", oldCfg.DataDir, newCfg.DataDir)
	add("debug", oldCfg.Debug, newCfg.Debug)
	add("logging-to-file", oldCfg.LoggingToFile, newCfg.LoggingToFile)
	add("logs-max-total-size-mb", oldCfg.LogsMaxTotalSizeMB, newCfg.LogsMaxTotalSizeMB)
	add("callback-host", oldCfg.CallbackHost, newCfg.CallbackHost)
	add("callback-port", oldCfg.CallbackPort, newCfg.CallbackPort)
	add("callback-path", oldCfg.CallbackPath, newCfg.CallbackPath)
	add("callback-timeout-seconds", oldCfg.CallbackTimeoutSeconds, newCfg.CallbackTimeoutSeconds)
	add("openid-endpoint", oldCfg.OpenIDEndpoint, newCfg.OpenIDEndpoint)
	add("steam-api-base", oldCfg.SteamAPIBase, newCfg.SteamAPIBase)
	add("verify-assertion", oldCfg.VerifyAssertion, newCfg.VerifyAssertion)
	add("credential-backend", oldCfg.CredentialBackend, newCfg.CredentialBackend)
	if !slices.Equal(oldCfg.LoginWindowCommand, newCfg.LoginWindowCommand) {
		details = append(details, fmt.Sprintf("login-window-command: %q -> %q", oldCfg.LoginWindowCommand, newCfg.LoginWindowCommand))
	}
	add("no-browser", oldCfg.NoBrowser, newCfg.NoBrowser)
	add("request-timeout-seconds", oldCfg.RequestTimeoutSeconds, newCfg.RequestTimeoutSeconds)
	return details
}
