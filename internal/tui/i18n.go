package tui

// i18n provides a simple internationalization system for the TUI.
// Supported locales: "en" (English, default), "zh" (Chinese).

var currentLocale = "en"

// SetLocale changes the active locale.
func SetLocale(locale string) {
	if _, ok := locales[locale]; ok {
		currentLocale = locale
	}
}

// CurrentLocale returns the active locale code.
func CurrentLocale() string {
	return currentLocale
}

// ToggleLocale switches between en and zh.
func ToggleLocale() {
	if currentLocale == "zh" {
		currentLocale = "en"
	} else {
		currentLocale = "zh"
	}
}

// T returns the translated string for the given key.
func T(key string) string {
	if m, ok := locales[currentLocale]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if v, ok := enStrings[key]; ok {
		return v
	}
	return key
}

var locales = map[string]map[string]string{
	"zh": zhStrings,
	"en": enStrings,
}

var zhTabNames = []string{"账户", "API 密钥", "日志"}
var enTabNames = []string{"Account", "API Key", "Logs"}

// TabNames returns tab names in the current locale.
func TabNames() []string {
	if currentLocale == "zh" {
		return zhTabNames
	}
	return enTabNames
}

var zhStrings = map[string]string{
	"loading":          "加载中...",
	"initializing_tui": "正在初始化...",
	"status_left":      " steamlink",
	"status_right":     "Tab/Shift+Tab: 切换 • L: 语言 • q/Ctrl+C: 退出 ",

	"account_title":       "🎮 Steam 账户",
	"account_help":        " [l] 登录 • [r] 刷新 • [d] 删除资料",
	"account_none":        "  尚未登录。按 [l] 使用 Steam 登录。",
	"account_logging_in":  "⏳ 等待 Steam 登录完成...",
	"account_login_ok":    "✓ 登录成功",
	"account_login_fail":  "✗ 登录失败",
	"account_confirm_del": "确定删除此资料？[y] 确认 • 其他键取消",
	"account_deleted":     "✓ 资料已删除",
	"account_persona":     "昵称",
	"account_steamid":     "SteamID64",
	"account_profile_url": "主页",
	"account_real_name":   "真实姓名",
	"account_visibility":  "可见性",
	"account_country":     "国家/地区",
	"account_updated":     "更新时间",
	"visibility_public":   "公开",
	"visibility_private":  "私密",
	"key_title":           "🔑 Steam Web API 密钥",
	"key_help":            " [Enter] 保存 • [Esc] 清空输入",
	"key_current":         "当前密钥",
	"key_none":            "（未设置）",
	"key_prompt":          "新密钥",
	"key_saved":           "✓ 密钥已保存",
	"key_empty":           "密钥不能为空",
	"logs_title":          "📋 日志",
	"logs_auto_scroll":    "● 自动滚动",
	"logs_paused":         "○ 已暂停",
	"logs_filter":         "过滤",
	"logs_lines":          "行数",
	"logs_help":           " [a] 自动滚动 • [c] 清除 • [1] 全部 [2] info+ [3] warn+ [4] error • [f] 仅当前登录 • [↑↓] 滚动",
	"logs_waiting":        "  等待日志输出...",
	"error_prefix":        "⚠ 错误",
}

var enStrings = map[string]string{
	"loading":          "Loading...",
	"initializing_tui": "Initializing...",
	"status_left":      " steamlink",
	"status_right":     "Tab/Shift+Tab: switch • L: lang • q/Ctrl+C: quit ",

	"account_title":       "🎮 Steam Account",
	"account_help":        " [l] Log in • [r] Refresh • [d] Delete profile",
	"account_none":        "  Not signed in yet. Press [l] to sign in through Steam.",
	"account_logging_in":  "⏳ Waiting for Steam sign-in to finish...",
	"account_login_ok":    "✓ Signed in",
	"account_login_fail":  "✗ Sign-in failed",
	"account_confirm_del": "Delete this profile? [y] confirm • any other key cancels",
	"account_deleted":     "✓ Profile deleted",
	"account_persona":     "Persona",
	"account_steamid":     "SteamID64",
	"account_profile_url": "Profile",
	"account_real_name":   "Real name",
	"account_visibility":  "Visibility",
	"account_country":     "Country",
	"account_updated":     "Updated",
	"visibility_public":   "public",
	"visibility_private":  "private",
	"key_title":           "🔑 Steam Web API Key",
	"key_help":            " [Enter] Save • [Esc] Clear input",
	"key_current":         "Current key",
	"key_none":            "(not set)",
	"key_prompt":          "New key",
	"key_saved":           "✓ Key saved",
	"key_empty":           "The key must not be empty",
	"logs_title":          "📋 Logs",
	"logs_auto_scroll":    "● AUTO-SCROLL",
	"logs_paused":         "○ PAUSED",
	"logs_filter":         "Filter",
	"logs_lines":          "Lines",
	"logs_help":           " [a] Auto-scroll • [c] Clear • [1] All [2] info+ [3] warn+ [4] error • [f] Current login only • [↑↓] Scroll",
	"logs_waiting":        "  Waiting for log output...",
	"error_prefix":        "⚠ Error",
}
