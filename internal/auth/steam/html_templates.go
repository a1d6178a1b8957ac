package steam

import "net/http"

// LoginCompleteHTML is served for every callback that decided the attempt,
// whatever the outcome. The result itself is delivered to the main window.
const LoginCompleteHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Steam Login</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background: #171a21; color: #c7d5e0; display: flex; justify-content: center; align-items: center; min-height: 100vh; margin: 0; }
        h2 { font-weight: 500; }
    </style>
</head>
<body>
    <h2>Login complete - you can close this window.</h2>
</body>
</html>`

// LoginErrorHTML is served when the callback could not be handled at all.
const LoginErrorHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Steam Login</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background: #171a21; color: #c7d5e0; display: flex; justify-content: center; align-items: center; min-height: 100vh; margin: 0; }
        h2 { font-weight: 500; color: #e06c75; }
    </style>
</head>
<body>
    <h2>Login failed - close this window and try again.</h2>
</body>
</html>`

// LoginNotPendingHTML is served when no login is waiting for this callback.
const LoginNotPendingHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Steam Login</title>
</head>
<body>
    <h2>No login is waiting for this response. You can close this window.</h2>
</body>
</html>`

func setSecurityHeaders(h http.Header) {
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Referrer-Policy", "no-referrer")
	h.Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
}
