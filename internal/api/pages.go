// Package api provides the HTML pages of the account-linking flow.
package api

import (
	"fmt"
	"html"
	"log/slog"
	"net/http"
)

const loginPageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>DummyCorp - Login</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
           background: linear-gradient(135deg, #667eea 0%%, #764ba2 100%%);
           min-height: 100vh; display: flex; align-items: center; justify-content: center; }
    .container { background: white; border-radius: 12px; padding: 40px; max-width: 400px; width: 100%%; }
    label { display: block; margin-bottom: 8px; font-weight: 500; }
    input { width: 100%%; padding: 12px; border: 2px solid #e0e0e0; border-radius: 8px; margin-bottom: 20px; }
    button { width: 100%%; padding: 14px; background: #667eea; color: white; border: none; border-radius: 8px; font-weight: 600; cursor: pointer; }
    .demo-hint { margin-top: 20px; padding: 15px; background: #f0f7ff; border-left: 4px solid #667eea; font-size: 13px; }
  </style>
</head>
<body>
  <div class="container">
    <h1>🏢 DummyCorp Login</h1>
    <p>Link your Slack account with DummyCorp</p>
    <form action="/auth/callback" method="POST">
      <input type="hidden" name="state" value="%s">
      <label for="username">Username or Email</label>
      <input type="text" id="username" name="username" required placeholder="john@company.com">
      <label for="password">Password</label>
      <input type="password" id="password" name="password" required placeholder="Enter your password">
      <button type="submit">🔐 Login &amp; Authorize</button>
    </form>
    <div class="demo-hint">
      <strong>📝 Demo Mode:</strong> For this demo, any username/password will work.
      In production, this would authenticate against your real user database.
    </div>
  </div>
</body>
</html>`

const successPageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Success - DummyCorp</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
           background: linear-gradient(135deg, #667eea 0%%, #764ba2 100%%);
           min-height: 100vh; display: flex; align-items: center; justify-content: center; }
    .container { background: white; border-radius: 12px; padding: 40px; max-width: 500px; text-align: center; }
    .user-info { background: #f7fafc; border-left: 4px solid #667eea; padding: 15px; margin: 20px 0; text-align: left; }
    .button { display: inline-block; padding: 14px 28px; background: #667eea; color: white; text-decoration: none; border-radius: 8px; font-weight: 600; }
  </style>
</head>
<body>
  <div class="container">
    <div style="font-size: 64px;">✅</div>
    <h1>Authentication Successful!</h1>
    <p>Your Slack account has been successfully linked to DummyCorp.</p>
    <div class="user-info"><strong>Linked Account:</strong><br>%s</div>
    <p>You can now return to Slack and start using the bot!</p>
    <a href="slack://open" class="button">← Return to Slack</a>
    <p style="margin-top: 30px; color: #718096; font-size: 14px;">🔒 This connection is secure and can be revoked anytime.<br>
    A confirmation message has been sent to you in Slack.</p>
  </div>
</body>
</html>`

const errorPageTemplate = `<!DOCTYPE html>
<html>
<head>
  <title>Error</title>
  <style>
    body { font-family: sans-serif; padding: 40px; text-align: center; }
    .error { color: #e53e3e; }
  </style>
</head>
<body>
  <h1 class="error">❌ %s</h1>
  <p>%s</p>
</body>
</html>`

const oauthSuccessPage = `<!DOCTYPE html>
<html>
<head>
  <title>Installation Successful</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
           background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
           display: flex; align-items: center; justify-content: center; min-height: 100vh; }
    .container { background: white; padding: 50px; border-radius: 12px; text-align: center; max-width: 500px; }
    h1 { color: #28a745; }
    .button { display: inline-block; background: #667eea; color: white; padding: 12px 24px; border-radius: 8px; text-decoration: none; font-weight: 600; }
  </style>
</head>
<body>
  <div class="container">
    <h1>✅ Installation Successful!</h1>
    <p><strong>Dummy</strong> has been installed to your Slack workspace.</p>
    <p>You can now use the bot by mentioning <code>@Dummy</code> in any channel or sending it a direct message.</p>
    <a href="slack://open" class="button">Open Slack</a>
  </div>
</body>
</html>`

// writeHTML writes an HTML page with the given status code.
func writeHTML(w http.ResponseWriter, statusCode int, page string) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(statusCode)
	if _, err := w.Write([]byte(page)); err != nil {
		slog.Error("Server.writeHTML: failed to write page", "error", err)
	}
}

// writeErrorPage writes the shared HTML error page.
func writeErrorPage(w http.ResponseWriter, statusCode int, title, detail string) {
	writeHTML(w, statusCode, fmt.Sprintf(errorPageTemplate, html.EscapeString(title), html.EscapeString(detail)))
}

// authLoginHandler renders the login page with the state token carried
// through a hidden form field.
func (s *Server) authLoginHandler(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	slog.Debug("Server.authLoginHandler: rendering login page", "state_set", state != "")
	writeHTML(w, http.StatusOK, fmt.Sprintf(loginPageTemplate, html.EscapeString(state)))
}

// oauthCallbackHandler handles Slack's app-install OAuth redirect. The app
// is installed with static tokens, so no code exchange happens here; the
// handler only renders the outcome page.
func (s *Server) oauthCallbackHandler(w http.ResponseWriter, r *http.Request) {
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		slog.Info("Server.oauthCallbackHandler: installation cancelled", "error", errParam)
		writeErrorPage(w, http.StatusOK, "Installation Cancelled", "You cancelled the Slack app installation. You can try again anytime from the Slack App Directory.")
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		writeErrorPage(w, http.StatusBadRequest, "Installation Error", "No authorization code received from Slack. Please try installing the app again.")
		return
	}
	slog.Info("Server.oauthCallbackHandler: Slack OAuth callback received")
	writeHTML(w, http.StatusOK, oauthSuccessPage)
}
