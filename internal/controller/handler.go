package controller

import (
	"html/template"
	"net/http"
	"time"

	"github.com/google/uuid"
)

var statusTmpl = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Jamroom Server Status</title>
    <style>
        body {
            background-color: #0f0f0f;
            color: #00ff88;
            font-family: 'Courier New', Courier, monospace;
            display: flex;
            flex-direction: column;
            align-items: center;
            justify-content: center;
            height: 100vh;
            margin: 0;
        }
        .container {
            border: 2px solid #333;
            padding: 2rem;
            border-radius: 10px;
            background-color: #1a1a1a;
            text-align: center;
        }
        .status { font-size: 1.5rem; font-weight: bold; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Jamroom Server</h1>
        <p>Status: <span class="status">ONLINE</span></p>
        <p>Uptime: {{.Uptime}}</p>
        <p>Listening for socket connections...</p>
    </div>
</body>
</html>
`))

// statusPage is what uptime pingers hit to keep the instance awake.
func (c controller) statusPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := statusTmpl.Execute(w, map[string]any{
		"Uptime": time.Since(c.startedAt).Truncate(time.Second).String(),
	}); err != nil {
		c.logger.WarnContext(r.Context(), "failed to render status page", "error", err)
	}
}

func (c controller) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	c.hub.Serve(r.Context(), conn, uuid.NewString())
}
