package render

const releasesTemplate = `<!DOCTYPE html>
<html>
<head>
    <title>Releases - {{.RepoPath}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, sans-serif; max-width: 800px; margin: 0 auto; padding: 20px; }
        h1 { color: #333; }
        ul { list-style-type: none; padding: 0; }
        a { color: #0366d6; text-decoration: none; }
        a:hover { text-decoration: underline; }
        .release { margin-bottom: 25px; padding: 20px; background: #fff; border: 1px solid #e1e4e8; border-radius: 8px; }
        .asset { padding: 8px; margin: 4px 0; background: #fff; border: 1px solid #e1e4e8; border-radius: 6px; color: #777; }
        .badge { padding: 2px 8px; border-radius: 3px; font-size: 0.8em; font-weight: bold; color: white; }
        .badge-latest { background: #28a745; }
        .badge-pre { background: #f0ad4e; }
        .badge-draft { background: #777; }
        .latest-box { margin-bottom: 30px; padding: 20px; background: #f0fff4; border: 2px solid #28a745; border-radius: 12px; }
        .latest-box h2 { margin: 0 0 10px 0; color: #28a745; }
        .download { background: #28a745; color: white; padding: 6px 12px; border-radius: 4px; font-weight: 500; }
        .muted { color: #666; font-size: 0.9em; }
        details { margin-top: 10px; }
        details div { margin-top: 10px; padding: 10px; background: #f6f8fa; border-radius: 6px; font-size: 0.9em; }
    </style>
</head>
<body>
    <h1>Releases for {{.RepoPath}}</h1>
    <p class="muted"><em>Cached at: {{.CachedAt}}</em></p>
{{- with .Latest}}
    <div class="latest-box">
        <h2>Latest Release: {{.Name}}</h2>
        <p class="muted">Published: {{.PublishedAt}} &bull; {{len .Assets}} files</p>
{{- range .Assets}}
        <div class="asset">
            <a href="{{.URL}}">{{.Name}}</a>
            {{- if .SizeInfo}} <span class="muted">({{.SizeInfo}})</span>{{end}}
            <a class="download" href="{{.LatestURL}}">Download latest</a>
        </div>
{{- end}}
    </div>
{{- end}}
    <h2>All Releases</h2>
    <ul>
{{- range .Releases}}
        <li class="release">
            <strong><a href="{{.HTMLURL}}" target="_blank">{{.Name}}</a></strong>
            {{- if .Latest}} <span class="badge badge-latest">Latest</span>{{end}}
            {{- if .Prerelease}} <span class="badge badge-pre">Pre-release</span>{{end}}
            {{- if .Draft}} <span class="badge badge-draft">Draft</span>{{end}}
            <br><small class="muted">Published: {{.PublishedAt}}</small>
{{- if .Assets}}
            <div>
                <strong>Downloads ({{len .Assets}} files):</strong>
{{- range .Assets}}
                <div class="asset">
                    <a href="{{.URL}}">{{.Name}}</a>
                    {{- if .SizeInfo}} <span class="muted">({{.SizeInfo}})</span>{{end}}
                    {{- if .Downloads}} <span class="muted">{{.Downloads}}</span>{{end}}
                </div>
{{- end}}
            </div>
{{- end}}
{{- if .BodyLines}}
            <details>
                <summary>Show release notes</summary>
                <div>{{range .BodyLines}}{{.}}<br>{{end}}</div>
            </details>
{{- end}}
        </li>
{{- end}}
    </ul>
</body>
</html>
`

const noticeTemplate = `<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}} - {{.RepoPath}}</title>
{{- if .Refresh}}
    <meta http-equiv="refresh" content="3">
{{- end}}
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, sans-serif; max-width: 800px; margin: 0 auto; padding: 20px; }
        h1 { color: #333; }
        .notice { padding: 20px; border: 1px solid #e1e4e8; border-radius: 8px; background: #f6f8fa; }
    </style>
</head>
<body>
    <h1>{{.Title}}</h1>
    <div class="notice">
        <p><strong>{{.RepoPath}}</strong></p>
        <p>{{.Message}}</p>
    </div>
</body>
</html>
`

const indexPage = `<!DOCTYPE html>
<html>
<head>
    <title>checkup - release cache</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, sans-serif; max-width: 800px; margin: 0 auto; padding: 20px; }
        code { background: #f6f8fa; padding: 2px 6px; border-radius: 4px; }
    </style>
</head>
<body>
    <h1>checkup</h1>
    <p>Caching proxy for repository release listings.</p>
    <ul>
        <li><code>/github/{owner}/{repo}</code></li>
        <li><code>/gitlab/{owner}/{repo}</code></li>
        <li><code>/forgejo/{host}/{owner}/{repo}</code></li>
        <li><code>/cgit/{host}/{repo-path}</code></li>
    </ul>
    <p>Append <code>/cache</code> for the JSON snapshot, or <code>/latest.{ext}</code>
    to be redirected to the newest asset with that extension.</p>
</body>
</html>
`
