package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/checkup/checkup/internal/release"
)

func init() {
	MustRegister("cgit", func(opts Options) Provider {
		return &cgitProvider{
			client:    opts.Client,
			scheme:    "https",
			userAgent: opts.UserAgent,
		}
	})
}

// cgitProvider 抓取 cgit 实例的 refs/tags 页面并解析标签表格。
// cgit 没有发布 API，这里把每个 tag 的快照下载链接当作唯一资产。
type cgitProvider struct {
	client    *http.Client
	scheme    string
	userAgent string
}

// cgit 的 age 列 span title 使用这种带时区偏移的格式。
const cgitTimeLayout = "2006-01-02 15:04:05 -0700"

func (p *cgitProvider) Name() string { return "cgit" }

// ParseKey 接受 host/<repo-path> 形式，repo 可含多级目录，Owner 为空。
func (p *cgitProvider) ParseKey(path string) (release.Key, error) {
	parts := strings.SplitN(strings.Trim(path, "/"), "/", 2)
	if len(parts) != 2 {
		return release.Key{}, fmt.Errorf("%w: %s", release.ErrInvalidKey, path)
	}
	return release.PathKey(parts[0], parts[1])
}

func (p *cgitProvider) FetchReleases(ctx context.Context, key release.Key) ([]release.Release, error) {
	url := fmt.Sprintf("%s://%s/%s/refs/tags", p.scheme, key.Host, key.Repo)
	body, err := getJSON(ctx, p.client, url, "text/html", p.userAgent)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := html.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse cgit page: %w", err)
	}

	var releases []release.Release
	for _, table := range findAll(doc, isListTable) {
		for i, row := range findAll(table, isElement("tr")) {
			if i == 0 {
				// 表头行。
				continue
			}
			if r, ok := p.parseTagRow(row, key); ok {
				releases = append(releases, r)
			}
		}
	}
	return releases, nil
}

// parseTagRow 从一行中取出标签名、下载链接和可选的发布时间。
// 缺少标签或下载链接的行（例如分隔行）被跳过。
func (p *cgitProvider) parseTagRow(row *html.Node, key release.Key) (release.Release, bool) {
	cells := findAll(row, isElement("td"))
	if len(cells) < 2 {
		return release.Release{}, false
	}

	tagName := strings.TrimSpace(textContent(firstLink(cells[0])))
	downloadURL := attrValue(firstLink(cells[1]), "href")
	if tagName == "" || downloadURL == "" {
		return release.Release{}, false
	}

	publishedAt := time.Now().UTC()
	for _, cell := range cells[2:] {
		for _, span := range findAll(cell, isElement("span")) {
			if title := attrValue(span, "title"); title != "" {
				if at, err := time.Parse(cgitTimeLayout, title); err == nil {
					publishedAt = at.UTC()
				}
			}
		}
	}

	assetName := downloadURL
	if idx := strings.LastIndexByte(downloadURL, '/'); idx >= 0 {
		assetName = downloadURL[idx+1:]
	}
	if assetName == "" {
		assetName = tagName
	}
	if !strings.HasPrefix(downloadURL, "http") {
		downloadURL = fmt.Sprintf("%s://%s%s", p.scheme, key.Host, downloadURL)
	}

	return release.Release{
		TagName:     tagName,
		Name:        tagName,
		PublishedAt: publishedAt,
		HTMLURL:     fmt.Sprintf("%s://%s/%s/tag/?h=%s", p.scheme, key.Host, key.Repo, tagName),
		Assets: []release.Asset{
			{
				Name:        assetName,
				URL:         downloadURL,
				ContentType: "application/gzip",
			},
		},
	}, true
}

func isListTable(n *html.Node) bool {
	if n.Type != html.ElementNode || n.Data != "table" {
		return false
	}
	for _, class := range strings.Fields(attrValue(n, "class")) {
		if class == "list" {
			return true
		}
	}
	return false
}

func isElement(name string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == name
	}
}

// findAll 深度优先收集满足条件的节点，不会进入已匹配节点的子树。
func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var found []*html.Node
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if match(child) {
			found = append(found, child)
			continue
		}
		found = append(found, findAll(child, match)...)
	}
	return found
}

func firstLink(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	links := findAll(n, isElement("a"))
	if len(links) == 0 {
		return nil
	}
	return links[0]
}

func attrValue(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		sb.WriteString(textContent(child))
	}
	return sb.String()
}
