package report

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client wraps interactions with the Gotenberg API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Ping checks if the remote Gotenberg service is available.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", c.baseURL), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gotenberg returned status %d", resp.StatusCode)
	}
	return nil
}

// RenderHTML converts raw HTML into a PDF document using Gotenberg. Extra
// form fields (paper size, margins) are passed through unchanged.
func (c *Client) RenderHTML(ctx context.Context, html string, fields map[string]string) ([]byte, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, bytes.NewBufferString(html)); err != nil {
		return nil, err
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/forms/chromium/convert/html", c.baseURL), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("render failed with status %d: %s", resp.StatusCode, string(data))
	}
	return io.ReadAll(resp.Body)
}

// GotenbergEngine lays the report out as HTML and lets Chromium paginate it.
type GotenbergEngine struct {
	client *Client
}

// NewGotenbergEngine constructs an engine backed by client.
func NewGotenbergEngine(client *Client) *GotenbergEngine {
	return &GotenbergEngine{client: client}
}

// Name identifies the engine in logs and metrics.
func (e *GotenbergEngine) Name() string {
	return "gotenberg"
}

// Render converts the document through Gotenberg. Page count is unknown.
func (e *GotenbergEngine) Render(ctx context.Context, doc Document, w io.Writer) (int, error) {
	if e == nil || e.client == nil {
		return 0, fmt.Errorf("gotenberg engine not initialised")
	}
	html, err := buildHTML(doc)
	if err != nil {
		return 0, err
	}
	pw, ph := doc.Geometry.PortraitSize()
	margin := mmToInches(pageMargin)
	fields := map[string]string{
		"paperWidth":   mmToInches(pw),
		"paperHeight":  mmToInches(ph),
		"landscape":    strconv.FormatBool(doc.Geometry.Orientation == Landscape),
		"marginTop":    margin,
		"marginBottom": margin,
		"marginLeft":   margin,
		"marginRight":  margin,
	}
	pdf, err := e.client.RenderHTML(ctx, html, fields)
	if err != nil {
		return 0, err
	}
	if _, err := w.Write(pdf); err != nil {
		return 0, err
	}
	return 0, nil
}

func mmToInches(mm float64) string {
	return strconv.FormatFloat(mm/25.4, 'f', 2, 64)
}

type htmlLogo struct {
	Src   template.URL
	Style template.CSS
}

type htmlView struct {
	Title      string
	Lines      []LetterheadLine
	Logos      []htmlLogo
	Headers    []string
	Rows       [][]string
	IDWidth    float64
	LineWidth  float64
	EmptyLabel string
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title><style>
body{font-family:Helvetica,Arial,sans-serif;margin:0;}
.letterhead{position:relative;min-height:24mm;}
.letterhead p{margin:0;text-align:center;width:{{printf "%.1f" .LineWidth}}mm;}
.letterhead img{position:absolute;top:0;height:22mm;}
h1{font-size:14pt;text-align:center;width:{{printf "%.1f" .LineWidth}}mm;}
table{width:100%;border-collapse:collapse;font-size:8pt;}
th,td{border:0.2mm solid #000;background:#fff;padding:1.5mm;text-align:left;vertical-align:top;}
th:first-child,td:first-child{width:{{printf "%.1f" .IDWidth}}mm;}
thead{display:table-header-group;}
</style></head><body>
<div class="letterhead">
{{range .Logos}}<img src="{{.Src}}" style="{{.Style}}">{{end}}
{{range .Lines}}<p style="font-size:{{printf "%.0f" .Size}}pt;{{if eq .Style "B"}}font-weight:bold;{{end}}{{if eq .Style "I"}}font-style:italic;{{end}}">{{.Text}}</p>{{end}}
</div>
<h1>{{.Title}}</h1>
<table><thead><tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr></thead><tbody>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{else}}<tr><td colspan="{{len .Headers}}">{{.EmptyLabel}}</td></tr>{{end}}
</tbody></table>
</body></html>`))

func buildHTML(doc Document) (string, error) {
	view := htmlView{
		Title:      doc.Title,
		Lines:      doc.Letterhead.Lines(),
		IDWidth:    idColumnWidth,
		LineWidth:  2 * (doc.Geometry.CenterX - pageMargin),
		EmptyLabel: emptyTableText,
	}
	if doc.Dataset != nil {
		view.Headers = doc.Dataset.Headers()
		view.Rows = doc.Dataset.Rows()
	}
	for i, logo := range doc.Logos {
		if logo.Empty() {
			continue
		}
		left := doc.Geometry.CenterX - pageMargin + logoOffset
		if i == 0 {
			left = doc.Geometry.CenterX - pageMargin - logoOffset - logoBox
		}
		view.Logos = append(view.Logos, htmlLogo{
			Src:   template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(logo.PNG)),
			Style: template.CSS(fmt.Sprintf("left:%.1fmm", left)),
		})
	}
	var b strings.Builder
	if err := reportTemplate.Execute(&b, view); err != nil {
		return "", err
	}
	return b.String(), nil
}
